// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the clarion chat backend.
//
// The backend exposes a streaming chat turn endpoint plus conversation
// listing, history and download. Every request carries the bearer
// credential attached by the credstore; same-origin cookies still flow
// as a fallback because requests are issued with the default cookie
// jar semantics.
package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/clarion/internal/credstore"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds non-streaming API requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed non-streaming response
	// body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// defaultRequestsPerSecond paces outbound calls so a tight UI loop
	// cannot hammer the backend.
	defaultRequestsPerSecond = 5
	defaultBurst             = 10

	userAgent = "clarion/0.1.0"
)

var (
	// Shared HTTP client with connection pooling for all API requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no client timeout; streaming requests
	// are bounded by their context instead.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrAuthRequired indicates the backend rejected the credential.
	// Surfaced distinctly so the UI can suggest a re-login without
	// forcing navigation.
	ErrAuthRequired = errors.New("authorization required")

	// ErrStreamClosed indicates the connection dropped mid-stream.
	ErrStreamClosed = errors.New("stream closed unexpectedly")
)

// APIError represents a structured error response from the backend.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d)", e.Status)
}

// apiErrorBody covers the error envelope shapes the backend emits.
type apiErrorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the HTTP client for the chat backend.
type Client struct {
	baseURL string
	creds   *credstore.Store
	limiter *rate.Limiter
}

// NewClient creates a backend client. creds supplies the bearer
// credential for every request.
func NewClient(baseURL string, creds *credstore.Store) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		creds:   creds,
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurst),
	}
}

// WithRateLimit overrides the default request pacing.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders sets the common headers for backend requests, including
// the bearer credential when one is available.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	c.creds.Attach(req.Header)
}

// doJSON performs a paced, non-streaming request and returns the body.
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("API %s %s: %d (%v)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	data, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.handleErrorResponse(resp.StatusCode, data)
	}
	return data, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to typed errors.
// The structured message is extracted and preserved verbatim when the
// backend provides one.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	message := extractErrorMessage(body)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrAuthRequired, message)
		}
		return ErrAuthRequired
	default:
		return &APIError{Status: statusCode, Message: message}
	}
}

// extractErrorMessage pulls a human-readable message from the error
// envelope shapes the backend emits. Returns "" for opaque bodies.
func extractErrorMessage(body []byte) string {
	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	switch {
	case envelope.Detail != "":
		return envelope.Detail
	case envelope.Message != "":
		return envelope.Message
	case envelope.Error.Message != "":
		return envelope.Error.Message
	}
	return ""
}
