// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity implements the email passcode login flow against the
// identity provider.
//
// The flow is two calls: request a one-time code for an email address,
// then exchange the code for a bearer token. Verification of the code
// itself happens server-side; this client only transports it. The
// resulting token is handed to the credential store for publication.
package identity

import (
	"bytes"
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
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

const (
	requestTimeout  = 30 * time.Second
	maxResponseSize = 1 * 1024 * 1024 // 1MB limit; auth responses are tiny

	userAgent = "clarion/0.1.0"
)

var sharedClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: requestTimeout,
}

var (
	// ErrCodeRejected indicates the provider refused the passcode
	// (wrong, expired, or too many attempts).
	ErrCodeRejected = errors.New("passcode rejected")

	// ErrEmailRejected indicates the provider refused to send a code to
	// the given address.
	ErrEmailRejected = errors.New("email rejected")
)

// ProviderError represents an unexpected identity provider response.
type ProviderError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity provider error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("identity provider error (HTTP %d)", e.Status)
}

// =============================================================================
// CLIENT
// =============================================================================

// Credential is the token material returned by a successful code
// exchange. ExpiresIn is in seconds.
type Credential struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Client talks to the identity provider origin.
type Client struct {
	baseURL string
}

// NewClient creates an identity client for the given provider origin.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// BaseURL returns the configured provider origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestCode asks the provider to email a one-time passcode.
func (c *Client) RequestCode(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	status, _, err := c.post(ctx, "/auth/request-code", body)
	if err != nil {
		return err
	}
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrEmailRejected
	default:
		return &ProviderError{Status: status}
	}
}

// VerifyCode exchanges the emailed passcode for a bearer token. The
// code is sent verbatim; the provider decides validity.
func (c *Client) VerifyCode(ctx context.Context, email, code string) (Credential, error) {
	body := map[string]string{"email": email, "code": code}
	status, data, err := c.post(ctx, "/auth/verify-code", body)
	if err != nil {
		return Credential{}, err
	}
	switch {
	case status >= 200 && status <= 299:
		var cred Credential
		if err := json.Unmarshal(data, &cred); err != nil {
			return Credential{}, fmt.Errorf("failed to parse credential response: %w", err)
		}
		if cred.Token == "" {
			return Credential{}, fmt.Errorf("credential response carried no token")
		}
		return cred, nil
	case status == http.StatusBadRequest, status == http.StatusUnauthorized, status == http.StatusForbidden:
		return Credential{}, ErrCodeRejected
	default:
		return Credential{}, &ProviderError{Status: status}
	}
}

// post issues a JSON POST and returns the status and body. Non-2xx
// statuses are returned for the caller to classify, not treated as
// transport errors.
func (c *Client) post(ctx context.Context, path string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := sharedClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	log.Printf("identity POST %s: %d (%v)", path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
