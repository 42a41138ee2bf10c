// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"

	"github.com/jeranaias/clarion/internal/model"
)

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// ListConversations fetches the full set of conversations for the
// authenticated user, tolerating either a bare array response or an
// object wrapping the array under a conventional key.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/conversations", nil)
	if err != nil {
		return nil, err
	}

	convs, err := extractConversations(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse conversation list: %w", err)
	}
	return convs, nil
}

// extractConversations accepts `[...]` or `{"<key>": [...]}` for the
// conventional wrapper keys.
func extractConversations(data []byte) ([]model.Conversation, error) {
	var convs []model.Conversation
	if err := json.Unmarshal(data, &convs); err == nil {
		return convs, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	for _, key := range []string{"conversations", "sessions", "data", "items"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &convs); err != nil {
			return nil, err
		}
		return convs, nil
	}
	return nil, fmt.Errorf("no conversation array found in response")
}

// =============================================================================
// CONVERSATION HISTORY
// =============================================================================

// HistoryMessage is one persisted message as returned by the history
// endpoint. It carries no client-side identifier; the timeline assigns
// fresh local IDs on load.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// historyResponse is the history endpoint envelope.
type historyResponse struct {
	Success      bool             `json:"success"`
	SessionID    string           `json:"session_id"`
	Conversation []HistoryMessage `json:"conversation"`
}

// History fetches the persisted messages of one conversation in
// chronological order.
func (c *Client) History(ctx context.Context, conversationID string) ([]HistoryMessage, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/conversations/"+conversationID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := extractHistory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	if !resp.Success {
		return nil, &APIError{Status: http.StatusOK, Message: "history fetch reported failure"}
	}
	return resp.Conversation, nil
}

// extractHistory accepts the envelope directly or wrapped under "data".
func extractHistory(data []byte) (historyResponse, error) {
	var resp historyResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return historyResponse{}, err
	}
	if resp.Conversation != nil || resp.Success {
		return resp, nil
	}

	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Data != nil {
		if err := json.Unmarshal(wrapped.Data, &resp); err != nil {
			return historyResponse{}, err
		}
	}
	return resp, nil
}

// =============================================================================
// CONVERSATION DOWNLOAD
// =============================================================================

// Download fetches the exported form of a conversation. The filename
// comes from the Content-Disposition header when present, else a
// deterministic default derived from the conversation ID.
func (c *Client) Download(ctx context.Context, conversationID string) (filename string, data []byte, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/conversations/"+conversationID+"/download", nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := readResponse(resp)
		return "", nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read download: %w", err)
	}

	filename = downloadFilename(resp.Header.Get("Content-Disposition"), conversationID)
	log.Printf("API downloaded conversation %s (%d bytes)", conversationID, len(data))
	return filename, data, nil
}

// downloadFilename resolves the name to save a download under.
func downloadFilename(disposition, conversationID string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return "conversation-" + conversationID + ".json"
}
