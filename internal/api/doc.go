// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the clarion chat backend.
//
// # Endpoints
//
//   - POST /chat/stream - one chat turn; the response body is a stream
//     of "data: <json>" lines decoded incrementally by SendMessage
//   - GET /conversations - conversation directory listing
//   - GET /conversations/{id} - persisted history of one conversation
//   - GET /conversations/{id}/download - exported conversation bytes
//
// # Streaming
//
// The transport delivers arbitrarily-chunked bytes. SendMessage buffers
// raw bytes across reads, reassembles complete lines, and delivers
// frames to the handler in exact wire order. A done frame or end of
// stream terminates the turn; malformed frames are dropped without
// aborting.
//
// # Errors
//
// Authorization failures map to ErrAuthRequired so callers can suggest
// a re-login. Other non-2xx responses become *APIError with the
// backend's message extracted verbatim when available. Mid-stream read
// failures wrap ErrStreamClosed.
package api
