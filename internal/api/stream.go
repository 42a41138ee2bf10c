// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

// =============================================================================
// STREAM PROTOCOL
// =============================================================================

// framePrefix marks a protocol frame line on the wire.
const framePrefix = "data: "

// Frame is one decoded unit of the streaming wire protocol.
type Frame struct {
	Content   string `json:"content,omitempty"`
	SessionID string `json:"session_id"`
	Done      bool   `json:"done,omitempty"`
}

// FrameHandler consumes decoded frames in arrival order.
type FrameHandler func(Frame)

// SendRequest describes one chat turn.
type SendRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"session_id"`
}

// =============================================================================
// LINE DECODER
// =============================================================================

// LineDecoder reassembles complete lines from an arbitrarily-chunked
// byte stream.
//
// The transport delivers chunks with no alignment guarantee: a read may
// end mid-line or mid-multi-byte character. Buffering raw bytes and
// splitting only on '\n' keeps split UTF-8 sequences intact ('\n'
// cannot occur inside a multi-byte sequence), so no read boundary can
// corrupt frame text.
type LineDecoder struct {
	buf []byte
}

// Feed appends newly read bytes and returns all complete lines, holding
// back the trailing partial segment for the next read.
func (d *LineDecoder) Feed(p []byte) [][]byte {
	d.buf = append(d.buf, p...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return lines
		}
		line := make([]byte, i)
		copy(line, d.buf[:i])
		lines = append(lines, line)
		d.buf = d.buf[i+1:]
	}
}

// Flush returns the remaining buffered partial line, if any. The final
// chunk of a stream may contain a complete frame without a trailing
// newline.
func (d *LineDecoder) Flush() []byte {
	line := d.buf
	d.buf = nil
	return line
}

// =============================================================================
// FRAME PARSING
// =============================================================================

// parseFrame decodes a protocol frame from one complete line. Lines
// without the frame prefix are not frames; malformed frame payloads are
// logged and skipped so a single bad frame never aborts the stream.
func parseFrame(line []byte) (Frame, bool) {
	line = bytes.TrimRight(line, "\r")
	if !bytes.HasPrefix(line, []byte(framePrefix)) {
		return Frame{}, false
	}

	payload := bytes.TrimSpace(line[len(framePrefix):])
	if len(payload) == 0 {
		return Frame{}, false
	}

	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		log.Printf("stream: skipping malformed frame: %v", err)
		return Frame{}, false
	}
	return frame, true
}

// =============================================================================
// SEND MESSAGE
// =============================================================================

// SendMessage issues one chat turn and decodes the response stream,
// invoking onFrame synchronously for each frame in arrival order.
//
// Termination: a done frame, or end of stream. After the read loop the
// remaining buffered partial line is parsed once more. The response
// body is released on every exit path. Cancelling ctx closes the
// underlying connection and ends the turn early.
func (c *Client) SendMessage(ctx context.Context, req SendRequest, onFrame FrameHandler) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/stream", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := readResponse(resp)
		return c.handleErrorResponse(resp.StatusCode, data)
	}

	return decodeFrames(ctx, resp.Body, onFrame)
}

// decodeFrames runs the incremental read loop over the response body.
func decodeFrames(ctx context.Context, body io.Reader, onFrame FrameHandler) error {
	dec := &LineDecoder{}
	chunk := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(chunk)
		if n > 0 {
			for _, line := range dec.Feed(chunk[:n]) {
				frame, ok := parseFrame(line)
				if !ok {
					continue
				}
				onFrame(frame)
				if frame.Done {
					// Terminal frame: stop delivery even if more
					// bytes are buffered behind it.
					return nil
				}
			}
		}

		if err == io.EOF {
			if line := dec.Flush(); len(line) > 0 {
				if frame, ok := parseFrame(line); ok {
					onFrame(frame)
				}
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStreamClosed, err)
		}
	}
}
