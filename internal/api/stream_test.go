// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/clarion/internal/credstore"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	creds := credstore.New(t.TempDir(), "https://auth.example.com")
	creds.Publish("test-token", baseURL)
	// Generous pacing so tests never stall on the limiter.
	return NewClient(baseURL, creds).WithRateLimit(1000, 1000)
}

// collectFrames decodes wire bytes delivered in the given chunk sizes.
func collectFrames(t *testing.T, wire []byte, chunkSize int) []Frame {
	t.Helper()
	var frames []Frame
	err := decodeFrames(context.Background(), &chunkedReader{data: wire, size: chunkSize}, func(f Frame) {
		frames = append(frames, f)
	})
	if err != nil {
		t.Fatalf("decodeFrames failed: %v", err)
	}
	return frames
}

// chunkedReader delivers its data in fixed-size chunks to simulate an
// arbitrarily-chunked transport.
type chunkedReader struct {
	data []byte
	size int
	pos  int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	if r.pos+n > len(r.data) {
		n = len(r.data) - r.pos
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

// =============================================================================
// CHUNKING INVARIANCE
// =============================================================================

// TestDecodeFrames_ChunkingInvariance verifies the core protocol
// property: for every byte-chunking of a valid frame sequence,
// including splits mid-line and mid-multi-byte character, the delivered
// frames are identical to decoding the whole response at once.
func TestDecodeFrames_ChunkingInvariance(t *testing.T) {
	wire := []byte("" +
		`data: {"content":"héllo ","session_id":"abc"}` + "\n" +
		`data: {"content":"wörld 日本語","session_id":"abc"}` + "\n" +
		`data: {"content":"!","session_id":"abc","done":true}` + "\n")

	want := collectFrames(t, wire, len(wire))
	if len(want) != 3 {
		t.Fatalf("whole-buffer decode yielded %d frames, want 3", len(want))
	}

	for chunkSize := 1; chunkSize <= len(wire); chunkSize++ {
		got := collectFrames(t, wire, chunkSize)
		if len(got) != len(want) {
			t.Fatalf("chunk size %d: got %d frames, want %d", chunkSize, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("chunk size %d: frame %d = %+v, want %+v", chunkSize, i, got[i], want[i])
			}
		}
	}
}

func TestDecodeFrames_OrderAndConcatenation(t *testing.T) {
	fragments := []string{"The", " qu", "ick", " brown", " fox"}
	var wire bytes.Buffer
	for _, frag := range fragments {
		fmt.Fprintf(&wire, "data: {\"content\":%q,\"session_id\":\"s\"}\n", frag)
	}

	var rebuilt strings.Builder
	for _, f := range collectFrames(t, wire.Bytes(), 3) {
		rebuilt.WriteString(f.Content)
	}
	if rebuilt.String() != "The quick brown fox" {
		t.Errorf("reassembled content = %q", rebuilt.String())
	}
}

// =============================================================================
// TERMINATION
// =============================================================================

func TestDecodeFrames_DoneHaltsDelivery(t *testing.T) {
	// More frames are buffered after the done frame; they must not be
	// delivered.
	wire := []byte("" +
		`data: {"content":"a","session_id":"s"}` + "\n" +
		`data: {"content":"b","session_id":"s","done":true}` + "\n" +
		`data: {"content":"NEVER","session_id":"s"}` + "\n")

	frames := collectFrames(t, wire, len(wire))
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2 (delivery must halt at done)", len(frames))
	}
	if !frames[1].Done {
		t.Error("second frame should carry done")
	}
}

func TestDecodeFrames_TrailingFrameWithoutNewline(t *testing.T) {
	wire := []byte("" +
		`data: {"content":"a","session_id":"s"}` + "\n" +
		`data: {"content":"b","session_id":"s","done":true}`) // no trailing newline

	frames := collectFrames(t, wire, 7)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2 (final partial line must be flushed)", len(frames))
	}
	if frames[1].Content != "b" || !frames[1].Done {
		t.Errorf("flushed frame = %+v", frames[1])
	}
}

func TestDecodeFrames_EOFWithoutDoneIsTermination(t *testing.T) {
	wire := []byte(`data: {"content":"only","session_id":"s"}` + "\n")
	frames := collectFrames(t, wire, len(wire))
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
}

// =============================================================================
// MALFORMED INPUT
// =============================================================================

func TestDecodeFrames_MalformedFrameSkipped(t *testing.T) {
	wire := []byte("" +
		`data: {"content":"good","session_id":"s"}` + "\n" +
		`data: {not json at all` + "\n" +
		": keep-alive comment\n" +
		"\n" +
		`data: {"content":" still going","session_id":"s","done":true}` + "\n")

	frames := collectFrames(t, wire, 5)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2 (malformed frames must be skipped, not abort)", len(frames))
	}
	if frames[0].Content != "good" || frames[1].Content != " still going" {
		t.Errorf("frames = %+v", frames)
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantOK  bool
		content string
	}{
		{"valid frame", `data: {"content":"hi","session_id":"s"}`, true, "hi"},
		{"crlf line ending", `data: {"content":"hi","session_id":"s"}` + "\r", true, "hi"},
		{"no prefix", `{"content":"hi"}`, false, ""},
		{"empty payload", "data: ", false, ""},
		{"whitespace payload", "data:    ", false, ""},
		{"comment line", ": ping", false, ""},
		{"malformed json", "data: {oops", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, ok := parseFrame([]byte(tt.line))
			if ok != tt.wantOK {
				t.Fatalf("parseFrame ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && frame.Content != tt.content {
				t.Errorf("content = %q, want %q", frame.Content, tt.content)
			}
		})
	}
}

// =============================================================================
// READ FAILURES
// =============================================================================

type failingReader struct {
	data []byte
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		n := copy(p, r.data)
		return n, nil
	}
	return 0, errors.New("connection reset")
}

func TestDecodeFrames_MidStreamFailurePropagates(t *testing.T) {
	var frames []Frame
	r := &failingReader{data: []byte(`data: {"content":"partial","session_id":"s"}` + "\n")}
	err := decodeFrames(context.Background(), r, func(f Frame) { frames = append(frames, f) })

	if !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("err = %v, want ErrStreamClosed", err)
	}
	if len(frames) != 1 {
		t.Errorf("frames before failure = %d, want 1", len(frames))
	}
}

func TestDecodeFrames_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := decodeFrames(ctx, strings.NewReader("data: {}\n"), func(Frame) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// =============================================================================
// END-TO-END SEND
// =============================================================================

func TestSendMessage_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/stream" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("response writer must support flushing")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		io.WriteString(w, `data: {"content":"Hi","session_id":"abc"}`+"\n")
		flusher.Flush()
		io.WriteString(w, `data: {"content":" there","session_id":"abc","done":true}`+"\n")
		flusher.Flush()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var calls int
	var content strings.Builder
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.SendMessage(ctx, SendRequest{Message: "hello", ConversationID: "abc"}, func(f Frame) {
		calls++
		content.WriteString(f.Content)
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("onFrame calls = %d, want 2", calls)
	}
	if content.String() != "Hi there" {
		t.Errorf("final content = %q, want %q", content.String(), "Hi there")
	}
}

func TestSendMessage_NonOKStatusIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"message may not be empty"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.SendMessage(context.Background(), SendRequest{ConversationID: "abc"}, func(Frame) {
		t.Error("onFrame must not be called for an error response")
	})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "message may not be empty" {
		t.Errorf("extracted message = %q", apiErr.Message)
	}
}

func TestSendMessage_UnauthorizedSurfacedDistinctly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"token expired"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.SendMessage(context.Background(), SendRequest{Message: "hi", ConversationID: "abc"}, func(Frame) {})
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("err = %v, want ErrAuthRequired", err)
	}
}
