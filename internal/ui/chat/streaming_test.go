// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestStreamingBufferBatchThreshold(t *testing.T) {
	sb := NewStreamingBuffer()

	// Below the batch threshold and inside the time window: no flush.
	sb.Write("a")
	if _, ok := sb.Flush(); ok {
		t.Error("flushed below batch threshold immediately after creation")
	}

	// Reaching the batch threshold flushes regardless of elapsed time.
	for i := 0; i < 14; i++ {
		sb.Write("b")
	}
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("expected flush at batch threshold")
	}
	if content != "a"+strings.Repeat("b", 14) {
		t.Errorf("unexpected content %q", content)
	}
}

func TestStreamingBufferTimeThreshold(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("hello")

	// Wait past the minimum flush interval (33ms at 30fps).
	time.Sleep(50 * time.Millisecond)

	content, ok := sb.Flush()
	if !ok {
		t.Fatal("expected time-based flush")
	}
	if content != "hello" {
		t.Errorf("content = %q", content)
	}
}

func TestStreamingBufferEmptyNeverFlushes(t *testing.T) {
	sb := NewStreamingBuffer()
	time.Sleep(50 * time.Millisecond)
	if _, ok := sb.Flush(); ok {
		t.Error("empty buffer flushed")
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("empty buffer force-flushed")
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("partial")

	content, ok := sb.ForceFlush()
	if !ok || content != "partial" {
		t.Fatalf("ForceFlush = %q, %v", content, ok)
	}
	if sb.Pending() != 0 {
		t.Errorf("pending after force flush = %d", sb.Pending())
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("discard me")
	sb.Reset()

	if sb.Pending() != 0 {
		t.Errorf("pending after reset = %d", sb.Pending())
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("content survived reset")
	}
}

func TestStreamingBufferOrderPreserved(t *testing.T) {
	sb := NewStreamingBuffer()

	var want strings.Builder
	for i := 0; i < 100; i++ {
		f := fmt.Sprintf("[%d]", i)
		want.WriteString(f)
		sb.Write(f)
	}

	var got strings.Builder
	for {
		content, ok := sb.ForceFlush()
		if !ok {
			break
		}
		got.WriteString(content)
	}
	if got.String() != want.String() {
		t.Error("fragments reordered or lost across flushes")
	}
}

func TestStreamingBufferConcurrentWrites(t *testing.T) {
	sb := NewStreamingBuffer()

	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				sb.Write("x")
			}
		}()
	}
	wg.Wait()

	var total int
	for {
		content, ok := sb.ForceFlush()
		if !ok {
			break
		}
		total += len(content)
	}
	if total != writers*perWriter {
		t.Errorf("lost fragments under concurrency: got %d bytes, want %d", total, writers*perWriter)
	}
}

func TestStreamingBufferMultibyteFragments(t *testing.T) {
	sb := NewStreamingBuffer()
	fragments := []string{"héllo ", "wörld ", "日本語"}
	for _, f := range fragments {
		sb.Write(f)
	}

	content, ok := sb.ForceFlush()
	if !ok {
		t.Fatal("expected content")
	}
	if content != "héllo wörld 日本語" {
		t.Errorf("multibyte content mangled: %q", content)
	}
}
