// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package directory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jeranaias/clarion/internal/model"
)

// fakeLister serves a canned list and counts fetches.
type fakeLister struct {
	mu    sync.Mutex
	list  []model.Conversation
	err   error
	calls int32
}

func (f *fakeLister) ListConversations(_ context.Context) ([]model.Conversation, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Conversation, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeLister) set(list []model.Conversation, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list, f.err = list, err
}

func TestEnsureLoadedFetchesOnce(t *testing.T) {
	src := &fakeLister{list: []model.Conversation{{ID: "a"}, {ID: "b"}}}
	d := New(src)

	for i := 0; i < 5; i++ {
		d.EnsureLoaded(context.Background())
	}

	if got := atomic.LoadInt32(&src.calls); got != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", got)
	}
	if got := d.Conversations(); len(got) != 2 {
		t.Errorf("expected 2 conversations, got %d", len(got))
	}
}

func TestEnsureLoadedConcurrent(t *testing.T) {
	src := &fakeLister{list: []model.Conversation{{ID: "a"}}}
	d := New(src)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.EnsureLoaded(context.Background())
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&src.calls); got != 1 {
		t.Errorf("expected exactly 1 fetch under concurrency, got %d", got)
	}
}

func TestEnsureLoadedRetriesAfterFailure(t *testing.T) {
	src := &fakeLister{err: errors.New("listing unavailable")}
	d := New(src)

	d.EnsureLoaded(context.Background())
	if got := d.Conversations(); len(got) != 0 {
		t.Fatalf("expected empty list after failure, got %d", len(got))
	}

	src.set([]model.Conversation{{ID: "a"}}, nil)
	d.EnsureLoaded(context.Background())

	if got := d.Conversations(); len(got) != 1 {
		t.Errorf("expected retry to populate the list, got %d entries", len(got))
	}
	if got := atomic.LoadInt32(&src.calls); got != 2 {
		t.Errorf("expected 2 fetches (failure then retry), got %d", got)
	}
}

func TestRefreshPicksUpNewConversation(t *testing.T) {
	src := &fakeLister{list: []model.Conversation{{ID: "old"}}}
	d := New(src)
	d.EnsureLoaded(context.Background())

	// A send created a new conversation server-side.
	src.set([]model.Conversation{{ID: "new"}, {ID: "old"}}, nil)
	d.Refresh(context.Background())

	got := d.Conversations()
	if len(got) != 2 || got[0].ID != "new" {
		t.Errorf("refresh did not pick up the new conversation: %+v", got)
	}
}

func TestFailedRefreshKeepsPreviousList(t *testing.T) {
	src := &fakeLister{list: []model.Conversation{{ID: "a"}, {ID: "b"}}}
	d := New(src)
	d.EnsureLoaded(context.Background())

	src.set(nil, errors.New("temporarily down"))
	d.Refresh(context.Background())

	if got := d.Conversations(); len(got) != 2 {
		t.Errorf("failed refresh wiped the sidebar: %d entries", len(got))
	}
}

func TestConversationsReturnsSnapshot(t *testing.T) {
	src := &fakeLister{list: []model.Conversation{{ID: "a", Title: "First"}}}
	d := New(src)
	d.EnsureLoaded(context.Background())

	snap := d.Conversations()
	snap[0].Title = "mutated"

	if got := d.Conversations()[0].Title; got != "First" {
		t.Errorf("caller mutation leaked into the directory: %q", got)
	}
}

func TestTitleOf(t *testing.T) {
	src := &fakeLister{list: []model.Conversation{
		{ID: "abcdef1234567890", Title: "Release planning"},
		{ID: "fedcba0987654321"},
	}}
	d := New(src)
	d.EnsureLoaded(context.Background())

	if got := d.TitleOf("abcdef1234567890"); got != "Release planning" {
		t.Errorf("TitleOf known = %q", got)
	}
	if got := d.TitleOf("fedcba0987654321"); got != "Chat fedcba09" {
		t.Errorf("TitleOf untitled = %q", got)
	}
	if got := d.TitleOf("0011223344"); got != "Chat 00112233" {
		t.Errorf("TitleOf unknown = %q", got)
	}
}
