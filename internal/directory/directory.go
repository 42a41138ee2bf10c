// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package directory maintains the sidebar's list of known conversations.
//
// The list is fetched from the server once on startup and refreshed
// after each successfully sent message, so a conversation created by
// the first send of a session appears without a restart. A failed
// refresh keeps the previous list on screen rather than blanking it.
package directory

import (
	"context"
	"log"
	"sync"

	"github.com/jeranaias/clarion/internal/fetchonce"
	"github.com/jeranaias/clarion/internal/model"
)

// Lister fetches the conversation list from the server.
type Lister interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
}

// Directory is the cached conversation list.
//
// Thread-safety: snapshot reads and refresh writes are guarded by the
// mutex; the initial load is additionally deduplicated by the guard so
// concurrent view activations trigger at most one fetch.
type Directory struct {
	mu    sync.RWMutex
	src   Lister
	guard fetchonce.Guard
	list  []model.Conversation
}

// New creates a directory backed by the given source.
func New(src Lister) *Directory {
	return &Directory{src: src}
}

// EnsureLoaded performs the initial fetch exactly once per directory
// lifetime, no matter how many callers race into it. Later callers see
// whatever the winning fetch produced (possibly still empty if it is in
// flight or failed).
func (d *Directory) EnsureLoaded(ctx context.Context) {
	if !d.guard.Begin("initial-load") {
		return
	}
	if err := d.refresh(ctx); err != nil {
		// Allow a retry on the next activation rather than pinning an
		// empty sidebar for the whole session.
		d.guard.Forget("initial-load")
	}
}

// Refresh re-fetches the list unconditionally. Called after a message
// is sent successfully, since the send may have created the
// conversation server-side.
func (d *Directory) Refresh(ctx context.Context) {
	_ = d.refresh(ctx)
}

func (d *Directory) refresh(ctx context.Context) error {
	list, err := d.src.ListConversations(ctx)
	if err != nil {
		// Keep showing the previous list; a transient listing failure
		// must not wipe the sidebar.
		log.Printf("directory: refresh failed: %v", err)
		return err
	}

	d.mu.Lock()
	d.list = list
	d.mu.Unlock()
	return nil
}

// Conversations returns a snapshot of the current list in server order.
func (d *Directory) Conversations() []model.Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Conversation, len(d.list))
	copy(out, d.list)
	return out
}

// TitleOf returns the display title for a conversation ID, falling back
// to the generic short-ID form when the ID is not in the directory.
func (d *Directory) TitleOf(conversationID string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.list {
		if c.ID == conversationID {
			return c.DisplayTitle()
		}
	}
	return (model.Conversation{ID: conversationID}).DisplayTitle()
}
