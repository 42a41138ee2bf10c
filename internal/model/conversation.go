// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// DefaultTitle is shown for conversations with no title and no usable ID.
const DefaultTitle = "New conversation"

// Conversation describes one server-side conversation thread as listed
// by the directory. The ID is the stable key; everything else is a
// display hint and may be absent.
type Conversation struct {
	ID        string    `json:"session_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DisplayTitle returns the stored title if present, else a deterministic
// title derived from the identifier, else DefaultTitle. Never fails.
func (c Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	if c.ID != "" {
		return "Chat " + shortID(c.ID)
	}
	return DefaultTitle
}

// shortID returns the first eight characters of an identifier. Rune
// based so multi-byte identifiers are never cut mid-character.
func shortID(id string) string {
	runes := []rune(id)
	if len(runes) > 8 {
		return string(runes[:8])
	}
	return id
}
