// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines all Bubble Tea message types used by the chat
// interface. Messages are organized into the following categories:
//   - Streaming: stream completion and render ticks
//   - Conversation: directory and history loading
//   - Errors: error display
//
// All message types follow Bubble Tea conventions and are immutable.
package chat

import "time"

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamTickMsg drives periodic flushes of buffered stream content into
// the timeline while a turn is in flight.
type StreamTickMsg struct {
	Time time.Time
}

// StreamDoneMsg signals that the in-flight turn finished.
type StreamDoneMsg struct {
	// PlaceholderID identifies the assistant placeholder the turn owns.
	PlaceholderID string
	// ConversationID is the server-assigned conversation, captured from
	// the first stream frame that carried one.
	ConversationID string
	Err            error
}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// DirectoryLoadedMsg signals the sidebar list was (re)fetched.
type DirectoryLoadedMsg struct{}

// HistoryLoadedMsg signals a conversation's history finished loading.
type HistoryLoadedMsg struct {
	ConversationID string
	Err            error
}

// =============================================================================
// UI STATE
// =============================================================================

// focusArea identifies which pane receives key input.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)
