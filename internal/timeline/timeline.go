// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package timeline maintains the ordered per-conversation message state.
//
// The timeline merges optimistic local entries with streamed server
// content. A send appends a sealed user message plus an open assistant
// placeholder; stream frames fold into the placeholder until the turn
// seals. Exactly one placeholder may be open at a time, and the
// sequence is append-only while a turn is in flight.
package timeline

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jeranaias/clarion/internal/api"
	"github.com/jeranaias/clarion/internal/model"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the per-conversation-selection lifecycle state.
type State int

const (
	// StateEmpty means no conversation is selected.
	StateEmpty State = iota
	// StateLoading means history for the selection is being fetched.
	StateLoading
	// StateReady means the timeline is idle and accepting sends.
	StateReady
	// StateSending means a turn is in flight.
	StateSending
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	default:
		return "unknown"
	}
}

// ErrTurnInFlight is returned by StartTurn while a placeholder is open.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// HistorySource fetches persisted conversation history.
type HistorySource interface {
	History(ctx context.Context, conversationID string) ([]api.HistoryMessage, error)
}

// =============================================================================
// TIMELINE
// =============================================================================

// Timeline is the ordered message sequence for the active conversation.
//
// Thread-safety: all mutation goes through the mutex. Placeholder
// appends are serialized per placeholder by construction (single lock),
// so fragments are applied in call order without loss.
type Timeline struct {
	mu             sync.Mutex
	conversationID string
	state          State
	messages       []model.Message
	openID         string
	lastErr        error
}

// New creates an empty timeline.
func New() *Timeline {
	return &Timeline{state: StateEmpty}
}

// ConversationID returns the identifier of the active conversation.
// Callers starting a turn capture this value and compare it at
// completion time; the current selection at completion is not
// authoritative for an older turn.
func (t *Timeline) ConversationID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversationID
}

// State returns the current lifecycle state.
func (t *Timeline) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastError returns the error recorded by the last failed turn, if the
// timeline has not successfully progressed since.
func (t *Timeline) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Messages returns a snapshot of the ordered message sequence.
func (t *Timeline) Messages() []model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

// StartTurn appends a sealed user message and an open assistant
// placeholder, and returns the placeholder's local identifier. The
// placeholder belongs to the conversation active right now; frames
// arriving after the selection changes are dropped, not reassigned.
func (t *Timeline) StartTurn(userText string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.openID != "" {
		return "", ErrTurnInFlight
	}

	user := model.NewUserMessage(userText)
	placeholder := model.NewAssistantPlaceholder()
	t.messages = append(t.messages, user, placeholder)
	t.openID = placeholder.ID
	t.state = StateSending
	t.lastErr = nil
	return placeholder.ID, nil
}

// AppendToPlaceholder concatenates text onto the open placeholder.
// Fragments are applied in call order; a fragment for a sealed or
// superseded placeholder is dropped with a warning.
func (t *Timeline) AppendToPlaceholder(placeholderID, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if placeholderID == "" || placeholderID != t.openID {
		log.Printf("timeline: dropping late fragment for placeholder %s", placeholderID)
		return
	}
	for i := range t.messages {
		if t.messages[i].ID == placeholderID {
			t.messages[i].Content += text
			return
		}
	}
}

// Seal closes the placeholder on success. No further appends are
// accepted for it. Sealing a placeholder that is no longer open (the
// selection changed, or it was already sealed) is a no-op.
func (t *Timeline) Seal(placeholderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if placeholderID != t.openID {
		return
	}
	t.openID = ""
	t.state = StateReady
}

// Discard removes the placeholder after a failed turn, leaving the
// preceding user message intact so the user can retry without
// re-typing. The failure is recorded for the UI to surface.
func (t *Timeline) Discard(placeholderID string, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if placeholderID == t.openID {
		t.openID = ""
		t.state = StateReady
		t.lastErr = cause
	}
	for i := range t.messages {
		if t.messages[i].ID == placeholderID {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return
		}
	}
}

// AdoptConversation records the server-assigned conversation identifier
// for a timeline that started without one (a fresh chat's first turn
// creates the conversation server-side). Adoption applies only while
// the completing turn still owns the open placeholder, so it must be
// called before Seal. A turn orphaned by navigation or a fresh chat
// cannot re-tag whatever the user moved to, and an existing selection
// is authoritative.
func (t *Timeline) AdoptConversation(placeholderID, conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if placeholderID == "" || placeholderID != t.openID {
		return
	}
	if t.conversationID != "" || conversationID == "" {
		return
	}
	t.conversationID = conversationID
}

// =============================================================================
// CONVERSATION LOADING
// =============================================================================

// Clear empties the timeline and drops the active selection.
func (t *Timeline) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conversationID = ""
	t.messages = nil
	t.openID = ""
	t.state = StateEmpty
	t.lastErr = nil
}

// LoadConversation replaces the entire timeline with the persisted
// history of the given conversation, assigning fresh local identifiers.
//
// The previous content is cleared before the fetch: a conversation
// switch must never show cross-conversation messages, even momentarily.
// An empty or failed fetch therefore yields an empty timeline.
func (t *Timeline) LoadConversation(ctx context.Context, src HistorySource, conversationID string) error {
	t.mu.Lock()
	t.conversationID = conversationID
	t.messages = nil
	t.openID = "" // any in-flight turn for the old selection is orphaned
	t.state = StateLoading
	t.lastErr = nil
	t.mu.Unlock()

	history, err := src.History(ctx, conversationID)

	t.mu.Lock()
	defer t.mu.Unlock()

	// The selection may have moved on while the fetch was in flight;
	// never apply a stale result to the new selection.
	if t.conversationID != conversationID {
		return nil
	}

	if err != nil {
		t.state = StateReady
		return err
	}

	msgs := make([]model.Message, 0, len(history))
	for _, h := range history {
		msgs = append(msgs, model.NewMessage(model.Role(h.Role), h.Content))
	}
	t.messages = msgs
	t.state = StateReady
	return nil
}
