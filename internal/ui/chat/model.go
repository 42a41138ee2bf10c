// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements the main Bubble Tea model: a conversation
// sidebar, a scrollable timeline viewport, and a multi-line input. One
// turn may be in flight at a time; stream fragments are batched through
// the StreamingBuffer and folded into the timeline on render ticks.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/clarion/internal/api"
	"github.com/jeranaias/clarion/internal/config"
	"github.com/jeranaias/clarion/internal/directory"
	"github.com/jeranaias/clarion/internal/timeline"
	"github.com/jeranaias/clarion/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the top-level Bubble Tea model for the chat TUI.
type Model struct {
	cfg    *config.Config
	client *api.Client
	dir    *directory.Directory
	tl     *timeline.Timeline

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	renderer *markdownRenderer

	width  int
	height int
	ready  bool
	focus  focusArea

	// Sidebar selection index; -1 means a fresh unsaved chat.
	selected int

	streaming     bool
	streamBuf     *StreamingBuffer
	placeholderID string
	cancelStream  context.CancelFunc

	err error
}

// New creates the chat TUI model.
func New(cfg *config.Config, client *api.Client) Model {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		cfg:       cfg,
		client:    client,
		dir:       directory.New(client),
		tl:        timeline.New(),
		input:     ta,
		spin:      sp,
		renderer:  newMarkdownRenderer(cfg.UI.Markdown, cfg.UI.Theme),
		selected:  -1,
		streamBuf: NewStreamingBuffer(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadDirectoryCmd(), m.spin.Tick, textarea.Blink)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadDirectoryCmd() tea.Cmd {
	dir := m.dir
	return func() tea.Msg {
		dir.EnsureLoaded(context.Background())
		return DirectoryLoadedMsg{}
	}
}

func (m Model) refreshDirectoryCmd() tea.Cmd {
	dir := m.dir
	return func() tea.Msg {
		dir.Refresh(context.Background())
		return DirectoryLoadedMsg{}
	}
}

func (m Model) loadHistoryCmd(conversationID string) tea.Cmd {
	tl, client := m.tl, m.client
	return func() tea.Msg {
		err := tl.LoadConversation(context.Background(), client, conversationID)
		return HistoryLoadedMsg{ConversationID: conversationID, Err: err}
	}
}

// sendCmd streams one turn. Fragments go into the turn's own buffer
// for the tick loop to fold into the placeholder; the command returns
// only when the stream ends. The buffer belongs to this turn alone: a
// turn orphaned by a conversation switch keeps writing into it, but
// nothing reads it anymore.
func (m *Model) sendCmd(text, placeholderID string, buf *StreamingBuffer) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelStream = cancel

	client := m.client
	conversationID := m.tl.ConversationID()

	return func() tea.Msg {
		defer cancel()

		// The conversation may be created by this send; the first frame
		// that names one wins.
		var mu sync.Mutex
		assigned := conversationID

		err := client.SendMessage(ctx, api.SendRequest{
			Message:        text,
			ConversationID: conversationID,
		}, func(f api.Frame) {
			if f.Content != "" {
				buf.Write(f.Content)
			}
			if f.SessionID != "" {
				mu.Lock()
				assigned = f.SessionID
				mu.Unlock()
			}
		})

		mu.Lock()
		defer mu.Unlock()
		return StreamDoneMsg{
			PlaceholderID:  placeholderID,
			ConversationID: assigned,
			Err:            err,
		}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.ready = true
		m.syncViewport()

	case tea.KeyMsg:
		model, cmd, handled := m.handleKey(msg)
		if handled {
			return model, cmd
		}
		m = model

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)

	case StreamTickMsg:
		if m.streaming {
			if chunk, ok := m.streamBuf.Flush(); ok {
				m.tl.AppendToPlaceholder(m.placeholderID, chunk)
				m.syncViewport()
			}
			cmds = append(cmds, streamTickCmd())
		}

	case StreamDoneMsg:
		cmds = append(cmds, m.finishStream(msg)...)

	case DirectoryLoadedMsg:
		m.clampSelection()

	case HistoryLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
		}
		m.syncViewport()
	}

	// Relay remaining messages to the focused input.
	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes global and pane-specific key bindings. The third
// return reports whether the key was consumed.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		if m.cancelStream != nil {
			m.cancelStream()
		}
		return m, tea.Quit, true

	case "esc":
		if m.streaming && m.cancelStream != nil {
			// Cancel the in-flight turn; completion arrives as a
			// StreamDoneMsg with a context error.
			m.cancelStream()
			return m, nil, true
		}

	case "tab":
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil, true

	case "ctrl+n":
		// Fresh chat: empty timeline, no selection. The first send
		// creates the conversation server-side.
		m.retireTurn()
		m.tl.Clear()
		m.selected = -1
		m.err = nil
		m.syncViewport()
		return m, nil, true

	case "enter":
		if m.focus == focusSidebar {
			return m.selectConversation()
		}
		if m.focus == focusInput {
			model, cmd := m.submit()
			return model, cmd, true
		}

	case "up", "k":
		if m.focus == focusSidebar {
			if m.selected > 0 {
				m.selected--
			}
			return m, nil, true
		}

	case "down", "j":
		if m.focus == focusSidebar {
			if m.selected < len(m.dir.Conversations())-1 {
				m.selected++
			}
			return m, nil, true
		}
	}
	return m, nil, false
}

// selectConversation activates the highlighted sidebar entry.
func (m Model) selectConversation() (Model, tea.Cmd, bool) {
	list := m.dir.Conversations()
	if m.selected < 0 || m.selected >= len(list) {
		return m, nil, true
	}
	conv := list[m.selected]
	if conv.ID == m.tl.ConversationID() {
		return m, nil, true
	}

	// Switching selections orphans any in-flight turn; its completion
	// will be discarded by the timeline.
	m.retireTurn()
	m.err = nil
	m.focus = focusInput
	m.input.Focus()
	m.syncViewport()
	return m, m.loadHistoryCmd(conv.ID), true
}

// submit starts a turn from the input content.
func (m Model) submit() (Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.streaming {
		return m, nil
	}

	placeholderID, err := m.tl.StartTurn(text)
	if err != nil {
		return m, nil
	}

	m.input.Reset()
	m.err = nil
	m.streaming = true
	m.placeholderID = placeholderID
	// Fresh buffer per turn: an orphaned predecessor must not share a
	// sink with this turn's fragments.
	m.streamBuf = NewStreamingBuffer()
	m.syncViewport()

	return m, tea.Batch(m.sendCmd(text, placeholderID, m.streamBuf), streamTickCmd())
}

// retireTurn orphans the in-flight turn without canceling it. The turn
// keeps streaming into its own buffer, which nothing reads anymore, and
// its completion is ignored because the placeholder is no longer
// current.
func (m *Model) retireTurn() {
	m.streaming = false
	m.placeholderID = ""
	m.cancelStream = nil
	m.streamBuf = NewStreamingBuffer()
}

// finishStream settles the timeline when a turn completes. A turn
// orphaned by a conversation switch or a fresh chat is ignored: its
// placeholder is gone, its buffer was retired with it, and the current
// turn's state must not be disturbed.
func (m *Model) finishStream(msg StreamDoneMsg) []tea.Cmd {
	if msg.PlaceholderID == "" || msg.PlaceholderID != m.placeholderID {
		return nil
	}

	m.streaming = false
	m.cancelStream = nil

	if chunk, ok := m.streamBuf.ForceFlush(); ok {
		m.tl.AppendToPlaceholder(msg.PlaceholderID, chunk)
	}

	var cmds []tea.Cmd
	if msg.Err != nil {
		m.tl.Discard(msg.PlaceholderID, msg.Err)
		m.err = msg.Err
	} else {
		// Adoption is gated on the placeholder still being open, so it
		// must precede the seal.
		m.tl.AdoptConversation(msg.PlaceholderID, msg.ConversationID)
		m.tl.Seal(msg.PlaceholderID)
		// The send may have created the conversation; refetch the list
		// so it appears without a restart.
		cmds = append(cmds, m.refreshDirectoryCmd())
	}
	m.syncViewport()
	return cmds
}

// clampSelection keeps the sidebar cursor within the refreshed list.
func (m *Model) clampSelection() {
	n := len(m.dir.Conversations())
	if m.selected >= n {
		m.selected = n - 1
	}
	// Keep the active conversation highlighted across refreshes.
	active := m.tl.ConversationID()
	if active == "" {
		return
	}
	for i, c := range m.dir.Conversations() {
		if c.ID == active {
			m.selected = i
			return
		}
	}
}

// layout recomputes component sizes after a resize.
func (m *Model) layout() {
	sidebarW := m.cfg.UI.SidebarWidth
	if sidebarW >= m.width/2 {
		sidebarW = m.width / 3
	}
	mainW := m.width - sidebarW - 2

	inputH := m.input.Height()
	statusH := 1
	m.viewport = viewport.New(mainW, m.height-inputH-statusH-1)
	m.input.SetWidth(mainW)
	m.renderer.setWidth(mainW)
}
