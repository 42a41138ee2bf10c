// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file renders the sidebar, timeline viewport, input, and status
// bar. Sealed assistant messages render as markdown through glamour;
// the streaming placeholder renders raw to avoid re-parsing on every
// flush.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/clarion/internal/model"
	"github.com/jeranaias/clarion/internal/ui/styles"
	"github.com/jeranaias/clarion/internal/util"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer wraps glamour with a raw-text fallback. Rendering is
// rebuilt on resize because word wrap is fixed at construction.
type markdownRenderer struct {
	enabled  bool
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer(enabled bool, theme string) *markdownRenderer {
	return &markdownRenderer{
		enabled: enabled,
		style:   styles.GlamourStyle(theme),
		width:   80,
	}
}

func (r *markdownRenderer) setWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && r.renderer != nil {
		return
	}
	r.width = width
	r.renderer = nil
}

// render converts markdown to styled terminal output, falling back to
// the raw text on any failure.
func (r *markdownRenderer) render(content string) string {
	if !r.enabled {
		return content
	}
	if r.renderer == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return content
		}
		r.renderer = tr
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	sidebar := m.renderSidebar()
	main := lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		m.input.View(),
		m.renderStatus(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
}

// renderSidebar renders the conversation list pane.
func (m Model) renderSidebar() string {
	width := m.cfg.UI.SidebarWidth
	if width >= m.width/2 {
		width = m.width / 3
	}
	innerW := width - 2

	var b strings.Builder
	b.WriteString(styles.SidebarTitle.Render("Conversations"))
	b.WriteString("\n\n")

	list := m.dir.Conversations()
	if len(list) == 0 {
		b.WriteString(styles.Hint.Render("No conversations yet"))
	}
	active := m.tl.ConversationID()
	for i, conv := range list {
		title := util.TruncateWidth(util.CollapseWhitespace(conv.DisplayTitle()), innerW)
		switch {
		case i == m.selected && m.focus == focusSidebar:
			b.WriteString(styles.SidebarSelected.Render("> " + title))
		case conv.ID == active:
			b.WriteString(styles.SidebarSelected.Render("  " + title))
		default:
			b.WriteString(styles.SidebarItem.Render("  " + title))
		}
		b.WriteString("\n")
	}

	return styles.Sidebar.
		Width(width).
		Height(m.height - 1).
		Render(b.String())
}

// renderStatus renders the bottom status line.
func (m Model) renderStatus() string {
	if m.err != nil {
		return styles.ErrorText.Render(fmt.Sprintf("✗ %v", m.err)) +
			styles.Hint.Render("  (message kept, press enter to retry)")
	}
	if m.streaming {
		return m.spin.View() + styles.StatusBar.Render(" assistant is responding... (esc to cancel)")
	}
	return styles.StatusBar.Render("enter: send • tab: conversations • ctrl+n: new chat • ctrl+c: quit")
}

// syncViewport rebuilds the viewport content from the timeline and
// pins the view to the bottom.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTimeline())
	m.viewport.GotoBottom()
}

// renderTimeline renders all timeline messages in order.
func (m *Model) renderTimeline() string {
	msgs := m.tl.Messages()
	if len(msgs) == 0 {
		return styles.Hint.Render("Start a new conversation by typing below.")
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

// renderMessage renders one message with its speaker label.
func (m *Model) renderMessage(msg model.Message) string {
	var label string
	switch msg.Role {
	case model.RoleUser:
		label = styles.UserLabel.Render(msg.Role.DisplayName())
	default:
		label = styles.AssistantLabel.Render(msg.Role.DisplayName())
	}

	content := msg.Content
	if msg.Role == model.RoleAssistant {
		if m.streaming && msg.ID == m.placeholderID {
			// Live placeholder stays raw; markdown re-parsing on every
			// flush causes visible flicker.
			if content == "" {
				content = styles.Hint.Render("...")
			}
		} else {
			content = m.renderer.render(content)
		}
	}
	return label + "\n" + content
}
