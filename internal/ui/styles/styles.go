// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the clarion TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// GlamourStyle maps the configured theme to a glamour style name,
// detecting the terminal background for "auto".
func GlamourStyle(theme string) string {
	switch theme {
	case "dark", "light":
		return theme
	default:
		if termenv.HasDarkBackground() {
			return "dark"
		}
		return "light"
	}
}

// =============================================================================
// COLORS
// =============================================================================

// Purple - Primary accent, assistant messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, user highlights, prompts
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Errors, danger states
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextSecondary - Labels, less prominent text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// TextMuted - Hints, timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// UserLabel renders the "You" speaker label.
	UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

	// AssistantLabel renders the "Assistant" speaker label.
	AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)

	// Sidebar frames the conversation list.
	Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)

	// SidebarTitle heads the conversation list.
	SidebarTitle = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true)

	// SidebarItem renders an unselected conversation entry.
	SidebarItem = lipgloss.NewStyle().Foreground(TextSecondary)

	// SidebarSelected renders the active conversation entry.
	SidebarSelected = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

	// StatusBar renders the bottom status line.
	StatusBar = lipgloss.NewStyle().Foreground(TextMuted)

	// ErrorText renders inline error notices.
	ErrorText = lipgloss.NewStyle().Foreground(Rose)

	// Hint renders key hints and placeholders.
	Hint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	// Spinner colors the in-flight indicator.
	Spinner = lipgloss.NewStyle().Foreground(Purple)
)
