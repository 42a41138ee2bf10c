// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "testing"

func TestDisplayTitle(t *testing.T) {
	tests := []struct {
		name string
		conv Conversation
		want string
	}{
		{"stored title wins", Conversation{ID: "abcdef1234", Title: "Trip planning"}, "Trip planning"},
		{"derived from id", Conversation{ID: "abcdef1234567890"}, "Chat abcdef12"},
		{"short id kept whole", Conversation{ID: "abc"}, "Chat abc"},
		{"empty conversation", Conversation{}, DefaultTitle},
		{"multibyte id", Conversation{ID: "日本語のテキストです長い"}, "Chat 日本語のテキスト"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conv.DisplayTitle(); got != tt.want {
				t.Errorf("DisplayTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewMessage_UniqueLocalIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		m := NewUserMessage("hi")
		if m.ID == "" {
			t.Fatal("message ID is empty")
		}
		if seen[m.ID] {
			t.Fatalf("duplicate local ID: %s", m.ID)
		}
		seen[m.ID] = true
	}
}

func TestNewAssistantPlaceholder(t *testing.T) {
	m := NewAssistantPlaceholder()
	if m.Role != RoleAssistant {
		t.Errorf("role = %s, want assistant", m.Role)
	}
	if m.Content != "" {
		t.Errorf("placeholder content = %q, want empty", m.Content)
	}
}

func TestRoleDisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("user display name = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("assistant display name = %q", RoleAssistant.DisplayName())
	}
	if Role("tool").DisplayName() != "tool" {
		t.Errorf("unknown role should fall back to its string form")
	}
}
