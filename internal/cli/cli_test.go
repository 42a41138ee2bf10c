// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		args []string
		want Command
		rest []string
	}{
		{[]string{"clarion"}, CmdTUI, nil},
		{[]string{"clarion", "login"}, CmdLogin, []string{}},
		{[]string{"clarion", "logout"}, CmdLogout, []string{}},
		{[]string{"clarion", "chat"}, CmdChat, []string{}},
		{[]string{"clarion", "repl"}, CmdChat, []string{}},
		{[]string{"clarion", "list"}, CmdList, []string{}},
		{[]string{"clarion", "ls"}, CmdList, []string{}},
		{[]string{"clarion", "download", "abc"}, CmdDownload, []string{"abc"}},
		{[]string{"clarion", "config", "show"}, CmdConfig, []string{"show"}},
		{[]string{"clarion", "version"}, CmdVersion, []string{}},
		{[]string{"clarion", "--version"}, CmdVersion, []string{}},
		{[]string{"clarion", "help"}, CmdHelp, []string{}},
		{[]string{"clarion", "--api", "http://x"}, CmdTUI, []string{"--api", "http://x"}},
	}

	for _, tt := range tests {
		os.Args = tt.args
		cmd, rest := Parse()
		if cmd != tt.want {
			t.Errorf("Parse(%v) command = %d, want %d", tt.args, cmd, tt.want)
		}
		if len(rest) != len(tt.rest) {
			t.Errorf("Parse(%v) rest = %v, want %v", tt.args, rest, tt.rest)
		}
	}
}

func TestFlagValue(t *testing.T) {
	args := []string{"--api", "http://a.example", "--auth=http://b.example", "--json"}

	if got := FlagValue(args, "api"); got != "http://a.example" {
		t.Errorf("api = %q", got)
	}
	if got := FlagValue(args, "auth"); got != "http://b.example" {
		t.Errorf("auth = %q", got)
	}
	if got := FlagValue(args, "missing"); got != "" {
		t.Errorf("missing = %q", got)
	}
}

func TestPositionals(t *testing.T) {
	args := []string{"abc123", "--api", "http://a.example", "--out=file.json", "extra"}
	got := Positionals(args)
	want := []string{"abc123", "extra"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Positionals = %v, want %v", got, want)
	}
}
