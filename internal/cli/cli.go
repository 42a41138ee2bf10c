// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for clarion.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdChat
	CmdList
	CmdDownload
	CmdConfig
	CmdVersion
	CmdHelp
)

const usageText = `clarion - terminal client for the clarion chat backend

Usage:
  clarion                    Start TUI (default)
  clarion login              Sign in with email passcode
  clarion logout             Remove stored credentials
  clarion chat               Plain interactive chat (no TUI)
  clarion list               List conversations
  clarion download <id>      Download a conversation transcript
  clarion config [show|path] Configuration
  clarion version            Show version
  clarion help               Show this help

Flags:
  --api URL                  Override the backend origin
  --auth URL                 Override the identity provider origin

Interactive commands (during chat):
  /new                       Start a fresh conversation
  /list                      List conversations
  /open <id>                 Switch to a conversation
  /quit                      Exit chat
  Ctrl+D                     Exit chat

Environment:
  CLARION_API_URL            Backend origin
  CLARION_AUTH_URL           Identity provider origin
  CLARION_DIR                Config/state directory (default ~/.clarion)
`

// Parse parses os.Args into a command and its remaining arguments.
func Parse() (Command, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return CmdTUI, nil
	}

	switch strings.ToLower(args[0]) {
	case "login":
		return CmdLogin, args[1:]
	case "logout":
		return CmdLogout, args[1:]
	case "chat", "repl":
		return CmdChat, args[1:]
	case "list", "ls":
		return CmdList, args[1:]
	case "download", "dl":
		return CmdDownload, args[1:]
	case "config":
		return CmdConfig, args[1:]
	case "version", "-v", "--version":
		return CmdVersion, args[1:]
	case "help", "-h", "--help":
		return CmdHelp, args[1:]
	default:
		// Unknown word: treat the whole line as a TUI launch so flags
		// like --api still apply.
		return CmdTUI, args
	}
}

// HandleHelp prints usage.
func HandleHelp() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("clarion %s (%s) built %s %s/%s\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// FlagValue extracts "--name value" or "--name=value" from args.
// Returns "" when absent.
func FlagValue(args []string, name string) string {
	prefix := "--" + name
	for i, arg := range args {
		if arg == prefix && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, prefix+"=") {
			return strings.TrimPrefix(arg, prefix+"=")
		}
	}
	return ""
}

// Positionals returns the arguments that are not flags or flag values.
func Positionals(args []string) []string {
	var out []string
	skip := false
	for _, arg := range args {
		if skip {
			skip = false
			continue
		}
		if strings.HasPrefix(arg, "--") {
			if !strings.Contains(arg, "=") {
				skip = true
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}
