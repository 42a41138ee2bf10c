// clarion - a terminal client for the clarion chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/clarion/internal/cli"
	"github.com/jeranaias/clarion/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		os.Exit(runTUI(args))
	case cli.CmdLogin:
		os.Exit(cli.HandleLogin(args))
	case cli.CmdLogout:
		os.Exit(cli.HandleLogout(args))
	case cli.CmdChat:
		os.Exit(cli.HandleChat(args))
	case cli.CmdList:
		os.Exit(cli.HandleList(args))
	case cli.CmdDownload:
		os.Exit(cli.HandleDownload(args))
	case cli.CmdConfig:
		os.Exit(cli.HandleConfig(args))
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

// runTUI starts the full-screen chat interface.
func runTUI(args []string) int {
	app, err := cli.NewApp(args)
	if err != nil {
		return cli.Fail(err)
	}

	// Watch for credential records refreshed by an external login so a
	// long-running TUI picks up the new token without a restart.
	if err := app.Creds.Watch(); err == nil {
		defer app.Creds.Close()
	}

	m := chat.New(app.Cfg, app.Client)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
