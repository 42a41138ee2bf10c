// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared setup for CLI command handlers.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/clarion/internal/api"
	"github.com/jeranaias/clarion/internal/config"
	"github.com/jeranaias/clarion/internal/credstore"
	"github.com/jeranaias/clarion/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle  = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	welcomeStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(styles.TextSecondary)
	successStyle = lipgloss.NewStyle().Foreground(styles.Emerald)
	errorStyle   = lipgloss.NewStyle().Foreground(styles.Rose)
)

// =============================================================================
// APP CONTEXT
// =============================================================================

// App bundles the configured clients shared by command handlers.
type App struct {
	Cfg    *config.Config
	Creds  *credstore.Store
	Client *api.Client
}

// NewApp loads configuration, applies command-line endpoint overrides,
// and wires the credential store and API client.
func NewApp(args []string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := FlagValue(args, "api"); v != "" {
		cfg.Server.APIURL = v
	}
	if v := FlagValue(args, "auth"); v != "" {
		cfg.Server.AuthURL = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stateDir, err := config.StateDir()
	if err != nil {
		return nil, err
	}
	creds := credstore.New(stateDir, cfg.Server.AuthURL)

	return &App{
		Cfg:    cfg,
		Creds:  creds,
		Client: api.NewClient(cfg.Server.APIURL, creds),
	}, nil
}

// Fail prints an error and returns a process exit code.
func Fail(err error) int {
	fmt.Println(errorStyle.Render("Error: " + err.Error()))
	return 1
}
