// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection.
//
// Command: config [show|path|init]
// Short:   Show or initialize configuration
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/clarion/internal/config"
)

// HandleConfig shows or initializes configuration.
func HandleConfig(args []string) int {
	sub := "show"
	if p := Positionals(args); len(p) > 0 {
		sub = p[0]
	}

	switch sub {
	case "show":
		cfg, err := config.Load()
		if err != nil {
			return Fail(err)
		}
		fmt.Printf("api_url:       %s\n", cfg.Server.APIURL)
		fmt.Printf("auth_url:      %s\n", cfg.Server.AuthURL)
		fmt.Printf("theme:         %s\n", cfg.UI.Theme)
		fmt.Printf("markdown:      %t\n", cfg.UI.Markdown)
		fmt.Printf("sidebar_width: %d\n", cfg.UI.SidebarWidth)
		return 0

	case "path":
		path, err := config.Path()
		if err != nil {
			return Fail(err)
		}
		fmt.Println(path)
		return 0

	case "init":
		path, err := config.Path()
		if err != nil {
			return Fail(err)
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Println(infoStyle.Render("Config already exists at " + path))
			return 0
		}
		if err := config.Save(config.Default()); err != nil {
			return Fail(err)
		}
		fmt.Println(successStyle.Render("✓ Wrote " + path))
		return 0

	default:
		return Fail(fmt.Errorf("unknown config subcommand %q (try show, path, init)", sub))
	}
}
