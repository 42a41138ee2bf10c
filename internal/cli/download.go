// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// download.go - Conversation transcript download.
//
// Command: download <id> [--out FILE]
// Short:   Save a conversation transcript to disk
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/clarion/internal/util"
)

// HandleDownload fetches a conversation transcript and saves it.
func HandleDownload(args []string) int {
	positional := Positionals(args)
	if len(positional) == 0 {
		return Fail(errors.New("usage: clarion download <conversation-id> [--out FILE]"))
	}
	conversationID := positional[0]

	app, err := NewApp(args)
	if err != nil {
		return Fail(err)
	}

	filename, data, err := app.Client.Download(context.Background(), conversationID)
	if err != nil {
		printAPIError(err)
		return 1
	}

	if out := FlagValue(args, "out"); out != "" {
		filename = out
	}

	// RELIABILITY: Atomic write so an interrupted download never leaves
	// a truncated transcript.
	if err := util.AtomicWriteFile(filename, data, 0644); err != nil {
		return Fail(fmt.Errorf("failed to save transcript: %w", err))
	}

	fmt.Println(successStyle.Render("✓ Saved " + filename))
	return 0
}

// HandleList prints the conversation directory.
func HandleList(args []string) int {
	app, err := NewApp(args)
	if err != nil {
		return Fail(err)
	}

	list, err := app.Client.ListConversations(context.Background())
	if err != nil {
		printAPIError(err)
		return 1
	}
	if len(list) == 0 {
		fmt.Println(infoStyle.Render("No conversations yet."))
		return 0
	}
	for _, c := range list {
		title := util.TruncateRunes(util.CollapseWhitespace(c.DisplayTitle()), 60)
		fmt.Printf("%s  %s\n", util.PadRight(c.ID, 36), title)
	}
	return 0
}
