// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Plain interactive chat for terminals where the TUI is
// unwanted (ssh, scripts, narrow terminals).
//
// Command: chat
// Short:   Interactive chat REPL
//
// Interactive commands:
//   /new                Start a fresh conversation
//   /list               List conversations
//   /open <id>          Switch to a conversation and print its history
//   /quit, /q           Exit
//   Ctrl+D              Exit
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/clarion/internal/api"
	"github.com/jeranaias/clarion/internal/config"
	"github.com/jeranaias/clarion/internal/model"
)

// replSession holds the state of one plain chat run.
type replSession struct {
	app            *App
	line           *liner.State
	historyFile    string
	conversationID string
}

// HandleChat runs the plain chat REPL.
func HandleChat(args []string) int {
	app, err := NewApp(args)
	if err != nil {
		return Fail(err)
	}

	// Pick up tokens refreshed by a concurrent login in another
	// terminal.
	if err := app.Creds.Watch(); err == nil {
		defer app.Creds.Close()
	}

	s := newREPLSession(app)
	defer s.close()

	fmt.Println(welcomeStyle.Render("clarion chat"))
	fmt.Println(infoStyle.Render("Backend: " + app.Cfg.Server.APIURL))
	fmt.Println(infoStyle.Render("Type /quit to exit, /new for a fresh conversation."))
	fmt.Println()

	return s.loop()
}

func newREPLSession(app *App) *replSession {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile := ""
	if dir, err := config.Dir(); err == nil {
		historyFile = filepath.Join(dir, "chat_history")
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	return &replSession{app: app, line: line, historyFile: historyFile}
}

func (s *replSession) close() {
	if s.historyFile != "" {
		if f, err := os.Create(s.historyFile); err == nil {
			s.line.WriteHistory(f)
			f.Close()
		}
	}
	s.line.Close()
}

// loop reads input until exit, dispatching commands and chat turns.
func (s *replSession) loop() int {
	for {
		input, err := s.line.Prompt(promptStyle.Render("you> "))
		if err != nil {
			// liner returns an error on Ctrl+C abort and io.EOF on
			// Ctrl+D; both end the session.
			fmt.Println()
			return 0
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		s.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := s.command(input); quit {
				return 0
			}
			continue
		}

		s.sendTurn(input)
	}
}

// command handles a slash command; returns true to exit.
func (s *replSession) command(input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/q", "/exit":
		return true

	case "/new":
		s.conversationID = ""
		fmt.Println(infoStyle.Render("Started a fresh conversation."))

	case "/list":
		s.printConversations()

	case "/open":
		if len(fields) < 2 {
			fmt.Println(errorStyle.Render("Usage: /open <conversation-id>"))
			return false
		}
		s.openConversation(fields[1])

	default:
		fmt.Println(errorStyle.Render("Unknown command " + fields[0]))
	}
	return false
}

func (s *replSession) printConversations() {
	list, err := s.app.Client.ListConversations(context.Background())
	if err != nil {
		printAPIError(err)
		return
	}
	if len(list) == 0 {
		fmt.Println(infoStyle.Render("No conversations yet."))
		return
	}
	for _, c := range list {
		marker := "  "
		if c.ID == s.conversationID {
			marker = "* "
		}
		fmt.Printf("%s%s  %s\n", marker, c.ID, c.DisplayTitle())
	}
}

func (s *replSession) openConversation(id string) {
	history, err := s.app.Client.History(context.Background(), id)
	if err != nil {
		printAPIError(err)
		return
	}
	s.conversationID = id
	fmt.Println(infoStyle.Render("Opened conversation " + id))
	for _, h := range history {
		label := model.Role(h.Role).DisplayName()
		fmt.Printf("%s: %s\n", promptStyle.Render(label), h.Content)
	}
}

// sendTurn streams one assistant response to stdout. Ctrl+C cancels
// the stream without exiting the REPL.
func (s *replSession) sendTurn(text string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Print(promptStyle.Render("assistant> "))

	assigned := s.conversationID
	err := s.app.Client.SendMessage(ctx, api.SendRequest{
		Message:        text,
		ConversationID: s.conversationID,
	}, func(f api.Frame) {
		fmt.Print(f.Content)
		if f.SessionID != "" {
			assigned = f.SessionID
		}
	})
	fmt.Println()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println(infoStyle.Render("(canceled)"))
			return
		}
		printAPIError(err)
		return
	}
	s.conversationID = assigned
}

// printAPIError renders API failures with a login hint when relevant.
func printAPIError(err error) {
	if errors.Is(err, api.ErrAuthRequired) {
		fmt.Println(errorStyle.Render("Not signed in. Run 'clarion login' first."))
		return
	}
	fmt.Println(errorStyle.Render("Error: " + err.Error()))
}
