// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login.go - Email passcode sign-in for clarion.
//
// Command: login
// Short:   Sign in with an emailed one-time passcode
//
// The flow requests a passcode for the entered email, reads the code
// with echo disabled, exchanges it for a bearer token, and publishes
// the token through the credential store so both the TUI and the plain
// chat mode pick it up.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/clarion/internal/identity"
)

const loginTimeout = 2 * time.Minute

// HandleLogin runs the interactive login flow.
func HandleLogin(args []string) int {
	app, err := NewApp(args)
	if err != nil {
		return Fail(err)
	}

	fmt.Println(welcomeStyle.Render("clarion login"))
	fmt.Println(infoStyle.Render("Identity provider: " + app.Cfg.Server.AuthURL))
	fmt.Println()

	email, err := promptEmail()
	if err != nil {
		return Fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	idc := identity.NewClient(app.Cfg.Server.AuthURL)
	if err := idc.RequestCode(ctx, email); err != nil {
		if errors.Is(err, identity.ErrEmailRejected) {
			return Fail(fmt.Errorf("the provider rejected %q", email))
		}
		return Fail(err)
	}
	fmt.Println(infoStyle.Render("A one-time passcode was sent to " + email))

	code, err := promptPasscode()
	if err != nil {
		return Fail(err)
	}

	cred, err := idc.VerifyCode(ctx, email, code)
	if err != nil {
		if errors.Is(err, identity.ErrCodeRejected) {
			return Fail(errors.New("passcode rejected; request a new one with 'clarion login'"))
		}
		return Fail(err)
	}

	// Publication is best-effort beyond memory; a disk failure is
	// logged by the store and the session still works.
	app.Creds.Publish(cred.Token, app.Cfg.Server.APIURL)

	fmt.Println(successStyle.Render("✓ Signed in"))
	if cred.ExpiresIn > 0 {
		days := cred.ExpiresIn / 86400
		if days > 0 {
			fmt.Println(infoStyle.Render(fmt.Sprintf("Credential valid for ~%d days", days)))
		}
	}
	return 0
}

// HandleLogout removes stored credentials.
func HandleLogout(args []string) int {
	app, err := NewApp(args)
	if err != nil {
		return Fail(err)
	}
	if err := app.Creds.Clear(); err != nil {
		return Fail(err)
	}
	fmt.Println(successStyle.Render("✓ Signed out"))
	return 0
}

// promptEmail reads the email address with line editing.
func promptEmail() (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	email, err := line.Prompt("Email: ")
	if err != nil {
		return "", errors.New("login canceled")
	}
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("invalid email address %q", email)
	}
	return email, nil
}

// promptPasscode reads the passcode with echo disabled so it does not
// land in scrollback or shoulder view.
func promptPasscode() (string, error) {
	fmt.Print(promptStyle.Render("Passcode: "))
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read passcode: %w", err)
	}
	code := strings.TrimSpace(string(raw))
	if code == "" {
		return "", errors.New("empty passcode")
	}
	return code, nil
}
