// Package types holds helpers shared by the client subcommands.
package types

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"childhealth/internal/app/client"
)

type contextKey string

// ClientAppKey stores the *client.App in the command context.
const ClientAppKey contextKey = "app"

var ErrNoApp = errors.New("client is not initialized")

func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, ErrNoApp
	}
	return app, nil
}

// ReadSecret prompts for a value without echoing it.
func ReadSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// RequireUnlocked fails with a hint when the master key is locked.
func RequireUnlocked(app *client.App) error {
	if !app.IsInitialized() {
		return errors.New("no master key yet, run: childhealth init")
	}
	if !app.IsUnlocked() {
		return errors.New("master key is locked, run: childhealth unlock")
	}
	return nil
}
