// Package key manages the local master key.
package key

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/types"
	"childhealth/internal/app/client/crypto"
)

var UnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the master key for this session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if app.IsUnlocked() {
			fmt.Println("Already unlocked.")
			return nil
		}

		passphrase, err := types.ReadSecret("Passphrase: ")
		if err != nil {
			return err
		}
		if err := app.Unlock(passphrase); err != nil {
			if errors.Is(err, crypto.ErrWrongPassphrase) {
				return errors.New("wrong passphrase")
			}
			return err
		}

		fmt.Println("Unlocked.")
		return nil
	},
}

var LockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Forget the unlocked master key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.Lock(); err != nil {
			return err
		}
		fmt.Println("Locked.")
		return nil
	},
}

var PasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the master key passphrase",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		oldPass, err := types.ReadSecret("Current passphrase: ")
		if err != nil {
			return err
		}
		newPass, err := types.ReadSecret("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := types.ReadSecret("Repeat new passphrase: ")
		if err != nil {
			return err
		}
		if newPass != confirm {
			return errors.New("passphrases do not match")
		}

		if err := app.ChangePassphrase(oldPass, newPass); err != nil {
			return fmt.Errorf("change passphrase: %w", err)
		}
		fmt.Println("Passphrase changed.")
		return nil
	},
}
