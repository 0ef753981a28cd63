package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/types"
)

const minPassphraseLen = 8

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the master key",
	Long: `init creates the master key protecting child names, guardian names,
health observations and photos on this device.

Without the passphrase the encrypted fields cannot be recovered.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if app.IsInitialized() {
			fmt.Println("Master key already exists.")
			return nil
		}

		passphrase, err := types.ReadSecret("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := types.ReadSecret("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return errors.New("passphrases do not match")
		}
		if len(passphrase) < minPassphraseLen {
			return fmt.Errorf("passphrase must have at least %d characters", minPassphraseLen)
		}

		if err := app.InitMasterKey(passphrase); err != nil {
			return fmt.Errorf("create master key: %w", err)
		}
		fmt.Println("Master key created.")

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		if err := app.CheckConnection(ctx); err != nil {
			fmt.Printf("Server is not reachable (%v). Records will be kept offline until it is.\n", err)
		} else {
			fmt.Println("Server is reachable.")
		}

		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  childhealth auth register")
		fmt.Println("  childhealth auth login")
		fmt.Println("  childhealth record add")

		return nil
	},
}
