package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/types"
	"childhealth/internal/domain/user"
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and upload records collected offline",
	Long: `login authenticates against the server and stores the session
token locally. Records waiting for upload are synced right after.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		employeeID := readLine("Employee ID: ")
		uin, err := types.ReadSecret("UIN: ")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		id, err := app.Login(ctx, user.LoginRequest{EmployeeID: employeeID, UIN: uin})
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		fmt.Printf("Signed in as %s.\n", id.Name)
		return nil
	},
}

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and stop running syncs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		if err := app.Logout(ctx); err != nil {
			fmt.Printf("Signed out locally; the server could not be notified: %v\n", err)
			return nil
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var WhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in health worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		id, ok := app.Identity()
		if !ok {
			fmt.Println("Not signed in.")
			return nil
		}
		fmt.Printf("%s (employee %s, owner %s)\n", id.Name, id.EmployeeID, id.OwnerID)
		return nil
	},
}
