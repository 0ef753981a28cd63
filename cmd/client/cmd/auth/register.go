package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/types"
	"childhealth/internal/domain/user"
)

var RegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a health worker on the server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		name := readLine("Name: ")
		employeeID := readLine("Employee ID: ")
		uin, err := types.ReadSecret("UIN: ")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		id, err := app.Register(ctx, user.RegisterRequest{Name: name, EmployeeID: employeeID, UIN: uin})
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}

		fmt.Printf("Registered %s (employee %s).\n", id.Name, id.EmployeeID)
		fmt.Println("Sign in with: childhealth auth login")
		return nil
	},
}
