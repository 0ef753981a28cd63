package record

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/types"
	"childhealth/internal/app/client/localstore"
)

var ShowCmd = &cobra.Command{
	Use:   "show <local-id>",
	Short: "Show one local record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		rec, err := app.Record(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, localstore.ErrNotFound) {
				return fmt.Errorf("record %s not found", args[0])
			}
			return err
		}

		printRecord(rec)
		return nil
	},
}

var DeleteCmd = &cobra.Command{
	Use:   "delete <local-id>",
	Short: "Delete a local record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if err := app.DeleteRecord(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
		fmt.Printf("Deleted %s.\n", args[0])
		return nil
	},
}

var CleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove duplicate health ids and repair timestamps",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		report, err := app.Cleanup(cmd.Context())
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		if !report.Changed() {
			fmt.Println("Nothing to clean up.")
			return nil
		}

		fmt.Printf("Updated %d records, deleted %d duplicates.\n", report.Updated, report.Deleted)
		return nil
	},
}
