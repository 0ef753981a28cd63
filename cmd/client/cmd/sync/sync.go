package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/types"
	"childhealth/internal/app/client"
	"childhealth/internal/app/client/syncer"
)

const maxShownFailures = 3

var (
	watch       bool
	showPending bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload records collected offline",
	Long: `sync uploads every pending record in one batch. If the batch call
fails, records are uploaded one by one. Records the server rejected stay
pending and are retried on the next sync.

With --watch the client keeps polling the server and syncs each time the
connection comes back.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if showPending {
			return printPending(cmd.Context(), app)
		}
		if err := types.RequireUnlocked(app); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if watch {
			fmt.Println("Watching for connectivity, press Ctrl+C to stop.")
			if err := app.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}

		start := time.Now()
		summary, err := app.Sync(ctx, printProgress)
		if err != nil {
			if errors.Is(err, syncer.ErrSyncInProgress) {
				fmt.Println("Another sync is already running.")
				return nil
			}
			return err
		}

		printSummary(summary, time.Since(start))
		return nil
	},
}

func printProgress(p syncer.Progress) {
	fmt.Printf("\r[%3.0f%%] %d/%d", p.Percent, p.Completed, p.Total)
	if p.Completed == p.Total {
		fmt.Println()
	}
}

func printSummary(s syncer.Summary, took time.Duration) {
	if s.SyncedCount == 0 && s.FailedCount == 0 {
		fmt.Println("Nothing to sync.")
		return
	}

	fmt.Printf("Mode: %s, took %v\n", s.Mode, took.Round(time.Millisecond))
	fmt.Printf("Synced: %d, failed: %d\n", s.SyncedCount, s.FailedCount)

	for i, f := range s.Failures {
		if i == maxShownFailures {
			fmt.Printf("  ... and %d more\n", len(s.Failures)-maxShownFailures)
			break
		}
		fmt.Printf("  %s: %s\n", f.HealthID, f.Error)
	}
}

func printPending(ctx context.Context, app *client.App) error {
	pending, err := app.PendingRecords(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d records waiting for upload\n", len(pending))
	return nil
}

func init() {
	SyncCmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and sync when the server becomes reachable")
	SyncCmd.Flags().BoolVar(&showPending, "status", false, "only show how many records are pending")
}
