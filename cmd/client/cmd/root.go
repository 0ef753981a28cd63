package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"childhealth/cmd/client/cmd/auth"
	"childhealth/cmd/client/cmd/key"
	"childhealth/cmd/client/cmd/record"
	"childhealth/cmd/client/cmd/remote"
	"childhealth/cmd/client/cmd/sync"
	"childhealth/cmd/client/cmd/types"
	"childhealth/internal/app/client"
	"childhealth/internal/app/client/config"
	"childhealth/internal/utils/logger"
)

var (
	cfgFile   string
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "childhealth",
	Short: "Offline child health record collection",
	Long: `childhealth collects child health records on the device, keeps
sensitive fields encrypted at rest and uploads them to the server
whenever a connection is available.`,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
	SilenceErrors:      true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	log := logger.NewWithOutput(cfg.Env, logger.RotatingFile(cfg.LogPath()))

	app, err := client.New(cfg, log, client.NewConsoleNotifier(os.Stdout))
	if err != nil {
		return fmt.Errorf("start client: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, types.ClientAppKey, app))

	return nil
}

func closeApp(cmd *cobra.Command, _ []string) error {
	app, err := types.App(cmd)
	if err != nil {
		return nil
	}
	return app.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ~/.childhealth/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(key.UnlockCmd, key.LockCmd, key.PasswdCmd)

	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.RegisterCmd, auth.LoginCmd, auth.LogoutCmd, auth.WhoamiCmd)

	rootCmd.AddCommand(record.RecordCmd)
	record.RecordCmd.AddCommand(record.AddCmd, record.ListCmd, record.ShowCmd, record.DeleteCmd)
	rootCmd.AddCommand(record.CleanupCmd)

	rootCmd.AddCommand(remote.RemoteCmd)

	rootCmd.AddCommand(sync.SyncCmd)
}
