package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/epi-console/internal/config"
)

// Version is reported by --version.
const Version = "0.3.0"

var (
	cfg config.Config

	envFile    string
	backendURL string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "console",
	Short:         "Operator console for the EPI access orchestration service",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFiles()...); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		cfg = config.Load()
		if cmd.Flags().Changed("backend-url") {
			cfg.BackendURL = backendURL
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func envFiles() []string {
	if envFile == "" {
		return nil
	}
	return []string{envFile}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default: .env)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend-url", "", "orchestration service base URL (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
}
