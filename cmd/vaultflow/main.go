package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/vaultflow/internal/config"
	"github.com/kalambet/vaultflow/internal/vault"
)

var version = "dev"

var (
	noColor   bool
	vaultFlag string
)

var rootCmd = &cobra.Command{
	Use:           "vaultflow",
	Short:         "Vault workflow engine: plan inbound items, execute approved actions",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultFlag, "vault", "", "vault root directory (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// loadConfig layers the persistent --vault flag over the file/env config.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if vaultFlag != "" {
		cfg.Vault.Path = vaultFlag
	}
	return cfg, nil
}

func initLogging(cfg config.Config) {
	level := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openVault opens the configured vault root. A missing root is fatal for
// every command; vaults are created by the watchers that feed them, not
// here, so a mistyped path aborts instead of producing an empty vault.
func openVault(cfg config.Config) (*vault.Vault, error) {
	return vault.Require(cfg.Vault.Path)
}
