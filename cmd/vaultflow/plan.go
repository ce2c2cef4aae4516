package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/vaultflow/internal/audit"
	"github.com/kalambet/vaultflow/internal/engine"
	"github.com/kalambet/vaultflow/internal/state"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Process inbound items into plans and approval requests",
	Long: `Process inbound items into plans and approval requests.

Scans Needs_Action, classifies each item, writes a Plan (and an approval
request when one is required), archives the original, and updates the
dashboard. Runs once by default.

Examples:
  vaultflow plan
  vaultflow plan --loop --interval 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loop, _ := cmd.Flags().GetBool("loop")
		interval, _ := cmd.Flags().GetDuration("interval")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		initLogging(cfg)

		v, err := openVault(cfg)
		if err != nil {
			return err
		}
		st, err := state.Open(v.Root)
		if err != nil {
			return err
		}
		eng := engine.New(v, st, audit.New(v.Root))

		if loop {
			if interval <= 0 {
				interval = cfg.EngineInterval()
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			eng.Run(ctx, interval)
			return nil
		}

		res, err := eng.RunOnce()
		if err != nil {
			return err
		}
		printSuccess("Processed %d item(s)", res.Processed)
		if res.Failed > 0 {
			return fmt.Errorf("%d item(s) failed", res.Failed)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().Bool("once", true, "process the queue once and exit (default)")
	planCmd.Flags().Bool("loop", false, "poll the queue continuously")
	planCmd.Flags().Duration("interval", 0, "poll interval in loop mode (default from config)")
}
