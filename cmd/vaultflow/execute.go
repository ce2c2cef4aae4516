package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/vaultflow/internal/audit"
	"github.com/kalambet/vaultflow/internal/executor"
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Dispatch authorized approvals to action handlers",
	Long: `Dispatch authorized approvals to action handlers.

Scans Approved oldest first, invokes one handler subprocess per approval,
rewrites each approval's status, and archives it. Runs once by default.

Examples:
  vaultflow execute
  vaultflow execute --dry-run
  vaultflow execute --once-file APPROVAL_SEND_EMAIL_Alice_mail_1_2026-03-14.md
  vaultflow execute --loop --interval 30s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		onceFile, _ := cmd.Flags().GetString("once-file")
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
		runner := &executor.ScriptRunner{
			Dir:     cfg.Executor.HandlersDir,
			Timeout: cfg.HandlerTimeout(),
		}
		x := executor.New(v, audit.New(v.Root), runner, cfg.Executor.RatePerHour)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if loop {
			if interval <= 0 {
				interval = cfg.ExecutorInterval()
			}
			x.Run(ctx, interval)
			return nil
		}

		res, err := x.RunOnce(ctx, dryRun, onceFile)
		if err != nil {
			return err
		}
		if dryRun {
			printSuccess("Previewed %d approval(s), nothing sent", res.DryRun)
		} else {
			printSuccess("Executed %d approval(s)", res.Executed)
		}
		if res.Skipped > 0 {
			printWarning("%d approval(s) skipped", res.Skipped)
		}
		if res.Deferred > 0 {
			printWarning("%d approval(s) deferred by the rate limit", res.Deferred)
		}
		if res.Failed > 0 {
			return fmt.Errorf("%d approval(s) failed", res.Failed)
		}
		return nil
	},
}

func init() {
	executeCmd.Flags().Bool("dry-run", false, "validate and preview without side effects")
	executeCmd.Flags().String("once-file", "", "process only the named approval")
	executeCmd.Flags().Bool("loop", false, "poll the queue continuously")
	executeCmd.Flags().Duration("interval", 0, "poll interval in loop mode (default from config)")
}
