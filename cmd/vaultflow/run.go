package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/vaultflow/internal/audit"
	"github.com/kalambet/vaultflow/internal/engine"
	"github.com/kalambet/vaultflow/internal/executor"
	"github.com/kalambet/vaultflow/internal/state"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine and executor loops in one process",
	Long: `Run the engine and executor loops in one process.

The two loops stay independent: the engine fills Pending_Approval, a human
moves approvals to Approved, and the executor drains them. Correctness
under the shared vault rests on rename atomicity, not locks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		au := audit.New(v.Root)
		eng := engine.New(v, st, au)
		runner := &executor.ScriptRunner{
			Dir:     cfg.Executor.HandlersDir,
			Timeout: cfg.HandlerTimeout(),
		}
		x := executor.New(v, au, runner, cfg.Executor.RatePerHour)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			eng.Run(gctx, cfg.EngineInterval())
			return nil
		})
		g.Go(func() error {
			x.Run(gctx, cfg.ExecutorInterval())
			return nil
		})
		return g.Wait()
	},
}
