package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kalambet/vaultflow/internal/audit"
	"github.com/kalambet/vaultflow/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault pipeline status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		v, err := openVault(cfg)
		if err != nil {
			return err
		}

		s, err := report.Collect(v, nil)
		if err != nil {
			return err
		}

		fmt.Println(colorize(colorBold, "Vault: "+v.Root))
		printStatus("Needs action", "%d", s.Inbound)
		printStatus("Plans", "%d", s.Plans)
		printStatus("Pending approval", "%d", s.Pending)
		printStatus("Approved", "%d", s.Approved)
		printStatus("Rejected", "%d", s.Rejected)
		printStatus("Done", "%d", s.Done)

		entries, err := audit.New(v.Root).Tail(10)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			fmt.Println(colorize(colorBold, "\nToday's activity:"))
			for _, e := range entries {
				line := fmt.Sprintf("%v  %v", e["timestamp"], e["event"])
				if f, ok := e["filename"].(string); ok && f != "" {
					line += "  " + f
				}
				fmt.Println("  " + colorize(colorCyan, line))
			}
		}
		return nil
	},
}
