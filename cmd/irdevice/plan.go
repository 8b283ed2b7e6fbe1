// cmd/irdevice/plan.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irdevice/querycore/internal/config"
	"github.com/irdevice/querycore/internal/driver"
)

func newPlanCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the query plan a catalogue would produce, without touching hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			config.Normalize(cfg)

			drv, err := driver.BuildPlanOnly(cfg)
			if err != nil {
				return err
			}
			printPlan(drv.Plan())
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to the device catalogue YAML file (required)")
	return cmd
}

func printPlan(plans []driver.DevicePlan) {
	for _, dp := range plans {
		fmt.Printf("device %s\n", dp.DeviceID)
		for _, pg := range dp.PollGroups {
			fmt.Printf("  poll every %dms\n", pg.PollIntervalMs)
			for _, q := range pg.Queries {
				fmt.Printf("    %s @%d x%d -> %v\n", q.Type, q.Start, q.Count, q.Registers)
			}
		}
	}
}
