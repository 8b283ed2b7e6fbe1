// cmd/irdevice/validate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irdevice/querycore/internal/config"
)

func newValidateCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a device catalogue without connecting to anything",
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
			fmt.Printf("ok: %d device(s), %d register(s) total\n", len(cfg.Devices), countRegisters(cfg))
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to the device catalogue YAML file (required)")
	return cmd
}

func countRegisters(cfg *config.Config) int {
	n := 0
	for _, d := range cfg.Devices {
		n += len(d.Registers)
	}
	return n
}
