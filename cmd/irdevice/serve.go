// cmd/irdevice/serve.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/irdevice/querycore/internal/config"
	"github.com/irdevice/querycore/internal/driver"
	"github.com/irdevice/querycore/internal/x/debug"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to every device in a catalogue and run the poll/flush cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				return fmt.Errorf("--config is required")
			}
			debug.SetEnabled(verbose)

			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			config.Normalize(cfg)

			drv, closeAll, err := driver.Build(cfg)
			if err != nil {
				return err
			}
			defer closeAll()

			log.WithField("devices", drv.Devices()).Info("catalogue loaded")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			drv.Run(ctx, log)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to the device catalogue YAML file (required)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable verbose diagnostic tracing")
	return cmd
}
