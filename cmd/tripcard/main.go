package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tripcard/internal/config"
	appLog "tripcard/internal/log"
)

const version = "0.1.0"

// app carries what every subcommand needs after the root pre-run.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		appLog.Error("tripcard failed", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tripcard",
		Short:         "Render travel itinerary cards from Home Assistant style states",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "tripcard.yaml", "Path to config file (created with defaults if missing)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newServeCommand(a),
		newRenderCommand(a),
		newCaptureCommand(a),
		newCardsCommand(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = a.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	appLog.Debug("effective config",
		"config_path", a.configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"states_path", cfg.StatesPath,
		"remote", cfg.Remote != nil,
		"refresh", cfg.RefreshCron,
		"cards", len(cfg.Cards),
	)
	return nil
}
