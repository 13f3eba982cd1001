package main

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"tripcard/internal/capture"
	"tripcard/internal/card"
	"tripcard/internal/dashboard"
	appLog "tripcard/internal/log"
	"tripcard/internal/observability"
	"tripcard/internal/states"
	"tripcard/internal/web"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		listen      string
		withCapture bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve configured cards over HTTP and keep them current",
		Example: `
tripcard serve --config /etc/tripcard.yaml
tripcard serve --listen :8080 --capture
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			return a.serve(cmd.Context(), withCapture)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().BoolVar(&withCapture, "capture", false, "Refresh the PNG preview on every scheduled refresh")
	return cmd
}

func (a *app) serve(ctx context.Context, withCapture bool) error {
	cfg := a.cfg
	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("invalid timezone; using local", "error", err)
	}

	shutdown, err := observability.Setup(ctx, &observability.TelemetryConfig{
		Enabled:     cfg.Telemetry.Enabled || observability.EnabledFromEnv(),
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		appLog.Warn("telemetry disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			appLog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	dash, err := dashboard.New(card.NewRegistry(), cfg.Cards, loc)
	if err != nil {
		return err
	}

	store := states.NewStore(cfg.StatesPath)
	dash.Attach(store)

	var jobs []func(context.Context)
	if cfg.Remote != nil && cfg.Remote.URL != "" {
		fetcher := states.NewFetcher(states.Remote{URL: cfg.Remote.URL, Token: cfg.Remote.Token}, cfg.Remote.CacheDir)
		pull := func(ctx context.Context) {
			if err := store.Pull(ctx, fetcher); err != nil {
				appLog.Error("states pull failed", err)
			}
		}
		pull(ctx)
		jobs = append(jobs, pull)
	} else {
		if err := store.Reload(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			appLog.Warn("states file not found; cards show not-found until it appears", "path", cfg.StatesPath)
		}
		if err := store.Watch(ctx); err != nil {
			return err
		}
	}

	if withCapture {
		opts := capture.Options{
			URL:        "http://" + cfg.Listen + "/cards/" + cfg.Capture.Card,
			OutputPath: cfg.Capture.Output,
			Width:      cfg.Capture.Width,
			Height:     cfg.Capture.Height,
		}
		jobs = append(jobs, func(ctx context.Context) {
			if err := capture.CardPNG(ctx, opts); err != nil {
				appLog.Error("preview capture failed", err, "card", cfg.Capture.Card)
			}
		})
	}

	if err := dash.StartRefresh(ctx, cfg.RefreshCron, jobs...); err != nil {
		return err
	}

	appLog.Info("tripcard serving", "listen", cfg.Listen, "cards", len(dash.Cards()), "timezone", loc.String())
	return web.NewServer(cfg, dash, loc).Run(ctx)
}
