package main

import (
	"github.com/spf13/cobra"

	"tripcard/internal/capture"
)

func newCaptureCommand(a *app) *cobra.Command {
	var (
		url  string
		opts capture.Options
	)

	cmd := &cobra.Command{
		Use:   "capture [card]",
		Short: "Screenshot a card page served by a running tripcard",
		Example: `
tripcard capture
tripcard capture trip --out /var/lib/tripcard/preview.png --width 800
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			name := cfg.Capture.Card
			if len(args) == 1 {
				name = args[0]
			}
			if _, err := pickCard(cfg, name); err != nil {
				return err
			}

			opts.URL = url
			if opts.URL == "" {
				opts.URL = "http://" + cfg.Listen + "/cards/" + name
			}
			if opts.OutputPath == "" {
				opts.OutputPath = cfg.Capture.Output
			}
			if opts.Width == 0 {
				opts.Width = cfg.Capture.Width
			}
			if opts.Height == 0 {
				opts.Height = cfg.Capture.Height
			}
			return capture.CardPNG(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Page URL (defaults to the card page on the configured listen address)")
	cmd.Flags().StringVar(&opts.OutputPath, "out", "", "PNG output path (defaults to config capture.output)")
	cmd.Flags().IntVar(&opts.Width, "width", 0, "Viewport width")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "Viewport height")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Overall capture timeout")
	return cmd
}
