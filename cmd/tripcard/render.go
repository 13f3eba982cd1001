package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tripcard/internal/card"
	"tripcard/internal/config"
	"tripcard/internal/format"
	"tripcard/internal/ics"
	appLog "tripcard/internal/log"
	"tripcard/internal/render"
	"tripcard/internal/states"
)

type renderOptions struct {
	card       string
	statesPath string
	entity     string
	mode       string
	page       bool
	ics        bool
	at         string
}

func newRenderCommand(a *app) *cobra.Command {
	o := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render [card]",
		Short: "Render one configured card to stdout",
		Example: `
tripcard render trip
tripcard render trip --states ./states.json --mode timeline --page > trip.html
tripcard render trip --ics > trip.ics
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				o.card = args[0]
			}
			out, err := a.render(o)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&o.statesPath, "states", "", "States JSON file (defaults to config states_path)")
	cmd.Flags().StringVar(&o.entity, "entity", "", "Override the card's entity")
	cmd.Flags().StringVar(&o.mode, "mode", "", "Override the card's mode: hero, timeline, details, overview")
	cmd.Flags().BoolVar(&o.page, "page", false, "Wrap the card in a standalone HTML page")
	cmd.Flags().BoolVar(&o.ics, "ics", false, "Emit the itinerary as iCalendar instead of HTML")
	cmd.Flags().StringVar(&o.at, "at", "", "Render as of this RFC 3339 instant instead of now")
	return cmd
}

func (a *app) render(o *renderOptions) (string, error) {
	cfg := a.cfg
	cc, err := pickCard(cfg, o.card)
	if err != nil {
		return "", err
	}

	opts := make(map[string]any, len(cc.Options)+2)
	for k, v := range cc.Options {
		opts[k] = v
	}
	if o.entity != "" {
		opts["entity"] = o.entity
	}
	if o.mode != "" {
		opts["mode"] = o.mode
	}

	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("invalid timezone; using local", "error", err)
	}
	cardOpts := []card.Option{card.WithLocation(loc)}
	if o.at != "" {
		at, err := time.Parse(time.RFC3339, o.at)
		if err != nil {
			return "", fmt.Errorf("--at: %w", err)
		}
		cardOpts = append(cardOpts, card.WithClock(func() time.Time { return at }))
	}

	c, err := card.NewRegistry().New(cc.Type, cardOpts...)
	if err != nil {
		return "", err
	}
	if err := c.SetConfig(opts); err != nil {
		return "", err
	}

	path := o.statesPath
	if path == "" {
		path = cfg.StatesPath
	}
	store := states.NewStore(path)
	if err := store.Reload(); err != nil {
		return "", err
	}
	c.SetStates(store)

	rc, _ := c.Config()
	if _, err := store.Lookup(rc.Entity); err != nil {
		appLog.Warn("rendering without state", "error", err)
		if o.ics {
			return "", err
		}
	}

	if o.ics {
		state, _ := c.State()
		x := ics.Exporter{Format: format.Formatter{Location: loc}}
		return x.Export(cc.Name, state), nil
	}
	if o.page {
		return render.Page(cc.Name, c.HTML())
	}
	return c.HTML(), nil
}

// pickCard returns the named card, or the first configured one when name is
// empty.
func pickCard(cfg *config.Config, name string) (config.CardConfig, error) {
	if name == "" {
		if len(cfg.Cards) == 0 {
			return config.CardConfig{}, fmt.Errorf("no cards configured")
		}
		return cfg.Cards[0], nil
	}
	cc, ok := cfg.Card(name)
	if !ok {
		return config.CardConfig{}, fmt.Errorf("unknown card %q", name)
	}
	return cc, nil
}
