package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"tripcard/internal/card"
	"tripcard/internal/model"
)

func newCardsCommand(a *app) *cobra.Command {
	var configured bool

	cmd := &cobra.Command{
		Use:   "cards",
		Short: "List registered card types, or the configured cards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tbl := uitable.New()
			tbl.Separator = "  "
			if configured {
				tbl.AddRow("NAME", "TYPE", "MODE")
				for _, cc := range a.cfg.Cards {
					tbl.AddRow(cc.Name, cc.Type, model.NewRenderConfig(cc.Options).Mode)
				}
			} else {
				tbl.AddRow("TYPE", "NAME", "DESCRIPTION")
				for _, d := range card.NewRegistry().Descriptors() {
					tbl.AddRow(d.Type, d.Name, d.Description)
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl)
			return err
		},
	}
	cmd.Flags().BoolVar(&configured, "configured", false, "List cards from the config file instead of types")
	return cmd
}
