package cli

import (
	"errors"

	"reblock-cli/internal/grid"
	"reblock-cli/internal/store"

	"github.com/spf13/cobra"
)

func newLayoutCmd(app *App) *cobra.Command {
	var width, padding, itemWidth, itemPadding float64
	var minColumns int

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute inserter grid columns for a container width",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("width") {
				return writeErr(cmd, errors.New("missing --width"))
			}
			if !cmd.Flags().Changed("min-columns") {
				if cfg, err := store.LoadConfig(); err == nil {
					minColumns = cfg.MinColumns()
				}
			}
			opts := grid.Options{
				MinColumns:         minColumns,
				HorizontalPadding:  padding,
				ItemIntrinsicWidth: itemWidth,
				ItemPadding:        itemPadding,
			}
			l := grid.ComputeLayout(width, opts)
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"width":     width,
					"options":   opts,
					"layout":    l,
					"itemCells": l.ItemCells(),
				},
			})
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "Container width")
	cmd.Flags().IntVar(&minColumns, "min-columns", grid.DefaultMinColumns, "Fewest columns")
	cmd.Flags().Float64Var(&padding, "padding", 16, "Container horizontal padding (each side)")
	cmd.Flags().Float64Var(&itemWidth, "item-width", 80, "Item intrinsic width")
	cmd.Flags().Float64Var(&itemPadding, "item-padding", grid.DefaultItemPadding, "Item padding (each side)")
	return cmd
}
