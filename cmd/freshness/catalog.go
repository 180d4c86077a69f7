package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franckalain/freshness/internal/app"
	"github.com/franckalain/freshness/internal/catalog"
)

// withCatalog runs fn against the configured catalog and closes any backing
// database afterwards
func withCatalog(cmd *cobra.Command, fn func(*catalog.Catalog) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, db, err := app.LoadCatalog(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	return fn(c)
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List supported produce items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(c *catalog.Catalog) error {
			for _, item := range c.Items() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", item.Value, item.Label)
			}
			return nil
		})
	},
}

var shelfLifeCmd = &cobra.Command{
	Use:   "shelf-life <item>",
	Short: "Show shelf life in days per storage condition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(c *catalog.Catalog) error {
			p, err := c.Lookup(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", p.Label)
			fmt.Fprintf(cmd.OutOrStdout(), "  Ideal Storage: %g days\n", p.IdealDays)
			fmt.Fprintf(cmd.OutOrStdout(), "  Room Temp:     %g days\n", p.RoomDays)
			fmt.Fprintf(cmd.OutOrStdout(), "  High Humidity: %g days\n", p.HumidDays)
			return nil
		})
	},
}

var (
	setIdeal float64
	setRoom  float64
	setHumid float64
)

var shelfLifeSetCmd = &cobra.Command{
	Use:   "set <item>",
	Short: "Store shelf life for an item in the SQLite catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if setIdeal <= 0 || setRoom <= 0 || setHumid <= 0 {
			return fmt.Errorf("--ideal, --room and --humid must be positive")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Catalog.Path == "" {
			return fmt.Errorf("shelf-life set needs a SQLite catalog (--catalog-db or catalog.path)")
		}

		c, db, err := app.LoadCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		p, err := c.Lookup(args[0])
		if err != nil {
			return err
		}
		p.IdealDays, p.RoomDays, p.HumidDays = setIdeal, setRoom, setHumid
		if err := db.SaveProfile(cmd.Context(), p); err != nil {
			return fmt.Errorf("save shelf life: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: ideal %g, room %g, humid %g days\n",
			p.Label, p.IdealDays, p.RoomDays, p.HumidDays)
		return nil
	},
}

func init() {
	shelfLifeSetCmd.Flags().Float64Var(&setIdeal, "ideal", 0, "Days under ideal storage")
	shelfLifeSetCmd.Flags().Float64Var(&setRoom, "room", 0, "Days at room temperature")
	shelfLifeSetCmd.Flags().Float64Var(&setHumid, "humid", 0, "Days under high humidity")
	shelfLifeCmd.AddCommand(shelfLifeSetCmd)

	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(shelfLifeCmd)
}
