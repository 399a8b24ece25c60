package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"karoo_lodge/internal/app"
	"karoo_lodge/internal/catalog"
	"karoo_lodge/internal/gateway"
)

var (
	seedSections bool
	remote       bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the bundled catalog into the store",
	Long: `Upsert every catalog room, event, wine and amenity under ids derived
from its natural key, so running it twice writes the same rows. Rows the
seed did not create are never deleted.

Examples:
  lodgectl seed                  # collections and empty sections
  lodgectl seed --sections=false # collections only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		gw, err := gateway.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer gw.Close()
		if gw.ElevatedErr != nil {
			return gw.ElevatedErr
		}
		if gw.SQL != nil {
			if err := gw.SQL.Migrate(ctx); err != nil {
				return err
			}
		}

		s := app.NewSeeder(gw.Elevated)
		cat := catalog.Default()
		var rep app.SeedReport
		if seedSections {
			rep, err = s.Seed(ctx, cat)
		} else {
			rep, err = seedCollections(cmd, s, cat)
		}
		if err != nil {
			return err
		}
		return report(cmd, rep, fmt.Sprintf("seeded rooms=%d events=%d wines=%d amenities=%d sections=[%s]",
			rep.Rooms, rep.Events, rep.Wines, rep.Amenities, strings.Join(rep.Sections, ",")))
	},
}

func seedCollections(cmd *cobra.Command, s *app.Seeder, cat *catalog.Catalog) (app.SeedReport, error) {
	ctx := cmd.Context()
	var rep app.SeedReport
	var err error
	if rep.Rooms, err = s.SeedRooms(ctx, cat.Rooms); err != nil {
		return rep, err
	}
	if rep.Events, err = s.SeedEvents(ctx, cat.Events); err != nil {
		return rep, err
	}
	if rep.Wines, err = s.SeedWines(ctx, cat.Wines); err != nil {
		return rep, err
	}
	rep.Amenities, err = s.SeedAmenities(ctx, cat.Amenities)
	return rep, err
}

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Delete later duplicates of rooms, events and wines",
	Long: `Keep the earliest row per natural key (room name, event title and date,
wine name and vintage) and delete the rest.

Examples:
  lodgectl dedupe            # against the local store
  lodgectl dedupe --remote   # via the maintenance endpoint`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var rep app.DedupeReport
		if remote {
			c, err := apiClient()
			if err != nil {
				return err
			}
			if rep, err = c.Dedupe(ctx); err != nil {
				return err
			}
		} else {
			gw, err := gateway.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer gw.Close()
			locks, closeLocks, err := gateway.OpenLocker(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeLocks()
			rep, err = app.NewReconciler(gw.Elevated, locks).Dedupe(ctx)
			if err != nil {
				_ = report(cmd, rep, fmt.Sprintf("partial: rooms=%d events=%d wines=%d", rep.Rooms, rep.Events, rep.Wines))
				return err
			}
		}
		return report(cmd, rep, fmt.Sprintf("removed rooms=%d events=%d wines=%d", rep.Rooms, rep.Events, rep.Wines))
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the content and submission tables (SQL drivers)",
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gateway.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer gw.Close()
		if gw.SQL == nil {
			return fmt.Errorf("migrate needs STORE_DRIVER=mysql or sqlite, have %q", cfg.StoreDriver)
		}
		if err := gw.SQL.Migrate(cmd.Context()); err != nil {
			return err
		}
		return report(cmd, map[string]any{"ok": true}, "schema up to date")
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedSections, "sections", true, "Also insert default rows into empty section tables")
	dedupeCmd.Flags().BoolVar(&remote, "remote", false, "Run through the maintenance endpoint of --api")
	rootCmd.AddCommand(seedCmd, dedupeCmd, migrateCmd)
}
