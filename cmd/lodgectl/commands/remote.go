package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"karoo_lodge/internal/adapters/adminapi"
	server "karoo_lodge/internal/adapters/http_server"
	"karoo_lodge/internal/app"
	"karoo_lodge/internal/console"
	"karoo_lodge/internal/domain"
)

var (
	payloadFile string
	subject     string
	tokenTTL    time.Duration
)

var reorderCmd = &cobra.Command{
	Use:   "reorder <collection> <id>...",
	Short: "Put the given ids first, in that order",
	Long: `Rank the listed items 1..n; items not listed keep their relative order
after them.

Examples:
  lodgectl reorder rooms 3f0c... 91aa...`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		coll, ok := domain.ParseCollection(args[0])
		if !ok {
			return fmt.Errorf("unknown collection %q", args[0])
		}
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		switch coll {
		case domain.Rooms:
			err = reorder(ctx, c, coll, func(r domain.Room) (string, domain.RoomFields) { return r.ID, r.RoomFields }, args[1:])
		case domain.Events:
			err = reorder(ctx, c, coll, func(e domain.Event) (string, domain.EventFields) { return e.ID, e.EventFields }, args[1:])
		case domain.Wines:
			err = reorder(ctx, c, coll, func(w domain.Wine) (string, domain.WineFields) { return w.ID, w.WineFields }, args[1:])
		case domain.Amenities:
			err = reorder(ctx, c, coll, func(a domain.Amenity) (string, domain.AmenityFields) { return a.ID, a.AmenityFields }, args[1:])
		}
		if err != nil {
			return err
		}
		return report(cmd, map[string]any{"ok": true}, "order saved")
	},
}

func reorder[T any, F domain.Editable](ctx context.Context, c *adminapi.Client, coll domain.Collection,
	split func(T) (string, F), first []string) error {
	page, err := adminapi.Collection[T](ctx, c, coll)
	if err != nil {
		return err
	}
	if page.Source != app.SourceStore {
		return fmt.Errorf("%s has no stored rows yet; run lodgectl seed first", coll)
	}
	m := console.NewCollectionManager(c, console.Entries(page.Data, split))
	order := slices.Clone(first)
	for _, id := range m.Order() {
		if !slices.Contains(first, id) {
			order = append(order, id)
		}
	}
	if err := m.Arrange(ctx, order); err != nil {
		return err
	}
	m.Wait()
	if m.ReorderFailed() {
		// one more attempt before giving up
		if err := m.RetryReorder(ctx); err != nil {
			return fmt.Errorf("%w: %s", err, lastError(m.Notices()))
		}
	}
	return nil
}

func lastError(ns []console.Notice) string {
	for i := len(ns) - 1; i >= 0; i-- {
		if ns[i].Level == console.NoticeError {
			return ns[i].Text
		}
	}
	return ""
}

var sectionCmd = &cobra.Command{
	Use:   "section",
	Short: "Edit singleton page sections",
}

var sectionSetCmd = &cobra.Command{
	Use:   "set <kind> --file payload.json",
	Short: "Replace a section with the fields in a JSON file",
	Long: `Kinds: hero, restaurant, bar, wine-boutique, gallery, contact.

Examples:
  lodgectl section set hero --file hero.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, ok := domain.ParseSectionKind(args[0])
		if !ok {
			return fmt.Errorf("unknown section %q", args[0])
		}
		raw, err := os.ReadFile(payloadFile)
		if err != nil {
			return err
		}
		c, err := apiClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		var id string
		switch k {
		case domain.SectionHero:
			id, err = setSection[domain.HeroSection](ctx, c, raw)
		case domain.SectionRestaurant:
			id, err = setSection[domain.RestaurantSection](ctx, c, raw)
		case domain.SectionBar:
			id, err = setSection[domain.BarSection](ctx, c, raw)
		case domain.SectionWineBoutique:
			id, err = setSection[domain.WineBoutiqueSection](ctx, c, raw)
		case domain.SectionGallery:
			id, err = setSection[domain.GallerySection](ctx, c, raw)
		case domain.SectionContact:
			id, err = setSection[domain.ContactSection](ctx, c, raw)
		}
		if err != nil {
			return err
		}
		return report(cmd, map[string]any{"ok": true, "id": id}, fmt.Sprintf("%s saved (id %s)", k.Slug(), id))
	},
}

func setSection[S domain.Section](ctx context.Context, c *adminapi.Client, raw []byte) (string, error) {
	var sec S
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sec); err != nil {
		return "", fmt.Errorf("payload: %w", err)
	}
	current, err := adminapi.Section[S](ctx, c, sec.Kind())
	if err != nil {
		return "", err
	}
	ed := console.NewSectionEditor(c, current.Data)
	if err := ed.Save(ctx, sec); err != nil {
		return "", err
	}
	return ed.ID(), nil
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token signed with ADMIN_JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := server.IssueAdminToken(cfg.AdminJWTSecret, subject, tokenTTL)
		if err != nil {
			return err
		}
		return report(cmd, map[string]any{"token": tok, "expires_in": tokenTTL.String()}, tok)
	},
}

func init() {
	sectionSetCmd.Flags().StringVarP(&payloadFile, "file", "f", "", "JSON payload with the section fields")
	_ = sectionSetCmd.MarkFlagRequired("file")
	sectionCmd.AddCommand(sectionSetCmd)

	tokenCmd.Flags().StringVar(&subject, "subject", strings.TrimSpace(os.Getenv("USER")), "Token subject (operator name)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "Token lifetime")

	rootCmd.AddCommand(reorderCmd, sectionCmd, tokenCmd)
}
