package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"karoo_lodge/internal/catalog"
	"karoo_lodge/internal/domain"
)

// SeedReport counts rows written per table.
type SeedReport struct {
	Rooms     int      `json:"rooms"`
	Events    int      `json:"events"`
	Wines     int      `json:"wines"`
	Amenities int      `json:"amenities"`
	Sections  []string `json:"sections,omitempty"` // tables that received a default row
}

// Seeder loads the bundled catalog into the store. Ids are derived from the
// natural key so re-running upserts the same rows; it never deletes.
type Seeder struct {
	gw domain.Gateway
}

func NewSeeder(gw domain.Gateway) *Seeder { return &Seeder{gw: gw} }

// SeedID derives the stable id for a natural key.
func SeedID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}

// keepID reports whether id is an externally assigned RFC 4122 uuid.
func keepID(id string) bool {
	if len(id) != 36 {
		return false
	}
	u, err := uuid.Parse(id)
	if err != nil || u.Variant() != uuid.RFC4122 {
		return false
	}
	v := u.Version()
	return v >= 1 && v <= 5
}

func roomSeedKey(r domain.Room) string { return "room:" + normalizeKey(r.Name) }

func eventSeedKey(e domain.Event) string {
	return "event:" + normalizeKey(e.Title) + ":" + e.Date
}

func wineSeedKey(w domain.Wine) string {
	return "wine:" + normalizeKey(w.Name) + ":" + w.Vintage
}

func amenitySeedKey(a domain.Amenity) string { return "amenity:" + normalizeKey(a.Name) }

// Seed writes every catalog collection, one batch per table, then fills
// empty section tables. A failure stops the run.
func (s *Seeder) Seed(ctx context.Context, cat *catalog.Catalog) (SeedReport, error) {
	var rep SeedReport
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
	if rep.Amenities, err = s.SeedAmenities(ctx, cat.Amenities); err != nil {
		return rep, err
	}
	rep.Sections, err = s.SeedSections(ctx, cat)
	return rep, err
}

func (s *Seeder) SeedRooms(ctx context.Context, items []domain.Room) (int, error) {
	return seedItems(ctx, s.gw, domain.Rooms, items, func(r domain.Room) string { return r.ID }, roomSeedKey)
}

func (s *Seeder) SeedEvents(ctx context.Context, items []domain.Event) (int, error) {
	return seedItems(ctx, s.gw, domain.Events, items, func(e domain.Event) string { return e.ID }, eventSeedKey)
}

func (s *Seeder) SeedWines(ctx context.Context, items []domain.Wine) (int, error) {
	return seedItems(ctx, s.gw, domain.Wines, items, func(w domain.Wine) string { return w.ID }, wineSeedKey)
}

func (s *Seeder) SeedAmenities(ctx context.Context, items []domain.Amenity) (int, error) {
	return seedItems(ctx, s.gw, domain.Amenities, items, func(a domain.Amenity) string { return a.ID }, amenitySeedKey)
}

// seedItems upserts items with rank = position+1. Entries that resolve to
// the same id collapse onto one row and the last one wins.
func seedItems[T any](ctx context.Context, gw domain.Gateway, c domain.Collection, items []T,
	idOf func(T) string, keyOf func(T) string) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	byID := make(map[string]int, len(items))
	batch := make([]domain.Row, 0, len(items))
	for i, it := range items {
		id := idOf(it)
		if !keepID(id) {
			id = SeedID(keyOf(it))
		}
		row, err := toRow(it)
		if err != nil {
			return 0, fmt.Errorf("seed %s[%d]: %w", c, i, err)
		}
		row["id"] = id
		row["sort_order"] = i + 1
		delete(row, "created_at")
		if at, ok := byID[id]; ok {
			batch[at] = row
			continue
		}
		byID[id] = len(batch)
		batch = append(batch, row)
	}
	if err := gw.Upsert(ctx, c.Table(), batch); err != nil {
		return 0, fmt.Errorf("seed %s: %w", c, err)
	}
	log.Ctx(ctx).Info().Str("table", c.Table()).Int("rows", len(batch)).Int("entries", len(items)).Msg("seeded")
	return len(batch), nil
}

// SeedSections inserts the default row for each section table that has
// none. Existing section rows are left alone.
func (s *Seeder) SeedSections(ctx context.Context, cat *catalog.Catalog) ([]string, error) {
	var seeded []string
	for _, k := range domain.SectionKinds {
		rows, err := s.gw.Select(ctx, k.Table(), domain.Query{Columns: []string{"id"}, Limit: 1})
		if err != nil {
			return seeded, fmt.Errorf("seed %s: %w", k.Table(), err)
		}
		if len(rows) > 0 {
			continue
		}
		row, err := toRow(cat.Section(k))
		if err != nil {
			return seeded, fmt.Errorf("seed %s: %w", k.Table(), err)
		}
		row["id"] = k.WellKnownID()
		if err := s.gw.Insert(ctx, k.Table(), row); err != nil {
			return seeded, fmt.Errorf("seed %s: %w", k.Table(), err)
		}
		seeded = append(seeded, k.Table())
	}
	if len(seeded) > 0 {
		log.Ctx(ctx).Info().Strs("tables", seeded).Msg("seeded section defaults")
	}
	return seeded, nil
}
