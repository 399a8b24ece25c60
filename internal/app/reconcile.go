package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/domain"
)

// DedupeReport counts rows removed per table.
type DedupeReport struct {
	Rooms  int `json:"rooms"`
	Events int `json:"events"`
	Wines  int `json:"wines"`
}

func (r *DedupeReport) set(c domain.Collection, n int) {
	switch c {
	case domain.Rooms:
		r.Rooms = n
	case domain.Events:
		r.Events = n
	case domain.Wines:
		r.Wines = n
	}
}

// NaturalKey derives a row's content identity: the trimmed, lower-cased
// primary text, plus the date (events) or vintage (wines). A blank primary
// text yields "" and the row is never treated as a duplicate.
func NaturalKey(c domain.Collection, r domain.Row) string {
	switch c {
	case domain.Events:
		title := normalizeKey(rowString(r, "title"))
		if title == "" {
			return ""
		}
		return title + "|" + rowString(r, "date")
	case domain.Wines:
		name := normalizeKey(rowString(r, "name"))
		if name == "" {
			return ""
		}
		return name + "|" + rowString(r, "vintage")
	default:
		return normalizeKey(rowString(r, "name"))
	}
}

// Reconciler removes later-created duplicates by natural key.
type Reconciler struct {
	gw    domain.Gateway
	locks domain.Locker
}

func NewReconciler(gw domain.Gateway, locks domain.Locker) *Reconciler {
	return &Reconciler{gw: gw, locks: locks}
}

// Dedupe processes rooms, events and wines in that order. A failure stops
// the run; the report holds what earlier tables removed.
func (r *Reconciler) Dedupe(ctx context.Context) (DedupeReport, error) {
	var rep DedupeReport
	for _, c := range domain.DedupeCollections {
		n, err := r.DedupeTable(ctx, c)
		if err != nil {
			return rep, fmt.Errorf("dedupe %s: %w", c, err)
		}
		rep.set(c, n)
	}
	return rep, nil
}

// DedupeTable keeps the earliest row per natural key and deletes the rest in
// one batch. It returns how many rows were deleted.
func (r *Reconciler) DedupeTable(ctx context.Context, c domain.Collection) (int, error) {
	release, err := lockTable(ctx, r.locks, c.Table())
	if err != nil {
		return 0, err
	}
	defer release()

	rows, err := r.gw.Select(ctx, c.Table(), domain.Query{
		Orders: []domain.Order{domain.Asc("created_at"), domain.Asc("id")},
	})
	if err != nil {
		return 0, err
	}
	victims := Duplicates(c, rows)
	if len(victims) == 0 {
		log.Ctx(ctx).Info().Str("table", c.Table()).Msg("dedupe: no duplicates")
		return 0, nil
	}
	if err := r.gw.Delete(ctx, c.Table(), domain.In("id", victims)); err != nil {
		return 0, err
	}
	observability.ObserveDedupe(c.Table(), len(victims))
	log.Ctx(ctx).Info().Str("table", c.Table()).Int("removed", len(victims)).Msg("dedupe: removed duplicates")
	return len(victims), nil
}

// Duplicates returns the ids of rows whose natural key was already seen
// earlier in rows.
func Duplicates(c domain.Collection, rows []domain.Row) []string {
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, row := range rows {
		key := NaturalKey(c, row)
		if key == "" {
			continue
		}
		if seen[key] {
			if id := rowString(row, "id"); id != "" {
				out = append(out, id)
			}
			continue
		}
		seen[key] = true
	}
	return out
}
