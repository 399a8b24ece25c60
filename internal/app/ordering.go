package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"karoo_lodge/internal/domain"
)

// RanksFor turns a display order into 1-based ranks.
func RanksFor(ids []string) []domain.RankAssignment {
	out := make([]domain.RankAssignment, len(ids))
	for i, id := range ids {
		out[i] = domain.RankAssignment{ID: id, SortOrder: i + 1}
	}
	return out
}

// Reorder persists a rank set in one batch upsert keyed by id. Every id must
// already exist, so a reorder never resurrects a row deleted in between. The
// table's maintenance lock is held for the duration; a running dedupe makes
// this fail with ErrBusy.
func (s *AdminService) Reorder(ctx context.Context, c domain.Collection, order []domain.RankAssignment) error {
	if len(order) == 0 {
		return domain.Invalidf("order must not be empty")
	}
	seen := make(map[string]bool, len(order))
	ids := make([]string, 0, len(order))
	for i, a := range order {
		a.ID = strings.TrimSpace(a.ID)
		if err := validate(a); err != nil {
			return domain.Invalidf("order[%d]: %v", i, err)
		}
		if seen[a.ID] {
			return domain.Invalidf("order[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
		ids = append(ids, a.ID)
		order[i] = a
	}

	release, err := lockTable(ctx, s.locks, c.Table())
	if err != nil {
		return err
	}
	defer release()

	rows, err := s.gw.Select(ctx, c.Table(), domain.Query{
		Columns: []string{"id"},
		Filters: []domain.Filter{domain.In("id", ids)},
	})
	if err != nil {
		return err
	}
	found := make(map[string]bool, len(rows))
	for _, r := range rows {
		found[rowString(r, "id")] = true
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownID, strings.Join(missing, ", "))
	}

	batch := make([]domain.Row, len(order))
	for i, a := range order {
		batch[i] = domain.Row{"id": a.ID, "sort_order": a.SortOrder}
	}
	if err := s.gw.Upsert(ctx, c.Table(), batch); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("collection", string(c)).Int("count", len(batch)).Msg("order saved")
	return nil
}
