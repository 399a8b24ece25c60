package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"karoo_lodge/internal/domain"
)

// AdminService writes content through the elevated gateway. It is only
// reachable from authenticated admin handlers and operator tooling.
type AdminService struct {
	gw    domain.Gateway
	locks domain.Locker
	newID func() string
}

func NewAdminService(gw domain.Gateway, locks domain.Locker) *AdminService {
	return &AdminService{gw: gw, locks: locks, newID: newItemID}
}

func newItemID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// UpsertSection updates the section's existing row or, when the table is
// empty, inserts it under the kind's well-known id. It returns the row id.
func (s *AdminService) UpsertSection(ctx context.Context, sec domain.Section) (string, error) {
	if sec == nil {
		return "", domain.Invalidf("section payload is required")
	}
	if err := validate(sec); err != nil {
		return "", err
	}
	if g, ok := sec.(domain.GallerySection); ok {
		g.Images = g.Slots()
		sec = g
	}
	k := sec.Kind()
	row, err := toRow(sec)
	if err != nil {
		return "", err
	}

	existing, err := s.gw.Select(ctx, k.Table(), domain.Query{
		Columns: []string{"id"},
		Orders:  []domain.Order{domain.Asc("created_at")},
		Limit:   1,
	})
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		if id := rowString(existing[0], "id"); id != "" {
			if err := s.gw.Update(ctx, k.Table(), row, domain.Eq("id", id)); err != nil {
				return "", err
			}
			log.Ctx(ctx).Info().Str("section", string(k)).Str("id", id).Msg("section updated")
			return id, nil
		}
	}

	id := k.WellKnownID()
	row["id"] = id
	if err := s.gw.Insert(ctx, k.Table(), row); err != nil {
		return "", err
	}
	log.Ctx(ctx).Info().Str("section", string(k)).Str("id", id).Msg("section created")
	return id, nil
}

// CreateItem inserts a new collection item under a fresh id. New items have
// no rank and sort after ranked ones.
func (s *AdminService) CreateItem(ctx context.Context, f domain.Editable) (string, error) {
	if f == nil {
		return "", domain.Invalidf("payload is required")
	}
	if err := validate(f); err != nil {
		return "", err
	}
	row, err := toRow(f)
	if err != nil {
		return "", err
	}
	id := s.newID()
	row["id"] = id
	c := f.Collection()
	if err := s.gw.Insert(ctx, c.Table(), row); err != nil {
		return "", err
	}
	log.Ctx(ctx).Info().Str("collection", string(c)).Str("id", id).Msg("item created")
	return id, nil
}

// UpdateItem replaces every editable field of the item with the given id.
func (s *AdminService) UpdateItem(ctx context.Context, id string, f domain.Editable) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Invalidf("id is required")
	}
	if f == nil {
		return domain.Invalidf("payload is required")
	}
	if err := validate(f); err != nil {
		return err
	}
	c := f.Collection()
	if err := s.mustExist(ctx, c, id); err != nil {
		return err
	}
	row, err := toRow(f)
	if err != nil {
		return err
	}
	if err := s.gw.Update(ctx, c.Table(), row, domain.Eq("id", id)); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("collection", string(c)).Str("id", id).Msg("item updated")
	return nil
}

func (s *AdminService) DeleteItem(ctx context.Context, c domain.Collection, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Invalidf("id is required")
	}
	if err := s.gw.Delete(ctx, c.Table(), domain.Eq("id", id)); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("collection", string(c)).Str("id", id).Msg("item deleted")
	return nil
}

func (s *AdminService) mustExist(ctx context.Context, c domain.Collection, id string) error {
	rows, err := s.gw.Select(ctx, c.Table(), domain.Query{
		Columns: []string{"id"},
		Filters: []domain.Filter{domain.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, c, id)
	}
	return nil
}

// Submissions lists one submission table, newest first.
func (s *AdminService) Submissions(ctx context.Context, k domain.SubmissionKind, limit int) ([]domain.Submission, error) {
	if k.Table() == "" {
		return nil, domain.Invalidf("unknown submission kind %q", k)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.gw.Select(ctx, k.Table(), domain.Query{
		Orders: []domain.Order{domain.Desc("created_at")},
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, submissionFromRow(k, r))
	}
	return out, nil
}

var submissionCore = map[string]bool{"id": true, "name": true, "email": true, "message": true, "created_at": true}

func submissionFromRow(k domain.SubmissionKind, r domain.Row) domain.Submission {
	sub := domain.Submission{
		Kind:      k,
		ID:        rowString(r, "id"),
		Name:      rowString(r, "name"),
		Email:     rowString(r, "email"),
		Message:   rowString(r, "message"),
		RelatedID: rowString(r, "event_id", "wine_id", "room_id"),
		CreatedAt: rowTime(r, "created_at"),
	}
	for col := range r {
		if submissionCore[col] {
			continue
		}
		if v := rowString(r, col); v != "" {
			if sub.Fields == nil {
				sub.Fields = map[string]string{}
			}
			sub.Fields[col] = v
		}
	}
	return sub
}
