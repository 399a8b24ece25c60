// Package gateway builds the two privilege variants of the persistence
// gateway and the policy that separates them.
package gateway

import (
	"context"
	"fmt"

	"karoo_lodge/internal/domain"
)

// restricted lets the public surface read content and append submissions,
// and nothing else.
type restricted struct {
	next   domain.Gateway
	reads  map[string]bool
	writes map[string]bool
}

// Restricted wraps g with the public-surface policy.
func Restricted(g domain.Gateway) domain.Gateway {
	r := &restricted{next: g, reads: map[string]bool{}, writes: map[string]bool{}}
	for _, t := range domain.ContentTables() {
		r.reads[t] = true
	}
	for _, t := range domain.SubmissionTables() {
		r.writes[t] = true
	}
	return r
}

func deny(op, table string) error {
	return fmt.Errorf("%w: %s on %s", domain.ErrForbidden, op, table)
}

func (r *restricted) Select(ctx context.Context, table string, q domain.Query) ([]domain.Row, error) {
	if !r.reads[table] {
		return nil, deny("select", table)
	}
	return r.next.Select(ctx, table, q)
}

func (r *restricted) Insert(ctx context.Context, table string, rows ...domain.Row) error {
	if !r.writes[table] {
		return deny("insert", table)
	}
	return r.next.Insert(ctx, table, rows...)
}

func (r *restricted) Update(_ context.Context, table string, _ domain.Row, _ ...domain.Filter) error {
	return deny("update", table)
}

func (r *restricted) Upsert(_ context.Context, table string, _ []domain.Row) error {
	return deny("upsert", table)
}

func (r *restricted) Delete(_ context.Context, table string, _ ...domain.Filter) error {
	return deny("delete", table)
}

// unavailable answers every call with the error that prevented building a
// real gateway, so privileged paths fail explicitly instead of degrading.
type unavailable struct{ err error }

func Unavailable(err error) domain.Gateway { return unavailable{err: err} }

func (u unavailable) Select(context.Context, string, domain.Query) ([]domain.Row, error) {
	return nil, u.err
}

func (u unavailable) Insert(context.Context, string, ...domain.Row) error { return u.err }

func (u unavailable) Update(context.Context, string, domain.Row, ...domain.Filter) error {
	return u.err
}

func (u unavailable) Upsert(context.Context, string, []domain.Row) error { return u.err }

func (u unavailable) Delete(context.Context, string, ...domain.Filter) error { return u.err }
