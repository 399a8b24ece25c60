package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/domain"
)

// Probe is the outcome of one gateway round trip.
type Probe struct {
	OK        bool   `json:"ok"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type HealthReport struct {
	Driver     string `json:"driver"`
	Restricted Probe  `json:"restricted"`
	Elevated   Probe  `json:"elevated"`
	// configuration flags, never the values
	ServiceKey       bool `json:"service_key_configured"`
	MaintenanceToken bool `json:"maintenance_token_configured"`
	SharedLock       bool `json:"shared_lock"`
}

// Health checks both gateway variants for the admin health view.
type Health struct {
	restricted domain.Gateway
	elevated   domain.Gateway
	base       HealthReport
}

func NewHealth(restricted, elevated domain.Gateway, flags HealthReport) *Health {
	return &Health{restricted: restricted, elevated: elevated, base: flags}
}

func (h *Health) Check(ctx context.Context) HealthReport {
	rep := h.base
	var g errgroup.Group
	g.Go(func() error { rep.Restricted = probe(ctx, h.restricted); return nil })
	g.Go(func() error { rep.Elevated = probe(ctx, h.elevated); return nil })
	_ = g.Wait()
	return rep
}

func probe(ctx context.Context, gw domain.Gateway) Probe {
	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()
	start := time.Now()
	_, err := gw.Select(ctx, domain.SectionHero.Table(), domain.Query{Columns: []string{"id"}, Limit: 1})
	p := Probe{OK: err == nil, Outcome: observability.LabelErr(err), LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		p.Error = err.Error()
	}
	return p
}
