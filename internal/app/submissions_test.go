package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karoo_lodge/internal/app"
	"karoo_lodge/internal/domain"
	"karoo_lodge/internal/gateway"
)

func TestSubmit_SanitizesAndStores(t *testing.T) {
	st := newStore(t)
	svc := app.NewSubmissionService(gateway.Restricted(st))
	ctx := context.Background()

	id, err := svc.Submit(ctx, domain.WineInquiry{
		WineID:  "w1",
		Name:    "<b>Thandi</b>",
		Email:   "thandi@example.com",
		Message: "Two cases please<script>alert(1)</script>",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rows, err := st.Select(ctx, "wine_inquiries", domain.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Thandi", rows[0]["name"])
	assert.Equal(t, "Two cases please", rows[0]["message"])
	assert.Equal(t, "w1", rows[0]["wine_id"])
}

func TestSubmit_ValidatesBeforeWriting(t *testing.T) {
	st := newStore(t)
	svc := app.NewSubmissionService(gateway.Restricted(st))

	_, err := svc.Submit(context.Background(), domain.BookingRequest{Name: "Lebo", Email: "lebo@example.com", CheckIn: "2025-05-01"})
	require.ErrorIs(t, err, domain.ErrInvalid)

	rows, err := st.Select(context.Background(), "bookings", domain.Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSubmit_Reservation(t *testing.T) {
	st := newStore(t)
	svc := app.NewSubmissionService(gateway.Restricted(st))
	_, err := svc.Submit(context.Background(), domain.RestaurantReservation{
		Name: "Pieter", Email: "pieter@example.com", Date: "2025-07-14", Time: "19:30", Guests: 4,
	})
	require.NoError(t, err)

	subs, err := app.NewAdminService(st, nil).Submissions(context.Background(), domain.SubmissionReservation, 10)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "19:30", subs[0].Fields["time"])
	assert.Equal(t, "4", subs[0].Fields["guests"])
}

func TestHealth_ReportsBothGateways(t *testing.T) {
	st := newStore(t)
	down := gateway.Unavailable(errors.Join(domain.ErrNotConfigured, errors.New("BACKEND_SERVICE_KEY missing")))
	h := app.NewHealth(gateway.Restricted(st), down, app.HealthReport{Driver: "sqlite"})

	rep := h.Check(context.Background())
	assert.Equal(t, "sqlite", rep.Driver)
	assert.True(t, rep.Restricted.OK)
	assert.False(t, rep.Elevated.OK)
	assert.Equal(t, "not_configured", rep.Elevated.Outcome)
	assert.Contains(t, rep.Elevated.Error, "BACKEND_SERVICE_KEY")
}
