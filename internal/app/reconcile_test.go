package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karoo_lodge/internal/app"
	"karoo_lodge/internal/catalog"
	"karoo_lodge/internal/domain"
	"karoo_lodge/internal/gateway"
)

func TestNaturalKey(t *testing.T) {
	assert.Equal(t, "karoo rose", app.NaturalKey(domain.Rooms, domain.Row{"name": "  Karoo ROSE "}))
	assert.Equal(t, "harvest|2025-03-01", app.NaturalKey(domain.Events, domain.Row{"title": "Harvest", "date": "2025-03-01"}))
	assert.Equal(t, "shiraz|2019", app.NaturalKey(domain.Wines, domain.Row{"name": "Shiraz", "vintage": int64(2019)}))
	assert.Equal(t, "", app.NaturalKey(domain.Events, domain.Row{"title": " ", "date": "2025-03-01"}))
}

func TestDedupe_KeepsEarliestPerKey(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, "rooms",
		domain.Row{"id": "r2", "name": "karoo rose", "created_at": at(2)},
		domain.Row{"id": "r1", "name": "Karoo Rose", "created_at": at(1)},
		domain.Row{"id": "r3", "name": "Aloe Ferox", "created_at": at(3)},
	))
	require.NoError(t, st.Insert(ctx, "events",
		domain.Row{"id": "e1", "title": "Harvest", "date": "2025-03-01", "created_at": at(1)},
		domain.Row{"id": "e2", "title": "Harvest", "date": "2026-03-01", "created_at": at(2)},
		domain.Row{"id": "e3", "title": "harvest ", "date": "2025-03-01", "created_at": at(3)},
	))
	require.NoError(t, st.Insert(ctx, "wines",
		domain.Row{"id": "w1", "name": "Shiraz", "vintage": "2019", "created_at": at(1)},
		domain.Row{"id": "w2", "name": "Shiraz", "vintage": "2020", "created_at": at(2)},
	))

	rep, err := app.NewReconciler(st, app.NewMemoryLocker()).Dedupe(ctx)
	require.NoError(t, err)
	assert.Equal(t, app.DedupeReport{Rooms: 1, Events: 1, Wines: 0}, rep)
	assert.Equal(t, []string{"r1", "r3"}, ids(t, st, "rooms"))
	assert.Equal(t, []string{"e1", "e2"}, ids(t, st, "events"))
	assert.Equal(t, []string{"w1", "w2"}, ids(t, st, "wines"))
}

func TestDedupe_IsIdempotent(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, "wines",
		domain.Row{"id": "w1", "name": "Chenin Blanc", "vintage": "2021"},
		domain.Row{"id": "w2", "name": "chenin blanc", "vintage": "2021"},
	))
	rec := app.NewReconciler(st, nil)

	first, err := rec.Dedupe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Wines)

	rg := &recordingGateway{Gateway: st}
	second, err := app.NewReconciler(rg, nil).Dedupe(ctx)
	require.NoError(t, err)
	assert.Equal(t, app.DedupeReport{}, second)
	assert.Zero(t, rg.deletes, "no delete issued when nothing is duplicated")
}

func TestDedupe_LeavesBlankKeysAlone(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, "rooms",
		domain.Row{"id": "x1", "name": ""},
		domain.Row{"id": "x2", "name": "  "},
		domain.Row{"id": "x3"},
	))
	n, err := app.NewReconciler(st, nil).DedupeTable(ctx, domain.Rooms)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, ids(t, st, "rooms"), 3)
}

func TestDedupe_FailureStopsRemainingTables(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, "rooms",
		domain.Row{"id": "r1", "name": "Aloe", "created_at": at(1)},
		domain.Row{"id": "r2", "name": "Aloe", "created_at": at(2)},
	))
	require.NoError(t, st.Insert(ctx, "wines",
		domain.Row{"id": "w1", "name": "Shiraz", "vintage": "2019"},
		domain.Row{"id": "w2", "name": "Shiraz", "vintage": "2019"},
	))
	gw := &failingTable{Gateway: st, table: "events", err: errors.New("boom")}

	rep, err := app.NewReconciler(gw, nil).Dedupe(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, rep.Rooms)
	assert.Zero(t, rep.Wines)
	assert.Len(t, ids(t, st, "wines"), 2, "later tables untouched")
}

func TestDedupe_BusyWhenTableLocked(t *testing.T) {
	_, err := app.NewReconciler(newStore(t), busyLocker{}).Dedupe(context.Background())
	assert.ErrorIs(t, err, domain.ErrBusy)
}

func TestSeed_DuplicateNamesCollapseThenDedupeFindsNothing(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	rooms := []domain.Room{
		{RoomFields: domain.RoomFields{Name: "Aloe Ferox"}},
		{RoomFields: domain.RoomFields{Name: "Karoo Rose"}},
		{RoomFields: domain.RoomFields{Name: "Karoo Rose"}},
	}

	n, err := app.NewSeeder(st).SeedRooms(ctx, rooms)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, ids(t, st, "rooms"), 2)

	removed, err := app.NewReconciler(st, nil).DedupeTable(ctx, domain.Rooms)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSeed_IsDeterministicAndKeepsAssignedIDs(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	const assigned = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	wines := []domain.Wine{
		{WineFields: domain.WineFields{Name: "Shiraz", Vintage: "2019"}},
		{ID: assigned, WineFields: domain.WineFields{Name: "Chenin", Vintage: "2021"}},
		{ID: "not-a-uuid", WineFields: domain.WineFields{Name: "Pinotage", Vintage: "2020"}},
	}
	seeder := app.NewSeeder(st)

	_, err := seeder.SeedWines(ctx, wines)
	require.NoError(t, err)
	first := ids(t, st, "wines")
	_, err = seeder.SeedWines(ctx, wines)
	require.NoError(t, err)
	assert.ElementsMatch(t, first, ids(t, st, "wines"))
	assert.Len(t, first, 3)

	assert.Contains(t, first, assigned)
	assert.Contains(t, first, app.SeedID("wine:shiraz:2019"))
	assert.Contains(t, first, app.SeedID("wine:pinotage:2020"))
	assert.NotContains(t, first, "not-a-uuid")
}

func TestSeed_NeverDeletesForeignRows(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.Insert(ctx, "events", domain.Row{"id": "manual", "title": "Private dinner", "date": "2025-06-01"}))

	_, err := app.NewSeeder(st).SeedEvents(ctx, []domain.Event{{EventFields: domain.EventFields{Title: "Harvest", Date: "2025-03-01"}}})
	require.NoError(t, err)
	assert.Contains(t, ids(t, st, "events"), "manual")
}

func TestSeed_CatalogThenRead(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	cat := catalog.Default()

	rep, err := app.NewSeeder(st).Seed(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, len(cat.Rooms), rep.Rooms)
	assert.Len(t, rep.Sections, len(domain.SectionKinds))

	again, err := app.NewSeeder(st).Seed(ctx, cat)
	require.NoError(t, err)
	assert.Empty(t, again.Sections, "existing section rows are kept")

	svc := app.NewContentService(gateway.Restricted(st), catalog.Default(), time.Second)
	r := svc.Rooms(ctx)
	require.Equal(t, app.SourceStore, r.Source)
	require.Len(t, r.Data, len(cat.Rooms))
	for i, room := range r.Data {
		assert.Equal(t, cat.Rooms[i].Name, room.Name)
	}
	assert.Equal(t, app.SourceStore, svc.Contact(ctx).Source)
}

// failingTable errors every select on one table.
type failingTable struct {
	domain.Gateway
	table string
	err   error
}

func (f *failingTable) Select(ctx context.Context, table string, q domain.Query) ([]domain.Row, error) {
	if table == f.table {
		return nil, f.err
	}
	return f.Gateway.Select(ctx, table, q)
}
