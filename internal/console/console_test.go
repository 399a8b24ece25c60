package console_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karoo_lodge/internal/app"
	"karoo_lodge/internal/console"
	"karoo_lodge/internal/domain"
	"karoo_lodge/internal/storage/sqlstore"
)

// ---- fakes ----

type fakeBackend struct {
	mu         sync.Mutex
	reorderErr error
	saveErr    error
	deleteErr  error
	orders     [][]domain.RankAssignment
	gate       chan struct{} // when set, Reorder waits on it
}

func (f *fakeBackend) UpsertSection(context.Context, domain.Section) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return "hero", f.saveErr
}

func (f *fakeBackend) CreateItem(context.Context, domain.Editable) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	return "new-id", nil
}

func (f *fakeBackend) UpdateItem(context.Context, string, domain.Editable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveErr
}

func (f *fakeBackend) DeleteItem(context.Context, domain.Collection, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeBackend) Reorder(_ context.Context, _ domain.Collection, order []domain.RankAssignment) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	return f.reorderErr
}

func (f *fakeBackend) setReorderErr(err error) {
	f.mu.Lock()
	f.reorderErr = err
	f.mu.Unlock()
}

func wines(ids ...string) []console.Entry[domain.WineFields] {
	out := make([]console.Entry[domain.WineFields], len(ids))
	for i, id := range ids {
		out[i] = console.Entry[domain.WineFields]{ID: id, Fields: domain.WineFields{Name: "Wine " + id}}
	}
	return out
}

// ---- tests ----

func TestArrange_AppliesLocallyBeforePersisting(t *testing.T) {
	b := &fakeBackend{gate: make(chan struct{})}
	m := console.NewCollectionManager(b, wines("a", "b", "c"))

	require.NoError(t, m.Arrange(context.Background(), []string{"c", "a", "b"}))
	assert.Equal(t, []string{"c", "a", "b"}, m.Order(), "visible before the backend answered")

	close(b.gate)
	m.Wait()
	require.Len(t, b.orders, 1)
	assert.Equal(t, app.RanksFor([]string{"c", "a", "b"}), b.orders[0])
	assert.False(t, m.ReorderFailed())
	assert.False(t, m.HasErrors())
}

func TestArrange_FailureKeepsOrderAndOffersRetry(t *testing.T) {
	b := &fakeBackend{reorderErr: errors.New("network down")}
	m := console.NewCollectionManager(b, wines("a", "b"))

	require.NoError(t, m.Move(context.Background(), 1, 0))
	m.Wait()
	assert.Equal(t, []string{"b", "a"}, m.Order(), "failed persistence does not revert the view")
	assert.True(t, m.ReorderFailed())

	ns := m.Notices()
	require.Len(t, ns, 1)
	assert.Equal(t, console.NoticeError, ns[0].Level)
	assert.False(t, m.Dismiss(ns[0].Topic), "errors cannot be dismissed")

	b.setReorderErr(nil)
	require.NoError(t, m.RetryReorder(context.Background()))
	assert.False(t, m.ReorderFailed())
	assert.False(t, m.HasErrors())
	ns = m.Notices()
	require.Len(t, ns, 1)
	assert.Equal(t, console.NoticeInfo, ns[0].Level)
	assert.True(t, m.Dismiss(ns[0].Topic))
}

func TestArrange_RejectsNonPermutation(t *testing.T) {
	m := console.NewCollectionManager(&fakeBackend{}, wines("a", "b"))
	assert.ErrorIs(t, m.Arrange(context.Background(), []string{"a"}), domain.ErrInvalid)
	assert.ErrorIs(t, m.Arrange(context.Background(), []string{"a", "a"}), domain.ErrInvalid)
	assert.ErrorIs(t, m.Move(context.Background(), 0, 5), domain.ErrInvalid)
}

func TestSave_TracksStates(t *testing.T) {
	b := &fakeBackend{}
	m := console.NewCollectionManager(b, wines("a"))

	id, err := m.Save(context.Background(), "", domain.WineFields{Name: "Pinotage"})
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
	es := m.Entries()
	require.Len(t, es, 2)
	assert.Equal(t, "new-id", es[1].ID)
	assert.Equal(t, console.StateConfirmed, es[1].State)

	b.saveErr = errors.New("validation failed")
	_, err = m.Save(context.Background(), "a", domain.WineFields{Name: "Renamed"})
	require.Error(t, err)
	es = m.Entries()
	assert.Equal(t, "Renamed", es[0].Fields.Name, "local view keeps the edit")
	assert.Equal(t, console.StateFailed, es[0].State)
	assert.True(t, m.HasErrors())
}

func TestDelete_FailureRestoresEntry(t *testing.T) {
	b := &fakeBackend{deleteErr: errors.New("forbidden")}
	m := console.NewCollectionManager(b, wines("a", "b", "c"))

	require.Error(t, m.Delete(context.Background(), "b"))
	es := m.Entries()
	require.Len(t, es, 3)
	assert.Equal(t, "b", es[1].ID)
	assert.Equal(t, console.StateFailed, es[1].State)

	b.deleteErr = nil
	require.NoError(t, m.Delete(context.Background(), "b"))
	assert.Equal(t, []string{"a", "c"}, m.Order())
}

func TestSectionEditor_FailureThenRetry(t *testing.T) {
	b := &fakeBackend{saveErr: errors.New("timeout")}
	e := console.NewSectionEditor(b, domain.HeroSection{Title: "Default"})

	require.Error(t, e.Save(context.Background(), domain.HeroSection{Title: "Edited"}))
	cur, st, err := e.Current()
	assert.Equal(t, "Edited", cur.Title)
	assert.Equal(t, console.StateFailed, st)
	assert.Error(t, err)
	assert.True(t, e.HasErrors())

	b.mu.Lock()
	b.saveErr = nil
	b.mu.Unlock()
	require.NoError(t, e.Retry(context.Background()))
	_, st, _ = e.Current()
	assert.Equal(t, console.StateConfirmed, st)
	assert.Equal(t, "hero", e.ID())
	assert.False(t, e.HasErrors())
}

func TestCollectionManager_AgainstAdminService(t *testing.T) {
	ctx := context.Background()
	st, err := sqlstore.Open(ctx, sqlstore.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Insert(ctx, "rooms",
		domain.Row{"id": "a", "name": "Aloe"},
		domain.Row{"id": "b", "name": "Bushwillow"},
	))
	admin := app.NewAdminService(st, app.NewMemoryLocker())

	m := console.NewCollectionManager(admin, []console.Entry[domain.RoomFields]{
		{ID: "a", Fields: domain.RoomFields{Name: "Aloe"}},
		{ID: "b", Fields: domain.RoomFields{Name: "Bushwillow"}},
	})
	require.NoError(t, m.Arrange(ctx, []string{"b", "a"}))
	m.Wait()
	require.False(t, m.ReorderFailed())

	rows, err := st.Select(ctx, "rooms", domain.Query{Orders: []domain.Order{domain.Asc("sort_order")}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0]["id"])
	assert.EqualValues(t, 1, rows[0]["sort_order"])
}

// failFirstCreate lets the first CreateItem fail and forwards everything
// else to the wrapped backend.
type failFirstCreate struct {
	console.Backend
	failed bool
}

func (f *failFirstCreate) CreateItem(ctx context.Context, fl domain.Editable) (string, error) {
	if !f.failed {
		f.failed = true
		return "", errors.New("connection reset")
	}
	return f.Backend.CreateItem(ctx, fl)
}

func TestFailedCreate_DoesNotBlockReorder(t *testing.T) {
	ctx := context.Background()
	st, err := sqlstore.Open(ctx, sqlstore.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Insert(ctx, "wines",
		domain.Row{"id": "a", "name": "Chenin"},
		domain.Row{"id": "b", "name": "Pinotage"},
	))
	b := &failFirstCreate{Backend: app.NewAdminService(st, app.NewMemoryLocker())}
	m := console.NewCollectionManager(b, wines("a", "b"))

	_, err = m.Save(ctx, "", domain.WineFields{Name: "Shiraz"})
	require.Error(t, err)
	es := m.Entries()
	require.Len(t, es, 3)
	assert.Empty(t, es[2].ID)
	assert.Equal(t, console.StateFailed, es[2].State)
	assert.Equal(t, []string{"a", "b"}, m.Order(), "unsaved entries are not ranked")

	require.NoError(t, m.Move(ctx, 1, 0))
	m.Wait()
	require.False(t, m.ReorderFailed(), "%v", m.Notices())
	assert.Equal(t, "Shiraz", m.Entries()[2].Fields.Name, "the draft keeps its slot")

	rows, err := st.Select(ctx, "wines", domain.Query{Orders: []domain.Order{domain.Asc("sort_order")}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0]["id"])
	assert.EqualValues(t, 1, rows[0]["sort_order"])
	assert.EqualValues(t, 2, rows[1]["sort_order"])

	id, err := m.RetrySave(ctx, es[2].Key())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Len(t, m.Entries(), 3, "retry reuses the failed entry")
	assert.Equal(t, []string{"b", "a", id}, m.Order())
	assert.False(t, m.HasErrors())
}

func TestFailedCreate_CanBeDiscarded(t *testing.T) {
	b := &fakeBackend{saveErr: errors.New("validation failed")}
	m := console.NewCollectionManager(b, wines("a"))

	_, err := m.Save(context.Background(), "", domain.WineFields{Name: "Shiraz"})
	require.Error(t, err)
	require.True(t, m.HasErrors())

	require.NoError(t, m.Delete(context.Background(), ""), "dropped locally")
	assert.Len(t, m.Entries(), 1)
	assert.False(t, m.HasErrors())

	_, err = m.Save(context.Background(), "", domain.WineFields{Name: "Merlot"})
	require.Error(t, err)
	draft := m.Entries()[1]
	assert.ErrorIs(t, m.Discard(m.Entries()[0].Key()), domain.ErrInvalid, "stored entries need Delete")
	require.NoError(t, m.Discard(draft.Key()))
	assert.Equal(t, []string{"a"}, m.Order())
	assert.ErrorIs(t, m.Discard(draft.Key()), domain.ErrNotFound)
}
