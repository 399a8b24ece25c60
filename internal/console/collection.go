package console

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"karoo_lodge/internal/app"
	"karoo_lodge/internal/domain"
)

// Entry is one item of a collection as the editor holds it.
type Entry[F domain.Editable] struct {
	ID     string
	Fields F
	State  SaveState
	Err    error

	key int // local identity, stable before an id is assigned
}

// Entries builds editor entries from items read back from the site.
func Entries[T any, F domain.Editable](items []T, split func(T) (string, F)) []Entry[F] {
	out := make([]Entry[F], len(items))
	for i, it := range items {
		id, f := split(it)
		out[i] = Entry[F]{ID: id, Fields: f}
	}
	return out
}

const topicOrder = "order"

// CollectionManager edits one ordered collection. Local state changes
// first; persistence follows and its outcome is recorded per entry.
type CollectionManager[F domain.Editable] struct {
	notices

	b    Backend
	coll domain.Collection

	mu      sync.Mutex
	entries []Entry[F]
	failed  []string // order that did not persist
	gen     int
	nextKey int
	wg      sync.WaitGroup
}

func NewCollectionManager[F domain.Editable](b Backend, entries []Entry[F]) *CollectionManager[F] {
	var zero F
	m := &CollectionManager[F]{b: b, coll: zero.Collection(), entries: slices.Clone(entries)}
	for i := range m.entries {
		m.entries[i].key = m.newKeyLocked()
	}
	return m
}

func (m *CollectionManager[F]) newKeyLocked() int {
	m.nextKey++
	return m.nextKey
}

func (m *CollectionManager[F]) Entries() []Entry[F] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// Key identifies the entry locally, also before the backend assigned an id.
func (e Entry[F]) Key() int { return e.key }

// Order returns the ids of stored entries in display order. Entries that
// have no id yet are not part of it.
func (m *CollectionManager[F]) Order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderLocked()
}

func (m *CollectionManager[F]) orderLocked() []string {
	ids := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if e.ID != "" {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func (m *CollectionManager[F]) indexLocked(id string) int {
	return slices.IndexFunc(m.entries, func(e Entry[F]) bool { return e.ID == id })
}

func (m *CollectionManager[F]) keyIndexLocked(key int) int {
	return slices.IndexFunc(m.entries, func(e Entry[F]) bool { return e.key == key })
}

func (m *CollectionManager[F]) setLocked(i int, st SaveState, err error) {
	m.entries[i].State = st
	m.entries[i].Err = err
}

// Save creates (empty id) or replaces an item. The entry shows the new
// fields at once in StatePending and ends confirmed or failed. A failed
// create stays in the list without an id; use RetrySave or Discard on it.
func (m *CollectionManager[F]) Save(ctx context.Context, id string, f F) (string, error) {
	m.mu.Lock()
	i := -1
	if id != "" {
		i = m.indexLocked(id)
	}
	var key int
	if i < 0 {
		key = m.newKeyLocked()
		m.entries = append(m.entries, Entry[F]{ID: id, Fields: f, State: StatePending, key: key})
	} else {
		m.entries[i].Fields = f
		m.setLocked(i, StatePending, nil)
		key = m.entries[i].key
	}
	m.mu.Unlock()

	return m.persist(ctx, key, id, f)
}

// RetrySave sends the entry with the given key again, creating it when it
// still has no id.
func (m *CollectionManager[F]) RetrySave(ctx context.Context, key int) (string, error) {
	m.mu.Lock()
	i := m.keyIndexLocked(key)
	if i < 0 {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s entry %d", domain.ErrNotFound, m.coll, key)
	}
	m.setLocked(i, StatePending, nil)
	id, f := m.entries[i].ID, m.entries[i].Fields
	m.mu.Unlock()

	return m.persist(ctx, key, id, f)
}

func (m *CollectionManager[F]) persist(ctx context.Context, key int, id string, f F) (string, error) {
	var err error
	if id == "" {
		id, err = m.b.CreateItem(ctx, f)
	} else {
		err = m.b.UpdateItem(ctx, id, f)
	}

	m.mu.Lock()
	if j := m.keyIndexLocked(key); j >= 0 {
		if err != nil {
			m.setLocked(j, StateFailed, err)
		} else {
			m.entries[j].ID = id
			m.setLocked(j, StateConfirmed, nil)
		}
	}
	m.mu.Unlock()

	topic := fmt.Sprintf("save:%d", key)
	if err != nil {
		m.post(NoticeError, topic, fmt.Sprintf("could not save %s: %v", m.coll, err))
		return id, err
	}
	m.post(NoticeInfo, topic, fmt.Sprintf("%s saved", m.coll))
	return id, nil
}

// Discard drops an entry that was never stored. Stored entries go through
// Delete.
func (m *CollectionManager[F]) Discard(key int) error {
	m.mu.Lock()
	i := m.keyIndexLocked(key)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s entry %d", domain.ErrNotFound, m.coll, key)
	}
	switch e := m.entries[i]; {
	case e.ID != "":
		m.mu.Unlock()
		return domain.Invalidf("%s %s is stored; delete it instead", m.coll, e.ID)
	case e.State == StatePending:
		m.mu.Unlock()
		return domain.Invalidf("%s entry %d is still being saved", m.coll, key)
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	m.mu.Unlock()
	m.drop(fmt.Sprintf("save:%d", key))
	return nil
}

// Delete hides the item at once. If the delete fails the entry comes back
// in StateFailed so it can be retried. An empty id drops the first failed
// create, without calling the backend.
func (m *CollectionManager[F]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	i := m.indexLocked(id)
	if id == "" {
		i = slices.IndexFunc(m.entries, func(e Entry[F]) bool { return e.ID == "" && e.State == StateFailed })
	}
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, m.coll, id)
	}
	removed := m.entries[i]
	if id == "" {
		m.mu.Unlock()
		return m.Discard(removed.key)
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	m.mu.Unlock()

	err := m.b.DeleteItem(ctx, m.coll, id)
	topic := "delete:" + id
	if err != nil {
		m.mu.Lock()
		removed.State, removed.Err = StateFailed, err
		m.entries = slices.Insert(m.entries, min(i, len(m.entries)), removed)
		m.mu.Unlock()
		m.post(NoticeError, topic, fmt.Sprintf("could not delete %s: %v", m.coll, err))
		return err
	}
	m.post(NoticeInfo, topic, fmt.Sprintf("%s deleted", m.coll))
	return nil
}

// Arrange shows ids as the new order immediately and persists the ranks in
// the background. ids must be a permutation of Order(); entries without an
// id keep their slots and are left out of the ranks.
func (m *CollectionManager[F]) Arrange(ctx context.Context, ids []string) error {
	m.mu.Lock()
	stored := m.orderLocked()
	if len(ids) != len(stored) {
		m.mu.Unlock()
		return domain.Invalidf("order has %d ids, collection has %d", len(ids), len(stored))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] || !slices.Contains(stored, id) {
			m.mu.Unlock()
			return domain.Invalidf("order: unknown or repeated id %q", id)
		}
		seen[id] = true
	}
	next := slices.Clone(m.entries)
	k := 0
	for i, e := range next {
		if e.ID == "" {
			continue
		}
		next[i] = m.entries[m.indexLocked(ids[k])]
		k++
	}
	m.entries = next
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.persistOrder(context.WithoutCancel(ctx), gen, slices.Clone(ids))
	return nil
}

// Move drags the stored entry at from to position to, both indexes into
// Order().
func (m *CollectionManager[F]) Move(ctx context.Context, from, to int) error {
	ids := m.Order()
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) {
		return domain.Invalidf("move %d -> %d out of range", from, to)
	}
	id := ids[from]
	ids = slices.Delete(ids, from, from+1)
	ids = slices.Insert(ids, to, id)
	return m.Arrange(ctx, ids)
}

func (m *CollectionManager[F]) persistOrder(ctx context.Context, gen int, ids []string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := m.b.Reorder(ctx, m.coll, app.RanksFor(ids))
		m.mu.Lock()
		stale := gen != m.gen
		if !stale {
			if err != nil {
				m.failed = ids
			} else {
				m.failed = nil
			}
		}
		m.mu.Unlock()
		if stale {
			return
		}
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("collection", string(m.coll)).Msg("order not saved")
			m.post(NoticeError, topicOrder, fmt.Sprintf("order of %s not saved: %v", m.coll, err))
			return
		}
		m.post(NoticeInfo, topicOrder, fmt.Sprintf("order of %s saved", m.coll))
	}()
}

// Wait blocks until background order saves finish.
func (m *CollectionManager[F]) Wait() { m.wg.Wait() }

// ReorderFailed reports whether the displayed order is not persisted.
func (m *CollectionManager[F]) ReorderFailed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed != nil
}

// RetryReorder persists the last failed order again and waits for it.
func (m *CollectionManager[F]) RetryReorder(ctx context.Context) error {
	m.mu.Lock()
	if m.failed == nil {
		m.mu.Unlock()
		return nil
	}
	ids := m.failed
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	m.persistOrder(ctx, gen, ids)
	m.Wait()
	if m.ReorderFailed() {
		return fmt.Errorf("order of %s still not saved", m.coll)
	}
	return nil
}
