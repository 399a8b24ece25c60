package console

import (
	"context"
	"fmt"
	"sync"

	"karoo_lodge/internal/domain"
)

// SectionEditor edits one singleton section with the same state model as
// CollectionManager.
type SectionEditor[S domain.Section] struct {
	notices

	b Backend

	mu      sync.Mutex
	current S
	id      string
	state   SaveState
	err     error
}

// NewSectionEditor starts from the section as currently served, which may
// be the bundled default.
func NewSectionEditor[S domain.Section](b Backend, current S) *SectionEditor[S] {
	return &SectionEditor[S]{b: b, current: current}
}

func (e *SectionEditor[S]) Current() (S, SaveState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.state, e.err
}

// ID is the row id reported by the last confirmed save.
func (e *SectionEditor[S]) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// Save shows sec at once and persists it. A failure leaves sec displayed in
// StateFailed with an error notice; call Retry to try again.
func (e *SectionEditor[S]) Save(ctx context.Context, sec S) error {
	e.mu.Lock()
	e.current, e.state, e.err = sec, StatePending, nil
	e.mu.Unlock()
	return e.persist(ctx, sec)
}

// Retry persists the displayed section again after a failure.
func (e *SectionEditor[S]) Retry(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateFailed {
		e.mu.Unlock()
		return nil
	}
	sec := e.current
	e.state = StatePending
	e.mu.Unlock()
	return e.persist(ctx, sec)
}

func (e *SectionEditor[S]) persist(ctx context.Context, sec S) error {
	id, err := e.b.UpsertSection(ctx, sec)
	topic := "section:" + string(sec.Kind())

	e.mu.Lock()
	if err != nil {
		e.state, e.err = StateFailed, err
	} else {
		e.state, e.err, e.id = StateConfirmed, nil, id
	}
	e.mu.Unlock()

	if err != nil {
		e.post(NoticeError, topic, fmt.Sprintf("could not save %s: %v", sec.Kind().Slug(), err))
		return err
	}
	e.post(NoticeInfo, topic, fmt.Sprintf("%s saved", sec.Kind().Slug()))
	return nil
}
