// Package console holds the local state of the admin editors: what the
// operator sees, which saves are in flight and which failed.
package console

import (
	"context"
	"sync"
	"time"

	"karoo_lodge/internal/domain"
)

// Backend persists admin edits. *app.AdminService satisfies it in process
// and *adminapi.Client over HTTP.
type Backend interface {
	UpsertSection(ctx context.Context, sec domain.Section) (string, error)
	CreateItem(ctx context.Context, f domain.Editable) (string, error)
	UpdateItem(ctx context.Context, id string, f domain.Editable) error
	DeleteItem(ctx context.Context, c domain.Collection, id string) error
	Reorder(ctx context.Context, c domain.Collection, order []domain.RankAssignment) error
}

type SaveState int

const (
	StateClean SaveState = iota // loaded, untouched
	StatePending
	StateConfirmed
	StateFailed
)

func (s SaveState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	}
	return "clean"
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a message for the operator. Errors stay until the failed
// operation succeeds; info notices may be dismissed.
type Notice struct {
	Level NoticeLevel
	Topic string
	Text  string
	At    time.Time
}

func (n Notice) Dismissible() bool { return n.Level != NoticeError }

type notices struct {
	mu   sync.Mutex
	list []Notice
}

// post replaces any notice on the same topic.
func (n *notices) post(level NoticeLevel, topic, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropLocked(topic)
	n.list = append(n.list, Notice{Level: level, Topic: topic, Text: text, At: time.Now()})
}

func (n *notices) drop(topic string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropLocked(topic)
}

func (n *notices) dropLocked(topic string) {
	out := n.list[:0]
	for _, x := range n.list {
		if x.Topic != topic {
			out = append(out, x)
		}
	}
	n.list = out
}

func (n *notices) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.list...)
}

// Dismiss removes the info notice on topic. Error notices cannot be
// dismissed and Dismiss reports false for them.
func (n *notices) Dismiss(topic string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, x := range n.list {
		if x.Topic == topic {
			if !x.Dismissible() {
				return false
			}
			n.dropLocked(topic)
			return true
		}
	}
	return false
}

// HasErrors reports whether any failure is still unresolved.
func (n *notices) HasErrors() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, x := range n.list {
		if x.Level == NoticeError {
			return true
		}
	}
	return false
}
