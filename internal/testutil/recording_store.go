package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/scenemesh/core"
)

// Op is a store operation recorded by RecordingStore.
type Op struct {
	Kind   string // get, set or delete
	UserID string
	Scene  string // scene named by the record written (set only)
}

func (o Op) String() string {
	if o.Kind == "set" {
		return fmt.Sprintf("set(%s,%s)", o.UserID, o.Scene)
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.UserID)
}

// RecordingStore wraps a SessionStore and keeps a journal of every call.
type RecordingStore struct {
	core.SessionStore

	mu  sync.Mutex
	ops []Op
}

// NewRecordingStore wraps inner.
func NewRecordingStore(inner core.SessionStore) *RecordingStore {
	return &RecordingStore{SessionStore: inner}
}

func (r *RecordingStore) record(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

// Get records and delegates.
func (r *RecordingStore) Get(ctx context.Context, userID string) (*core.Session, error) {
	r.record(Op{Kind: "get", UserID: userID})
	return r.SessionStore.Get(ctx, userID)
}

// Set records and delegates.
func (r *RecordingStore) Set(ctx context.Context, userID string, sess *core.Session) error {
	op := Op{Kind: "set", UserID: userID}
	if sess != nil {
		op.Scene = sess.CurrentScene
	}
	r.record(op)
	return r.SessionStore.Set(ctx, userID, sess)
}

// Delete records and delegates.
func (r *RecordingStore) Delete(ctx context.Context, userID string) error {
	r.record(Op{Kind: "delete", UserID: userID})
	return r.SessionStore.Delete(ctx, userID)
}

// Ops returns a copy of the journal.
func (r *RecordingStore) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Writes returns the journal without reads, rendered as strings.
func (r *RecordingStore) Writes() []string {
	var out []string
	for _, op := range r.Ops() {
		if op.Kind != "get" {
			out = append(out, op.String())
		}
	}
	return out
}

// Reset clears the journal.
func (r *RecordingStore) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}
