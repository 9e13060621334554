package testutil

import (
	"context"

	"github.com/hupe1980/scenemesh/core"
)

// SessionBuilder helps construct session records with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder().Scene("greet").Data("step", 1).Build()
type SessionBuilder struct {
	scene string
	data  map[string]any
}

// NewSessionBuilder creates a builder for a record without an active scene.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{data: map[string]any{}}
}

// Scene sets the active scene name (chainable).
func (b *SessionBuilder) Scene(name string) *SessionBuilder {
	b.scene = name
	return b
}

// Data sets or overwrites a data key/value pair on the resulting record (chainable).
func (b *SessionBuilder) Data(key string, val any) *SessionBuilder {
	b.data[key] = val
	return b
}

// Build returns a *core.Session with the configured scene and data.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession()
	s.CurrentScene = b.scene
	for k, v := range b.data {
		s.Data[k] = v
	}
	return s
}

// Seed stores the built record for userID and panics on store failure.
func (b *SessionBuilder) Seed(store core.SessionStore, userID string) *core.Session {
	s := b.Build()
	if err := store.Set(context.Background(), userID, s); err != nil {
		panic(err)
	}
	return s
}
