package core

import "context"

// Session is the per-user record persisted by a SessionStore. It names the
// active scene (if any) and carries arbitrary scene data.
//
// Contract:
//   - CurrentScene == "" means the user is not in any scene
//   - Data survives scene-to-scene transitions and only disappears when the
//     session itself is deleted (unless the Stage is configured otherwise)
//   - Clone copies the Data map so stores can isolate their internal state.
type Session struct {
	CurrentScene string         `json:"current_scene,omitempty" bson:"current_scene,omitempty"`
	Data         map[string]any `json:"data" bson:"data"`
}

// NewSession creates an empty session record with a non-nil Data map.
func NewSession() *Session {
	return &Session{Data: map[string]any{}}
}

// InScene reports whether the record names an active scene.
func (s *Session) InScene() bool {
	return s != nil && s.CurrentScene != ""
}

// EnsureData allocates Data when it is nil and returns it.
func (s *Session) EnsureData() map[string]any {
	if s.Data == nil {
		s.Data = map[string]any{}
	}
	return s.Data
}

// Clone returns a copy of the record. The Data map is copied one level deep;
// nested values are shared.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := &Session{CurrentScene: s.CurrentScene, Data: make(map[string]any, len(s.Data))}
	for k, v := range s.Data {
		clone.Data[k] = v
	}
	return clone
}

// SessionStore persists session records keyed by user id.
//
// Implementations must return (nil, nil) from Get for users without a record,
// replace (never merge) on Set, and treat Delete of a missing user as a no-op.
type SessionStore interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Set(ctx context.Context, userID string, session *Session) error
	Delete(ctx context.Context, userID string) error
}
