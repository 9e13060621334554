package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/scenemesh/internal/util"
	"github.com/hupe1980/scenemesh/logging"
)

// Context carries the per-invocation scope handed to scene handlers. It
// aggregates:
//   - The ambient cancellation Context
//   - Identifiers (UserID, InvocationID)
//   - The scene the Stage routed this invocation to
//   - The live SessionData handle attached by the Stage
//   - A transport-owned Payload (e.g. the inbound chat message)
//
// Transports extend it by composition: they build one Context per inbound
// update and stash whatever they need in Payload. *Context satisfies
// context.Context so it can be passed straight to stores and clients.
type Context struct {
	Context      context.Context
	UserID       string
	InvocationID string
	Scene        string
	SessionData  map[string]any
	Payload      any
	Logger       logging.Logger
}

// NewContext constructs a Context for userID with a fresh invocation id.
func NewContext(ctx context.Context, userID string) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Context:      ctx,
		UserID:       userID,
		InvocationID: uuid.NewString(),
		Logger:       logging.NoOpLogger{},
	}
}

// WithPayload sets the transport payload and returns the Context (chainable).
func (c *Context) WithPayload(p any) *Context { c.Payload = p; return c }

// Deadline mirrors context.Context's Deadline.
func (c *Context) Deadline() (time.Time, bool) { return c.base().Deadline() }

// Done returns a channel closed when the underlying context is cancelled.
func (c *Context) Done() <-chan struct{} { return c.base().Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (c *Context) Err() error { return c.base().Err() }

// Value mirrors context.Context's Value.
func (c *Context) Value(key any) any { return c.base().Value(key) }

func (c *Context) base() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// Get returns a value from the attached session data.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.SessionData[key]
	return v, ok
}

// Set stores a value in the attached session data, allocating the map if the
// Stage has not attached one yet.
func (c *Context) Set(key string, value any) {
	if c.SessionData == nil {
		c.SessionData = map[string]any{}
	}
	c.SessionData[key] = value
}

// Delete removes a key from the attached session data.
func (c *Context) Delete(key string) { delete(c.SessionData, key) }

// Render executes text as a Go template against the attached session data,
// e.g. "Hello {{.name}}".
func (c *Context) Render(text string) (string, error) {
	return util.RenderTemplate(text, c.SessionData)
}

// Log returns the context logger, never nil.
func (c *Context) Log() logging.Logger {
	if c.Logger == nil {
		return logging.NoOpLogger{}
	}
	return c.Logger
}
