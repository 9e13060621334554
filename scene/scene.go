package scene

import (
	"fmt"

	"github.com/hupe1980/scenemesh/core"
)

// Event identifies the lifecycle point a handler is attached to.
//
// The set is fixed:
//   - EventEnter: the user transitions into the scene
//   - EventLeave: the user transitions out of the scene
//   - EventMessage: a message arrives while the scene is active
type Event string

const (
	// EventEnter is triggered after the session names the scene.
	EventEnter Event = "enter"

	// EventLeave is triggered before the user moves to another scene or exits.
	EventLeave Event = "leave"

	// EventMessage is triggered for every message routed to the active scene.
	EventMessage Event = "message"
)

func (e Event) valid() bool {
	return e == EventEnter || e == EventLeave || e == EventMessage
}

// Handler is a lifecycle hook. Returning an error aborts the remaining
// handlers registered for the same event.
type Handler interface {
	Handle(ctx *core.Context) error
}

// HandlerFunc adapts a plain function to the Handler interface.
//
// Example:
//
//	greet := scene.New("greet").OnEnter(func(ctx *core.Context) error {
//	    ctx.Set("step", 1)
//	    return nil
//	})
type HandlerFunc func(ctx *core.Context) error

// Handle calls f(ctx).
func (f HandlerFunc) Handle(ctx *core.Context) error { return f(ctx) }

// CallbackError reports which handler of which scene failed.
type CallbackError struct {
	Scene string
	Event Event
	Index int
	Err   error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("scene %q: %s handler #%d: %v", e.Scene, e.Event, e.Index, e.Err)
}

// Unwrap returns the handler's error.
func (e *CallbackError) Unwrap() error { return e.Err }

// Scene is a named collection of ordered handler lists, one per Event.
//
// Handlers run in registration order; there is no removal. A Scene is not
// safe for concurrent registration, but once registration is complete it can
// be invoked concurrently.
type Scene struct {
	name     string
	handlers map[Event][]Handler
}

// New creates an empty scene.
func New(name string) *Scene {
	return &Scene{name: name, handlers: make(map[Event][]Handler, 3)}
}

// Name returns the scene's registry key.
func (s *Scene) Name() string { return s.name }

// On appends handlers for the given event (chainable). It panics on an
// unknown event.
func (s *Scene) On(ev Event, handlers ...Handler) *Scene {
	if !ev.valid() {
		panic(fmt.Sprintf("scene %q: unknown event %q", s.name, ev))
	}
	for _, h := range handlers {
		if f, ok := h.(HandlerFunc); h == nil || (ok && f == nil) {
			panic(fmt.Sprintf("scene %q: nil %s handler", s.name, ev))
		}
	}
	s.handlers[ev] = append(s.handlers[ev], handlers...)
	return s
}

// OnEnter appends an enter handler (chainable).
func (s *Scene) OnEnter(fn HandlerFunc) *Scene { return s.On(EventEnter, fn) }

// OnLeave appends a leave handler (chainable).
func (s *Scene) OnLeave(fn HandlerFunc) *Scene { return s.On(EventLeave, fn) }

// OnMessage appends a message handler (chainable).
func (s *Scene) OnMessage(fn HandlerFunc) *Scene { return s.On(EventMessage, fn) }

// Len reports how many handlers are registered for ev.
func (s *Scene) Len(ev Event) int { return len(s.handlers[ev]) }

// Enter runs the enter handlers.
func (s *Scene) Enter(ctx *core.Context) error { return s.run(ctx, EventEnter) }

// Leave runs the leave handlers.
func (s *Scene) Leave(ctx *core.Context) error { return s.run(ctx, EventLeave) }

// HandleMessage runs the message handlers.
func (s *Scene) HandleMessage(ctx *core.Context) error { return s.run(ctx, EventMessage) }

// run executes handlers sequentially; the first error stops the chain.
func (s *Scene) run(ctx *core.Context, ev Event) error {
	for i, h := range s.handlers[ev] {
		if err := h.Handle(ctx); err != nil {
			return &CallbackError{Scene: s.name, Event: ev, Index: i, Err: err}
		}
	}
	return nil
}
