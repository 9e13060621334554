package stage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/scenemesh/core"
	"github.com/hupe1980/scenemesh/logging"
	"github.com/hupe1980/scenemesh/scene"
	"github.com/hupe1980/scenemesh/session"
)

const tracerName = "github.com/hupe1980/scenemesh/stage"

// Config defines behavioural switches of the Stage.
//
// The zero value reproduces the plain protocol: data carries over between
// scenes, the target is resolved after the previous scene was left, and calls
// for the same user are not serialized.
type Config struct {
	// ResetDataOnTransition empties the session data whenever a scene is
	// entered. By default data persists across transitions and disappears
	// only when the session is deleted.
	ResetDataOnTransition bool

	// CheckTargetFirst makes Enter fail with ErrSceneNotFound before running
	// any leave handler or touching the store when the target is unknown.
	CheckTargetFirst bool

	// SerializeUsers makes Enter, Leave and HandleMessage mutually exclusive
	// per user id. Nested calls made from handlers with the same context do
	// not deadlock.
	SerializeUsers bool
}

// DefaultConfig is the zero Config.
var DefaultConfig = Config{}

// Options configures a Stage using the functional options pattern.
//
// Example:
//
//	st := stage.New(func(o *stage.Options) {
//	    o.SessionStore = redisStore
//	    o.Config.SerializeUsers = true
//	})
type Options struct {
	// Config contains behavioural switches. Defaults to DefaultConfig.
	Config Config

	// SessionStore persists per-user session records.
	// Defaults to an in-memory store.
	SessionStore core.SessionStore

	// Logger receives debug output about transitions and dispatches.
	// Defaults to a NoOp logger.
	Logger logging.Logger

	// TracerProvider creates the tracer used for stage spans.
	// Defaults to the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider
}

// Stage routes users between registered scenes.
//
// All methods are safe for concurrent use. Without Config.SerializeUsers two
// overlapping calls for the same user may both read the same record and the
// later write wins.
type Stage struct {
	store  core.SessionStore
	logger logging.Logger
	tracer trace.Tracer
	config Config

	scenes map[string]*scene.Scene
	mu     sync.RWMutex

	locks *userLocks
}

// New creates a Stage with sensible defaults.
func New(optFns ...func(o *Options)) *Stage {
	opts := Options{
		Config:         DefaultConfig,
		SessionStore:   session.NewInMemoryStore(),
		Logger:         logging.NoOpLogger{},
		TracerProvider: otel.GetTracerProvider(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	return &Stage{
		store:  opts.SessionStore,
		logger: opts.Logger,
		tracer: opts.TracerProvider.Tracer(tracerName),
		config: opts.Config,
		scenes: make(map[string]*scene.Scene),
		locks:  newUserLocks(),
	}
}

// Register adds scenes to the registry keyed by name. A scene registered
// under an existing name replaces the previous one; handlers are never merged.
func (s *Stage) Register(scenes ...*scene.Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range scenes {
		if sc == nil {
			continue
		}
		s.scenes[sc.Name()] = sc
	}
}

// Scene returns the scene registered under name.
func (s *Stage) Scene(name string) (*scene.Scene, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenes[name]
	return sc, ok
}

// Scenes returns the registered scene names in sorted order.
func (s *Stage) Scenes() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.scenes))
	for name := range s.scenes {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// SessionStore returns the store the Stage persists to.
func (s *Stage) SessionStore() core.SessionStore { return s.store }

// Enter moves the user identified by ctx.UserID into the named scene. The
// active scene's leave handlers always complete before the target's enter
// handlers start, and the stored record names the target before any of its
// enter handlers run. An empty name exits all scenes and deletes the session.
//
// When the target is not registered Enter returns an error wrapping
// core.ErrSceneNotFound. The previous scene has been left at that point and
// the stored record, if any, no longer names a scene.
func (s *Stage) Enter(ctx *core.Context, name string) (err error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}

	end := s.startSpan(ctx, "stage.Enter",
		attribute.String("scenemesh.user_id", userID),
		attribute.String("scenemesh.scene", name),
	)
	defer func() { end(err) }()

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if s.config.CheckTargetFirst && name != "" {
		if _, ok := s.Scene(name); !ok {
			return sceneNotFound(name)
		}
	}

	prev, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	sess := prev
	if sess == nil {
		sess = core.NewSession()
	}
	s.attach(ctx, userID, sess)

	if sess.InScene() {
		if from, ok := s.Scene(sess.CurrentScene); ok {
			ctx.Scene = from.Name()
			s.logger.Debug("leaving scene", "user_id", userID, "scene", from.Name(), "target", name)
			if err := s.dispatch(ctx, userID, from.Leave); err != nil {
				return err
			}
		} else {
			s.logger.Debug("previous scene not registered, skipping leave", "user_id", userID, "scene", sess.CurrentScene)
		}
	}

	if name == "" {
		if err := s.store.Delete(ctx, userID); err != nil {
			return fmt.Errorf("stage: delete session: %w", err)
		}
		ctx.Scene = ""
		ctx.SessionData = nil
		s.logger.Debug("session closed", "user_id", userID)
		return nil
	}

	sess.Data = ctx.SessionData

	target, ok := s.Scene(name)
	if !ok {
		ctx.Scene = ""
		if prev != nil && prev.InScene() {
			sess.CurrentScene = ""
			if err := s.save(ctx, userID, sess); err != nil {
				return err
			}
		}
		return sceneNotFound(name)
	}

	if s.config.ResetDataOnTransition || sess.Data == nil {
		sess.Data = map[string]any{}
	}
	sess.CurrentScene = name
	ctx.SessionData = sess.Data

	if err := s.save(ctx, userID, sess); err != nil {
		return err
	}
	ctx.Scene = name

	s.logger.Debug("entering scene", "user_id", userID, "scene", name)
	if err := s.dispatch(ctx, userID, target.Enter); err != nil {
		return err
	}

	// An enter handler moved the user on; that call persisted its own record.
	if ctx.Scene != name {
		return nil
	}

	sess.Data = ctx.SessionData
	return s.save(ctx, userID, sess)
}

// Leave exits the active scene and deletes the user's session. It is
// equivalent to Enter(ctx, "").
func (s *Stage) Leave(ctx *core.Context) error {
	return s.Enter(ctx, "")
}

// HandleMessage routes the invocation to the user's active scene. Users
// without a session, without an active scene or whose scene is no longer
// registered are ignored without error and without store writes.
//
// After the message handlers succeed the session data attached to ctx is
// written back, even when unchanged. A handler that moved the user to another
// scene through the Stage has already persisted the new record, so no write
// happens in that case.
func (s *Stage) HandleMessage(ctx *core.Context) (err error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}

	end := s.startSpan(ctx, "stage.HandleMessage",
		attribute.String("scenemesh.user_id", userID),
	)
	defer func() { end(err) }()

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	sess, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !sess.InScene() {
		s.logger.Debug("no active scene, ignoring message", "user_id", userID)
		return nil
	}

	sc, ok := s.Scene(sess.CurrentScene)
	if !ok {
		s.logger.Debug("active scene not registered, ignoring message", "user_id", userID, "scene", sess.CurrentScene)
		return nil
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("scenemesh.scene", sc.Name()))

	s.attach(ctx, userID, sess)
	ctx.Scene = sc.Name()

	s.logger.Debug("dispatching message", "user_id", userID, "scene", sc.Name())
	if err := s.dispatch(ctx, userID, sc.HandleMessage); err != nil {
		return err
	}

	if ctx.Scene != sess.CurrentScene {
		return nil
	}

	sess.Data = ctx.SessionData
	return s.save(ctx, userID, sess)
}

// Current returns the name of the user's active scene, or "" when the user
// is not in any scene.
func (s *Stage) Current(ctx *core.Context) (string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return "", err
	}
	sess, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", nil
	}
	return sess.CurrentScene, nil
}

func (s *Stage) load(ctx context.Context, userID string) (*core.Session, error) {
	sess, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stage: get session: %w", err)
	}
	return sess, nil
}

func (s *Stage) save(ctx context.Context, userID string, sess *core.Session) error {
	if err := s.store.Set(ctx, userID, sess); err != nil {
		return fmt.Errorf("stage: set session: %w", err)
	}
	return nil
}

// dispatchKey marks a context whose handlers are currently being run by a
// stage for one user. Calls made from inside those handlers are nested.
type dispatchKey struct {
	stage *Stage
	user  string
}

func (s *Stage) nested(ctx *core.Context, userID string) bool {
	return ctx.Value(dispatchKey{stage: s, user: userID}) != nil
}

// attach hands the record's data to ctx. A nested call keeps the handle the
// outer call attached, so in-flight mutations are not replaced by the stored
// copy.
func (s *Stage) attach(ctx *core.Context, userID string, sess *core.Session) {
	if s.nested(ctx, userID) && ctx.SessionData != nil {
		sess.Data = ctx.SessionData
		return
	}
	ctx.SessionData = sess.EnsureData()
}

// dispatch runs fn with ctx marked as dispatching for userID.
func (s *Stage) dispatch(ctx *core.Context, userID string, fn func(*core.Context) error) error {
	orig := ctx.Context
	ctx.Context = context.WithValue(parentOf(ctx), dispatchKey{stage: s, user: userID}, struct{}{})
	defer func() { ctx.Context = orig }()
	return fn(ctx)
}

// startSpan opens a span and installs its context on ctx so handlers and
// stores see it. The returned func ends the span and restores ctx.
func (s *Stage) startSpan(ctx *core.Context, op string, attrs ...attribute.KeyValue) func(error) {
	orig := ctx.Context
	spanCtx, span := s.tracer.Start(parentOf(ctx), op, trace.WithAttributes(attrs...))
	ctx.Context = spanCtx

	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		ctx.Context = orig
	}
}

func parentOf(ctx *core.Context) context.Context {
	if ctx.Context == nil {
		return context.Background()
	}
	return ctx.Context
}

func requireUser(ctx *core.Context) (string, error) {
	if ctx == nil || ctx.UserID == "" {
		return "", core.ErrMissingUserID
	}
	return ctx.UserID, nil
}

func sceneNotFound(name string) error {
	return fmt.Errorf("stage: %w: %q", core.ErrSceneNotFound, name)
}
