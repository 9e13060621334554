// Package scenemesh provides a high-level façade over the Stage and the
// session store adapters, enabling rapid construction of multi-step
// conversational flows. Most applications interact with this package by:
//  1. Creating a SceneMesh via New() or NewFromConfig()
//  2. Registering scenes built with package scene
//  3. Calling Enter, HandleMessage and Leave from their transport
//
// The façade delegates orchestration to stage.Stage. All defaults are safe
// for local development and testing; production deployments typically pick
// a durable backend through configuration.
package scenemesh

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/scenemesh/config"
	"github.com/hupe1980/scenemesh/core"
	"github.com/hupe1980/scenemesh/logging"
	"github.com/hupe1980/scenemesh/scene"
	"github.com/hupe1980/scenemesh/session"
	sessionmongo "github.com/hupe1980/scenemesh/session/mongo"
	sessionredis "github.com/hupe1980/scenemesh/session/redis"
	sessionsqlite "github.com/hupe1980/scenemesh/session/sqlite"
	"github.com/hupe1980/scenemesh/stage"
)

// Options configures the SceneMesh instance.
type Options struct {
	// Stage behaviour (data reset, target check, per-user serialization)
	StageConfig stage.Config

	// SessionStore (defaults to an in-memory implementation if not provided)
	SessionStore core.SessionStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// TracerProvider (defaults to the global OpenTelemetry provider if nil)
	TracerProvider trace.TracerProvider
}

// SceneMesh is the high-level façade aggregating the stage and its store.
type SceneMesh struct {
	opts   Options
	stage  *stage.Stage
	closer io.Closer
}

// New creates a new SceneMesh with optional overrides. An unset store is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *SceneMesh {
	opts := Options{
		StageConfig:  stage.DefaultConfig,
		SessionStore: session.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	st := stage.New(func(o *stage.Options) {
		o.Config = opts.StageConfig
		o.SessionStore = opts.SessionStore
		o.Logger = opts.Logger
		o.TracerProvider = opts.TracerProvider
	})

	return &SceneMesh{opts: opts, stage: st}
}

// NewFromConfig opens the configured backend and builds a SceneMesh around
// it. The returned instance owns the store; call Close to release it.
func NewFromConfig(ctx context.Context, cfg config.Config, optFns ...func(o *Options)) (*SceneMesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, closer, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	logger := cfg.Log.Logger(os.Stderr, "scenemesh")
	logger.Debug("session store opened", "backend", cfg.Store.Backend)

	fns := append([]func(o *Options){func(o *Options) {
		o.StageConfig = cfg.Stage.ToStage()
		o.SessionStore = store
		o.Logger = logger
	}}, optFns...)

	m := New(fns...)
	m.closer = closer
	return m, nil
}

// OpenStore opens the session backend described by cfg. The returned closer
// is nil for backends without resources to release.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (core.SessionStore, io.Closer, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", config.BackendMemory:
		return session.NewInMemoryStore(), nil, nil

	case config.BackendRedis:
		s, err := sessionredis.Open(ctx, cfg.RedisURL, func(o *sessionredis.Options) {
			o.KeyPrefix = cfg.KeyPrefix
			o.TTL = cfg.TTL
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, s, nil

	case config.BackendSQLite:
		s, err := sessionsqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s, nil

	case config.BackendMongo:
		s, err := sessionmongo.Connect(ctx, cfg.MongoURI, sessionmongo.Options{
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo store: %w", err)
		}
		return s, s, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Register adds scenes to the stage; a name registered twice keeps the last scene.
func (m *SceneMesh) Register(scenes ...*scene.Scene) { m.stage.Register(scenes...) }

// Enter moves the context's user into the named scene.
func (m *SceneMesh) Enter(ctx *core.Context, name string) error { return m.stage.Enter(ctx, name) }

// Leave exits the active scene and deletes the user's session.
func (m *SceneMesh) Leave(ctx *core.Context) error { return m.stage.Leave(ctx) }

// HandleMessage routes the invocation to the user's active scene.
func (m *SceneMesh) HandleMessage(ctx *core.Context) error { return m.stage.HandleMessage(ctx) }

// Current returns the user's active scene name.
func (m *SceneMesh) Current(ctx *core.Context) (string, error) { return m.stage.Current(ctx) }

// Stage exposes the underlying stage.
func (m *SceneMesh) Stage() *stage.Stage { return m.stage }

// SessionStore returns the configured store.
func (m *SceneMesh) SessionStore() core.SessionStore { return m.stage.SessionStore() }

// Logger returns the configured logger.
func (m *SceneMesh) Logger() logging.Logger { return m.opts.Logger }

// Close releases a store opened by NewFromConfig. It is a no-op otherwise.
func (m *SceneMesh) Close() error {
	if m.closer == nil {
		return nil
	}
	err := m.closer.Close()
	m.closer = nil
	return err
}
