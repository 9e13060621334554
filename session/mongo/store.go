// Package mongo provides a MongoDB-backed core.SessionStore. Each user owns
// one document keyed by user id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/hupe1980/scenemesh/core"
)

const (
	defaultCollection = "scene_sessions"
	defaultOpTimeout  = 5 * time.Second
)

// Options configures the Mongo session store.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store implements core.SessionStore on a Mongo collection.
type Store struct {
	client  *mongodriver.Client
	coll    collection
	timeout time.Duration
	now     func() time.Time
}

// Compile-time check that Store implements core.SessionStore.
var _ core.SessionStore = (*Store)(nil)

type sessionDocument struct {
	UserID       string         `bson:"_id"`
	CurrentScene string         `bson:"current_scene,omitempty"`
	Data         map[string]any `bson:"data"`
	UpdatedAt    time.Time      `bson:"updated_at"`
}

// New returns a Store backed by MongoDB.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	name := opts.Collection
	if name == "" {
		name = defaultCollection
	}
	coll := mongoCollection{coll: opts.Client.Database(opts.Database).Collection(name)}
	return newStore(opts.Client, coll, opts.Timeout), nil
}

// Connect dials uri, pings the primary and returns a Store that owns the
// client (Close disconnects it).
func Connect(ctx context.Context, uri string, opts Options) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	client, err := mongodriver.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	opts.Client = client
	return New(opts)
}

func newStore(client *mongodriver.Client, coll collection, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &Store{client: client, coll: coll, timeout: timeout, now: time.Now}
}

// Get loads the user's document; ErrNoDocuments is reported as (nil, nil).
func (s *Store) Get(ctx context.Context, userID string) (*core.Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc sessionDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	data, _ := normalize(doc.Data).(map[string]any)
	if data == nil {
		data = map[string]any{}
	}
	return &core.Session{CurrentScene: doc.CurrentScene, Data: data}, nil
}

// Set replaces the user's document, inserting it when missing.
func (s *Store) Set(ctx context.Context, userID string, sess *core.Session) error {
	if sess == nil {
		sess = core.NewSession()
	}
	data := sess.Data
	if data == nil {
		data = map[string]any{}
	}
	doc := sessionDocument{
		UserID:       userID,
		CurrentScene: sess.CurrentScene,
		Data:         data,
		UpdatedAt:    s.now().UTC(),
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.coll.ReplaceOne(ctx, bson.M{"_id": userID}, doc); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the user's document; a missing document is not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.coll.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("mongo client is not configured")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

// normalize converts driver document types into plain maps and slices so
// callers see the same shapes they stored.
func normalize(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalize(val)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

type collection interface {
	FindOne(ctx context.Context, filter any) singleResult
	ReplaceOne(ctx context.Context, filter any, replacement any) error
	DeleteOne(ctx context.Context, filter any) error
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any) singleResult {
	return c.coll.FindOne(ctx, filter)
}

func (c mongoCollection) ReplaceOne(ctx context.Context, filter any, replacement any) error {
	_, err := c.coll.ReplaceOne(ctx, filter, replacement, options.Replace().SetUpsert(true))
	return err
}

func (c mongoCollection) DeleteOne(ctx context.Context, filter any) error {
	_, err := c.coll.DeleteOne(ctx, filter)
	return err
}
