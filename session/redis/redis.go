// Package redis provides a Redis-backed core.SessionStore. Each user's record
// is stored as one JSON string under a prefixed key, optionally with a TTL
// that is refreshed on every write.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hupe1980/scenemesh/core"
	"github.com/hupe1980/scenemesh/session/codec"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "scenemesh:session:"

// Options configures the Redis session store.
type Options struct {
	// KeyPrefix is prepended to every user id. Defaults to DefaultKeyPrefix.
	KeyPrefix string
	// TTL expires idle sessions. Zero keeps records until deleted.
	TTL time.Duration
}

// Store implements core.SessionStore on top of a go-redis client.
type Store struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Compile-time check that Store implements core.SessionStore.
var _ core.SessionStore = (*Store)(nil)

// New wraps an existing client. The caller keeps ownership of the client.
func New(client goredis.UniversalClient, optFns ...func(o *Options)) *Store {
	opts := Options{KeyPrefix: DefaultKeyPrefix}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: opts.KeyPrefix, ttl: opts.TTL}
}

// Open parses a redis:// URL, connects and pings the server.
func Open(ctx context.Context, url string, optFns ...func(o *Options)) (*Store, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client, optFns...), nil
}

// key generates a Redis key for the given user id.
func (s *Store) key(userID string) string {
	return s.prefix + userID
}

// Get returns the record or nil when the key does not exist.
func (s *Store) Get(ctx context.Context, userID string) (*core.Session, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return codec.Unmarshal(raw)
}

// Set replaces the record and refreshes its TTL.
func (s *Store) Set(ctx context.Context, userID string, sess *core.Session) error {
	raw, err := codec.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

// Delete removes the record; deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// TTL returns the remaining lifetime of a user's record.
func (s *Store) TTL(ctx context.Context, userID string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, s.key(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get ttl: %w", err)
	}
	return ttl, nil
}

// Ping tests the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
