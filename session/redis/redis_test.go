package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hupe1980/scenemesh/core"
)

var (
	testRedisClient    *goredis.Client
	testRedisContainer testcontainers.Container
	skipIntegration    bool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	var containerErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				containerErr = fmt.Errorf("docker not available: %v", r)
			}
		}()
		req := testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		}
		testRedisContainer, containerErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
	}()

	if containerErr != nil {
		fmt.Printf("Docker not available, integration tests will be skipped: %v\n", containerErr)
		skipIntegration = true
	} else if err := connect(ctx); err != nil {
		fmt.Printf("Redis container unusable: %v\n", err)
		skipIntegration = true
	}

	code := m.Run()

	if testRedisClient != nil {
		_ = testRedisClient.Close()
	}
	if testRedisContainer != nil {
		_ = testRedisContainer.Terminate(ctx)
	}

	os.Exit(code)
}

func connect(ctx context.Context) error {
	host, err := testRedisContainer.Host(ctx)
	if err != nil {
		return err
	}
	port, err := testRedisContainer.MappedPort(ctx, "6379")
	if err != nil {
		return err
	}
	testRedisClient = goredis.NewClient(&goredis.Options{Addr: host + ":" + port.Port()})
	return testRedisClient.Ping(ctx).Err()
}

// getRedis returns the shared client with a flushed database.
func getRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if skipIntegration {
		t.Skip("Docker not available, skipping integration test")
	}
	require.NoError(t, testRedisClient.FlushDB(context.Background()).Err())
	return testRedisClient
}

func TestStore_KeyPrefix(t *testing.T) {
	s := New(nil)
	assert.Equal(t, "scenemesh:session:u1", s.key("u1"))

	custom := New(nil, func(o *Options) { o.KeyPrefix = "bot:" })
	assert.Equal(t, "bot:u1", custom.key("u1"))

	empty := New(nil, func(o *Options) { o.KeyPrefix = "" })
	assert.Equal(t, DefaultKeyPrefix+"u1", empty.key("u1"))
}

func TestOpen_RequiresURL(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)

	_, err = Open(context.Background(), "not a url")
	assert.ErrorContains(t, err, "parse redis url")
}

func TestStore_Contract(t *testing.T) {
	rdb := getRedis(t)
	ctx := context.Background()
	s := New(rdb)

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set(ctx, "u1", &core.Session{CurrentScene: "a", Data: map[string]any{"x": "1", "y": "2"}}))
	require.NoError(t, s.Set(ctx, "u1", &core.Session{CurrentScene: "b", Data: map[string]any{"step": 1}}))

	got, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "b", got.CurrentScene)
	assert.Equal(t, map[string]any{"step": float64(1)}, got.Data)

	require.NoError(t, s.Delete(ctx, "u1"))
	require.NoError(t, s.Delete(ctx, "u1"))
	got, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_TTLRefreshedOnSet(t *testing.T) {
	rdb := getRedis(t)
	ctx := context.Background()
	s := New(rdb, func(o *Options) { o.TTL = time.Minute })

	require.NoError(t, s.Set(ctx, "u1", core.NewSession()))
	ttl, err := s.TTL(ctx, "u1")
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	persistent := New(rdb, func(o *Options) { o.KeyPrefix = "p:" })
	require.NoError(t, persistent.Set(ctx, "u1", core.NewSession()))
	ttl, err = persistent.TTL(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestStore_CorruptValue(t *testing.T) {
	rdb := getRedis(t)
	ctx := context.Background()
	s := New(rdb)

	require.NoError(t, rdb.Set(ctx, s.key("u1"), "{", 0).Err())
	_, err := s.Get(ctx, "u1")
	assert.ErrorContains(t, err, "unmarshal session")
}
