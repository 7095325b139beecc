package storage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/orbit-setup/internal/config"
)

const (
	envRedisHost    = "ORBIT_SETUP_TEST_REDIS_HOST"
	envPostgresHost = "ORBIT_SETUP_TEST_POSTGRES_HOST"
)

// exerciseStorage checks the behavior every backend must share.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "orbit-setup:test:missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "orbit-setup:test:a", `{"version":1}`))
		v, err := s.Get(ctx, "orbit-setup:test:a")
		require.NoError(t, err)
		assert.Equal(t, `{"version":1}`, v)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "orbit-setup:test:b", "first"))
		require.NoError(t, s.Set(ctx, "orbit-setup:test:b", "second"))
		v, err := s.Get(ctx, "orbit-setup:test:b")
		require.NoError(t, err)
		assert.Equal(t, "second", v)
	})

	t.Run("empty value is stored", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "orbit-setup:test:empty", ""))
		v, err := s.Get(ctx, "orbit-setup:test:empty")
		require.NoError(t, err)
		assert.Empty(t, v)
	})
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStorage(t, s)
}

func TestInMemoryLevelDB(t *testing.T) {
	s, err := NewInMemoryLevelDB()
	require.NoError(t, err)
	defer s.Close()
	exerciseStorage(t, s)
}

func TestLevelDB_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")

	s, err := NewLevelDB(dir)
	require.NoError(t, err)
	exerciseStorage(t, s)
	require.NoError(t, s.Set(ctx, "arbitrum:orbit:state", "persisted"))
	require.NoError(t, s.Close())

	reopened, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, "arbitrum:orbit:state")
	require.NoError(t, err)
	assert.Equal(t, "persisted", v)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := Open(ctx, &config.Config{Storage: config.StorageConfig{Backend: "memory"}})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &Memory{}, s)
	})

	t.Run("leveldb by default", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Path: filepath.Join(t.TempDir(), "db")}}
		s, err := Open(ctx, cfg)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &LevelDB{}, s)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(ctx, &config.Config{Storage: config.StorageConfig{Backend: "etcd"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "etcd")
	})
}

func TestRedis(t *testing.T) {
	host := os.Getenv(envRedisHost)
	if host == "" {
		t.Skipf("Skipping redis test: %s not set", envRedisHost)
	}

	s, err := NewRedis(context.Background(), config.RedisConfig{Host: host, Port: 6379})
	require.NoError(t, err)
	defer s.Close()
	exerciseStorage(t, s)
}

func TestPostgres(t *testing.T) {
	host := os.Getenv(envPostgresHost)
	if host == "" {
		t.Skipf("Skipping postgres test: %s not set", envPostgresHost)
	}

	port := 5432
	if p, err := strconv.Atoi(os.Getenv("ORBIT_SETUP_TEST_POSTGRES_PORT")); err == nil {
		port = p
	}

	s, err := NewPostgres(context.Background(), config.DatabaseConfig{
		Host:         host,
		Port:         port,
		User:         "orbit",
		Password:     "orbit",
		Database:     "orbit_setup",
		SSLMode:      "disable",
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	defer s.Close()
	exerciseStorage(t, s)
}
