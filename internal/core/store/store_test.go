package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mxprobe/mxprobe/internal/config"
	"github.com/stretchr/testify/require"
)

func TestBuildLibsqlDSN(t *testing.T) {
	t.Run("URLUsesRawValue", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123", dsn)
	})

	t.Run("URLWithExistingQuery", func(t *testing.T) {
		cfg := config.StoreConfig{
			URL:       "libsql://example.turso.io?foo=bar",
			AuthToken: "token123",
		}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "libsql://example.turso.io?authToken=token123&foo=bar", dsn)
	})

	t.Run("PathWithFilePrefix", func(t *testing.T) {
		cfg := config.StoreConfig{Path: "file:./mxprobe.db"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, "file:./mxprobe.db", dsn)
	})

	t.Run("PathMissing", func(t *testing.T) {
		cfg := config.StoreConfig{}

		_, err := buildLibsqlDSN(cfg)
		require.Error(t, err)
	})

	t.Run("MemoryPath", func(t *testing.T) {
		cfg := config.StoreConfig{Path: ":memory:"}

		dsn, err := buildLibsqlDSN(cfg)
		require.NoError(t, err)
		require.Equal(t, ":memory:", dsn)
	})
}

func TestBuildLibsqlDSNCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mxprobe.db")

	dsn, err := buildLibsqlDSN(config.StoreConfig{Path: path})
	require.NoError(t, err)
	require.Equal(t, "file:"+filepath.Clean(path), dsn)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestOpenDisabled(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Path: ":memory:"})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestUninitializedStore(t *testing.T) {
	var s *Store
	require.NoError(t, s.Close())
	require.Empty(t, s.Driver())
	require.Error(t, s.Migrate(context.Background()))
	require.Error(t, s.StartRun(context.Background(), "run", "input.csv", 1, time.Now()))

	sink := &RunSink{RunID: "run"}
	require.Error(t, sink.Persist(context.Background(), nil))
}
