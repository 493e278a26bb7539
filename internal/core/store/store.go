package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/mxprobe/mxprobe/internal/config"
)

const (
	driverLibsql = "libsql"
	memoryPath   = ":memory:"
)

// ErrDisabled is returned by Open when the store is turned off in config.
var ErrDisabled = errors.New("store is disabled")

// Store keeps verification runs and their per-address results.
type Store struct {
	DB     *sql.DB
	driver string
}

// Open connects to the configured libsql database: a remote Turso URL, an
// in-memory database, or a local file. Local databases get a single
// connection; checkpoints are written by one goroutine at a time.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if ctx == nil {
		ctx = context.Background()
	}

	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}
	if driver != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	dsn, err := buildLibsqlDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping libsql store: %w", err)
	}

	return &Store{DB: db, driver: driver}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// buildLibsqlDSN resolves the connection string. A URL wins over a path;
// plain paths become file: DSNs and their directory is created.
func buildLibsqlDSN(cfg config.StoreConfig) (string, error) {
	if remote := strings.TrimSpace(cfg.URL); remote != "" {
		return withAuthToken(remote, cfg.AuthToken)
	}

	target := strings.TrimSpace(cfg.Path)
	switch {
	case target == "":
		return "", errors.New("store path or url is required")
	case target == memoryPath, strings.HasPrefix(target, "libsql:"):
		return target, nil
	case strings.HasPrefix(target, "file:"):
		local, err := localPathOf(target)
		if err != nil {
			return "", err
		}
		if err := ensureParentDir(local); err != nil {
			return "", err
		}
		return target, nil
	default:
		if err := ensureParentDir(target); err != nil {
			return "", err
		}
		return "file:" + filepath.Clean(target), nil
	}
}

// withAuthToken adds authToken to the query unless the URL already has one.
func withAuthToken(dsn, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return dsn, nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	query := parsed.Query()
	if query.Get("authToken") != "" {
		return dsn, nil
	}
	query.Set("authToken", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func localPathOf(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}
	local := parsed.Path
	if local == "" {
		local = parsed.Opaque
	}
	return strings.TrimPrefix(local, "//"), nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}

	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
