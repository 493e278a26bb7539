package cmd

import (
	"context"
	"errors"

	"github.com/mxprobe/mxprobe/internal/config"
	"github.com/mxprobe/mxprobe/internal/core/store"
	errwrap "github.com/mxprobe/mxprobe/internal/errors"
)

// openStore opens and migrates the result store. It returns store.ErrDisabled
// unwrapped so callers can skip persistence.
func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if errors.Is(err, store.ErrDisabled) {
		return nil, err
	}
	if err != nil {
		return nil, errwrap.WrapDatabaseError(ctx, err, "open store")
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, errwrap.WrapDatabaseError(ctx, err, "migrate store")
	}

	return db, nil
}
