package stores

import (
	"context"
	"errors"
)

// New constructs an uninitialized store for cfg.Driver.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		if cfg.Path == "" {
			cfg.Path = MemoryPath
		}
		return NewSQLiteStore(cfg)
	case DriverBolt:
		return NewBoltStore(cfg)
	default:
		return nil, invalidConfig("unknown driver %q", cfg.Driver)
	}
}

// Open constructs, initializes, and migrates a store. On failure nothing is
// left open.
func Open(ctx context.Context, cfg Config) (Store, error) {
	store, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return store, Prepare(ctx, store)
}

// Prepare runs Init and Migrate on an unopened store, closing it again if
// either step fails.
func Prepare(ctx context.Context, store Store) error {
	if err := store.Init(ctx); err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return errors.Join(err, store.Close())
	}
	return nil
}

// WithSession opens a store, hands it to fn, and always closes it
// afterwards, including when fn fails or panics. A close failure is joined
// with fn's error.
func WithSession(ctx context.Context, cfg Config, fn func(ctx context.Context, store Store) error) (err error) {
	store, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	return Use(ctx, store, fn)
}

// Use runs fn against an already prepared store and closes it afterwards.
func Use(ctx context.Context, store Store, fn func(ctx context.Context, store Store) error) (err error) {
	defer func() {
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(ctx, store)
}
