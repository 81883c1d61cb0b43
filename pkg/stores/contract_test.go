package stores

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendFactories returns a fresh, migrated store per call for every backend.
func backendFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"sqlite-memory": func(t *testing.T) Store {
			return openTestStore(t, Config{Driver: DriverSQLite, Path: MemoryPath})
		},
		"sqlite-file": func(t *testing.T) Store {
			return openTestStore(t, Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "records.db")})
		},
		"bolt": func(t *testing.T) Store {
			return openTestStore(t, Config{Driver: DriverBolt, Path: filepath.Join(t.TempDir(), "records.bolt")})
		},
	}
}

func openTestStore(t *testing.T, cfg Config) Store {
	t.Helper()

	store, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// runContract runs fn as a subtest against every backend.
func runContract(t *testing.T, fn func(t *testing.T, store Store)) {
	for name, factory := range backendFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestInsertThenRead(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, 1, "test_value"))

		value, found, err := store.Read(ctx, 1)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "test_value", value)
	})
}

func TestUpdateExisting(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, 1, "initial_value"))

		updated, err := store.Update(ctx, 1, "updated_value")
		require.NoError(t, err)
		assert.True(t, updated)

		value, found, err := store.Read(ctx, 1)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "updated_value", value)
	})
}

func TestUpdateMissingIsNoop(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		updated, err := store.Update(ctx, 99, "ghost")
		require.NoError(t, err)
		assert.False(t, updated)

		_, found, err := store.Read(ctx, 99)
		require.NoError(t, err)
		assert.False(t, found, "update must not insert")

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestDeleteThenReadIsAbsent(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, 1, "test_value"))

		deleted, err := store.Delete(ctx, 1)
		require.NoError(t, err)
		assert.True(t, deleted)

		value, found, err := store.Read(ctx, 1)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, value)

		rec, err := store.Get(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestDeleteIsIdempotent(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, 1, "a"))
		require.NoError(t, store.Insert(ctx, 2, "b"))

		deleted, err := store.Delete(ctx, 1)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.Delete(ctx, 1)
		require.NoError(t, err)
		assert.False(t, deleted)

		records, err := store.List(ctx, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []*Record{{ID: 2, Value: "b"}}, records)
	})
}

func TestEmptyValueIsNotAbsent(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, 5, ""))

		value, found, err := store.Read(ctx, 5)
		require.NoError(t, err)
		assert.True(t, found, "empty text must be distinguishable from no row")
		assert.Empty(t, value)

		rec, err := store.Get(ctx, 5)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, Record{ID: 5, Value: ""}, *rec)
	})
}

func TestReadMissingIsNotAnError(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		value, found, err := store.Read(context.Background(), 12345)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, value)
	})
}

func TestInsertDuplicateID(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, 1, "original"))

		err := store.Insert(ctx, 1, "replacement")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateID)
		assert.NotErrorIs(t, err, ErrStoreUnavailable)

		value, _, err := store.Read(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "original", value)
	})
}

func TestListOrderingAndPagination(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		for _, id := range []int64{3, -2, 10, 1, 0} {
			require.NoError(t, store.Insert(ctx, id, fmt.Sprintf("v%d", id)))
		}

		all, err := store.List(ctx, 0, 0)
		require.NoError(t, err)
		ids := make([]int64, 0, len(all))
		for _, rec := range all {
			ids = append(ids, rec.ID)
		}
		assert.Equal(t, []int64{-2, 0, 1, 3, 10}, ids)

		page, err := store.List(ctx, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, []*Record{{ID: 0, Value: "v0"}, {ID: 1, Value: "v1"}}, page)

		past, err := store.List(ctx, 10, 50)
		require.NoError(t, err)
		assert.Empty(t, past)

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 5, n)
	})
}

func TestOperationsAfterCloseAreUnavailable(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.Close())
		require.NoError(t, store.Close(), "close must be idempotent")

		err := store.Insert(ctx, 1, "x")
		assert.ErrorIs(t, err, ErrStoreUnavailable)

		_, _, err = store.Read(ctx, 1)
		assert.ErrorIs(t, err, ErrStoreUnavailable)

		_, err = store.Update(ctx, 1, "y")
		assert.ErrorIs(t, err, ErrStoreUnavailable)

		_, err = store.Delete(ctx, 1)
		assert.ErrorIs(t, err, ErrStoreUnavailable)

		assert.ErrorIs(t, store.HealthCheck(ctx), ErrStoreUnavailable)
	})
}

func TestMigrateIsRepeatable(t *testing.T) {
	runContract(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		require.NoError(t, store.Insert(ctx, 1, "kept"))
		require.NoError(t, store.Migrate(ctx))

		value, found, err := store.Read(ctx, 1)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "kept", value)
		assert.NoError(t, store.HealthCheck(ctx))
	})
}
