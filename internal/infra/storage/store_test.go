package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"homework_portal/internal/domain/homework"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// runStoreContract checks the behaviour every backend shares.
func runStoreContract(t *testing.T, store homework.Store) {
	t.Helper()
	ctx := context.Background()

	first, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first.Revision, "bootstrap must persist a document")
	require.Equal(t, homework.CurrentVersion, first.Data.Version)

	again, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, first.Revision, again.Revision, "second load must not bootstrap again")

	_, _, err = first.Data.AddStudent("Alice", testNow)
	require.NoError(t, err)
	rev, err := store.Save(ctx, first.Data, first.Revision)
	require.NoError(t, err)
	require.NotEqual(t, first.Revision, rev)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, rev, loaded.Revision)
	require.Contains(t, loaded.Data.NameIndex, "Alice")
	require.True(t, testNow.Equal(loaded.Data.UpdatedAt))

	// A writer still holding the bootstrap revision loses.
	_, err = store.Save(ctx, again.Data, again.Revision)
	require.ErrorIs(t, err, homework.ErrRevisionConflict)

	_, err = store.Save(ctx, again.Data, "")
	require.ErrorIs(t, err, homework.ErrRevisionConflict)

	final, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, rev, final.Revision)
	require.Contains(t, final.Data.NameIndex, "Alice")
}
