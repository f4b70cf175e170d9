package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoltStoreContract(t *testing.T) {
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "data", "homework.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	store.now = fixedClock

	runStoreContract(t, store)
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homework.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	store.now = fixedClock

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	_, _, err = snap.Data.AddStudent("Bob", testNow)
	require.NoError(t, err)
	rev, err := store.Save(context.Background(), snap.Data, snap.Revision)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	loaded, err := reopened.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, rev, loaded.Revision)
	require.Contains(t, loaded.Data.NameIndex, "Bob")
}
