package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "fwdctl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreCRUD(t *testing.T) {
	store := openTestStore(t)

	c := validConfig()
	require.NoError(t, store.Insert(&c))
	assert.NotZero(t, c.ID, "Insert assigns the id")

	got, err := store.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	c.LocalPort = 9090
	c.Alias = "backend"
	require.NoError(t, store.Update(c))
	got, err = store.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, uint16(9090), got.LocalPort)
	assert.Equal(t, "backend", got.Alias)

	require.NoError(t, store.Delete(c.ID))
	_, err = store.Get(c.ID)
	assert.ErrorContains(t, err, "not found")
}

func TestStoreInsertRejectsInvalid(t *testing.T) {
	store := openTestStore(t)

	c := validConfig()
	c.Namespace = ""
	err := store.Insert(&c)
	assert.ErrorContains(t, err, "namespace is required")
}

func TestStoreUpdateUnknownID(t *testing.T) {
	store := openTestStore(t)

	c := validConfig()
	c.ID = 42
	assert.ErrorContains(t, store.Update(c), "not found")
}

func TestStoreDeleteUnknownID(t *testing.T) {
	store := openTestStore(t)
	assert.ErrorContains(t, store.Delete(42), "not found")
}

func TestStoreRunningStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fwdctl.db")

	store, err := OpenStore(path)
	require.NoError(t, err)

	c := validConfig()
	require.NoError(t, store.Insert(&c))
	require.NoError(t, store.SetRunning(c.ID, true))
	require.NoError(t, store.Close())

	reopened, err := OpenStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	states, err := reopened.GetStates()
	require.NoError(t, err)
	assert.True(t, states[c.ID])

	require.NoError(t, reopened.SetRunning(c.ID, false))
	states, err = reopened.GetStates()
	require.NoError(t, err)
	assert.False(t, states[c.ID])
}

func TestStoreDeleteRemovesStateRow(t *testing.T) {
	store := openTestStore(t)

	c := validConfig()
	require.NoError(t, store.Insert(&c))
	require.NoError(t, store.SetRunning(c.ID, true))
	require.NoError(t, store.Delete(c.ID))

	states, err := store.GetStates()
	require.NoError(t, err)
	_, ok := states[c.ID]
	assert.False(t, ok, "deleting a config removes its state row in the same transaction")
}

func TestStoreContexts(t *testing.T) {
	store := openTestStore(t)

	for _, cc := range []string{"staging", "prod", "prod"} {
		c := validConfig()
		c.Context = cc
		require.NoError(t, store.Insert(&c))
	}

	contexts, err := store.Contexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"prod", "staging"}, contexts)
}

func TestStoreGetAllOrdersByID(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		c := validConfig()
		require.NoError(t, store.Insert(&c))
	}

	all, err := store.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID)
	assert.Less(t, all[1].ID, all[2].ID)
}
