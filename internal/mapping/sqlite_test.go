package mapping

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewSQLiteStore(filepath.Join(dir, "mapping.db"))
	ctx := context.Background()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Sessions)

	require.NoError(t, store.Save(ctx, sampleMapping()))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bd-epic", got.Sessions["ses_1"])
	assert.Equal(t, []types.Link{
		{TodoID: "t2", IssueID: "bd-2"},
		{TodoID: "t1", IssueID: "bd-1"},
	}, got.Links("ses_1"))
	assert.Equal(t, types.OutcomeCancelled, got.Outcome("ses_1", "t1"))
	assert.NotZero(t, got.LastSync)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "mapping.db\n", string(data))
}

func TestSQLiteStoreSaveReplacesDocument(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "mapping.db"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleMapping()))

	m, err := store.Load(ctx)
	require.NoError(t, err)
	m.Unlink("ses_1", "t2")
	require.NoError(t, store.Save(ctx, m))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Link{{TodoID: "t1", IssueID: "bd-1"}}, got.Links("ses_1"))
}

func TestSQLiteStoreCorruptDatabaseIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a sqlite database, just some text padding it out"), 0o644))
	store := NewSQLiteStore(path)
	ctx := context.Background()

	m, err := store.Load(ctx)
	require.ErrorIs(t, err, types.ErrMappingCorrupt)
	assert.Empty(t, m.Sessions)

	require.NoError(t, store.Save(ctx, sampleMapping()))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bd-epic", got.Sessions["ses_1"])
	assert.FileExists(t, path+".corrupt")
}
