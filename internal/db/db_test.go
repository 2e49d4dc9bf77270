package db

import (
	"os"
	"path/filepath"
	"testing"

	werrors "github.com/diogenes-ai-code/taskman/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreName(t *testing.T) {
	assert.Equal(t, "tickets.db", StoreName(""))
	assert.Equal(t, "work.db", StoreName("work"))
	assert.Equal(t, "work.db", StoreName("work.db"))
}

func TestCreateAndListStores(t *testing.T) {
	dir := t.TempDir()

	names, err := ListStores(dir)
	require.NoError(t, err)
	assert.Empty(t, names)

	path, err := CreateStore(dir, "work")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "work.db"), path)

	_, err = CreateStore(dir, "home.db")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	names, err = ListStores(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"home.db", "work.db"}, names)

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := CreateStore(dir, "work")
		assert.True(t, werrors.Is(err, werrors.KindValidation))
	})

	t.Run("rejects path separators", func(t *testing.T) {
		_, err := CreateStore(dir, "../escape")
		assert.True(t, werrors.Is(err, werrors.KindValidation))
	})
}

func TestOpenStoreMigrates(t *testing.T) {
	dir := t.TempDir()

	d, err := OpenStore(dir, "fresh")
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "fresh.db", d.Name())

	version, err := d.MigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(4), version)
}

func TestListStoresMissingDir(t *testing.T) {
	names, err := ListStores(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Nil(t, names)
}

func TestOpenFailuresAreStorageErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	d, err := Open(filepath.Join(blocker, "tickets.db"))
	assert.Nil(t, d)
	require.Error(t, err)
	assert.Equal(t, werrors.KindStorage, werrors.GetKind(err))

	_, err = OpenStore(blocker, "tickets")
	assert.Equal(t, werrors.KindStorage, werrors.GetKind(err))

	_, err = Open("")
	assert.Equal(t, werrors.KindValidation, werrors.GetKind(err))
}
