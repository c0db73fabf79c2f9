package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilldb/till-db/internal/types"
)

func newTestRelation(t *testing.T) *HeapRelation {
	t.Helper()
	return NewHeapRelation(t.TempDir(), "users",
		types.ColumnNames{"id", "name"},
		types.ColumnAttributes{{DataType: types.IntType}, {DataType: types.TextType}},
	)
}

func TestHeapCreateAndExists(t *testing.T) {
	rel := newTestRelation(t)
	assert.False(t, rel.Exists())

	require.NoError(t, rel.Create())
	assert.True(t, rel.Exists())

	err := rel.Create()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestHeapCreateIfNotExists(t *testing.T) {
	rel := newTestRelation(t)
	require.NoError(t, rel.CreateIfNotExists())

	_, err := rel.Insert(types.Row{"id": types.IntValue(1), "name": types.TextValue("a")})
	require.NoError(t, err)

	// Second call opens the existing file instead of failing.
	require.NoError(t, rel.CreateIfNotExists())
	handles, err := rel.Select(nil)
	require.NoError(t, err)
	assert.Len(t, handles, 1)
}

func TestHeapInsertSelectProject(t *testing.T) {
	rel := newTestRelation(t)
	require.NoError(t, rel.Create())

	h1, err := rel.Insert(types.Row{"id": types.IntValue(1), "name": types.TextValue("alice")})
	require.NoError(t, err)
	h2, err := rel.Insert(types.Row{"id": types.IntValue(2), "name": types.TextValue("bob")})
	require.NoError(t, err)

	handles, err := rel.Select(nil)
	require.NoError(t, err)
	assert.Equal(t, Handles{h1, h2}, handles)

	handles, err = rel.Select(types.Row{"name": types.TextValue("bob")})
	require.NoError(t, err)
	assert.Equal(t, Handles{h2}, handles)

	row, err := rel.Project(h1, types.ColumnNames{"name"})
	require.NoError(t, err)
	assert.Equal(t, types.Row{"name": types.TextValue("alice")}, row)

	row, err = rel.Project(h2, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Row{"id": types.IntValue(2), "name": types.TextValue("bob")}, row)
}

func TestHeapInsertValidation(t *testing.T) {
	rel := newTestRelation(t)
	require.NoError(t, rel.Create())

	_, err := rel.Insert(types.Row{"id": types.IntValue(1)})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing column name")

	_, err = rel.Insert(types.Row{"id": types.TextValue("1"), "name": types.TextValue("a")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expects INT")
}

func TestHeapDeleteKeepsHandlesStable(t *testing.T) {
	rel := newTestRelation(t)
	require.NoError(t, rel.Create())

	h1, err := rel.Insert(types.Row{"id": types.IntValue(1), "name": types.TextValue("a")})
	require.NoError(t, err)
	h2, err := rel.Insert(types.Row{"id": types.IntValue(2), "name": types.TextValue("b")})
	require.NoError(t, err)
	h3, err := rel.Insert(types.Row{"id": types.IntValue(3), "name": types.TextValue("c")})
	require.NoError(t, err)

	require.NoError(t, rel.Delete(h2))

	handles, err := rel.Select(nil)
	require.NoError(t, err)
	assert.Equal(t, Handles{h1, h3}, handles)

	// Surviving rows are still reachable under their original handles.
	row, err := rel.Project(h3, nil)
	require.NoError(t, err)
	assert.Equal(t, types.IntValue(3), row["id"])

	_, err = rel.Project(h2, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "deleted")
}

func TestHeapPersistence(t *testing.T) {
	dir := t.TempDir()
	cols := types.ColumnNames{"id", "name"}
	attrs := types.ColumnAttributes{{DataType: types.IntType}, {DataType: types.TextType}}

	rel := NewHeapRelation(dir, "users", cols, attrs)
	require.NoError(t, rel.Create())
	h, err := rel.Insert(types.Row{"id": types.IntValue(7), "name": types.TextValue("zoe")})
	require.NoError(t, err)
	require.NoError(t, rel.Close())

	reopened := NewHeapRelation(dir, "users", cols, attrs)
	require.NoError(t, reopened.Open())
	row, err := reopened.Project(h, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Row{"id": types.IntValue(7), "name": types.TextValue("zoe")}, row)
}

func TestHeapOpenMissing(t *testing.T) {
	rel := newTestRelation(t)
	err := rel.Open()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	var relErr *types.DbRelationError
	assert.ErrorAs(t, err, &relErr)
}

func TestHeapDrop(t *testing.T) {
	rel := newTestRelation(t)
	require.NoError(t, rel.Create())
	require.NoError(t, rel.Drop())
	assert.False(t, rel.Exists())

	// Dropping an absent file is not an error.
	require.NoError(t, rel.Drop())
}

func TestNewRelationFactory(t *testing.T) {
	_, err := NewRelation(StorageConfig{Backend: HeapBackend}, "t", nil, nil)
	assert.Error(t, err)

	rel, err := NewRelation(StorageConfig{Backend: HeapBackend, DataDir: t.TempDir()}, "t",
		types.ColumnNames{"id"}, types.ColumnAttributes{{DataType: types.IntType}})
	require.NoError(t, err)
	assert.Equal(t, "t", rel.Name())

	_, err = NewRelation(StorageConfig{Backend: "columnar", DataDir: t.TempDir()}, "t", nil, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage backend")
}
