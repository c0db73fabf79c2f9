package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tilldb/till-db/internal/catalog"
	"github.com/tilldb/till-db/internal/parser"
	"github.com/tilldb/till-db/internal/storage"
	"github.com/tilldb/till-db/internal/types"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	cat, err := catalog.New(storage.StorageConfig{Backend: storage.HeapBackend, DataDir: t.TempDir()})
	require.NoError(t, err)
	return New(cat)
}

func run(t *testing.T, e *Executor, sql string) *QueryResult {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	result, err := e.Execute(stmt)
	require.NoError(t, err)
	return result
}

func runErr(t *testing.T, e *Executor, sql string) error {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	_, err = e.Execute(stmt)
	require.Error(t, err)
	return err
}

func TestCreateTable(t *testing.T) {
	e := newTestExecutor(t)

	result := run(t, e, "CREATE TABLE foo (id INT, data TEXT)")
	assert.Equal(t, "created foo", result.Message)

	result = run(t, e, "SHOW TABLES")
	assert.Equal(t, "successfully returned 1 rows", result.Message)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, types.TextValue("foo"), result.Rows[0]["table_name"])
}

func TestCreateTableDuplicate(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (id INT)")
	err := runErr(t, e, "CREATE TABLE foo (id INT)")
	assert.Contains(t, err.Error(), "DbRelationError: ")
	assert.Contains(t, err.Error(), "already exists")

	var execErr *SQLExecError
	assert.ErrorAs(t, err, &execErr)

	// The failed statement must not leave catalog rows behind.
	result := run(t, e, "SHOW TABLES")
	assert.Equal(t, "successfully returned 1 rows", result.Message)
	result = run(t, e, "SHOW COLUMNS FROM foo")
	assert.Equal(t, "successfully returned 1 rows", result.Message)
}

func TestCreateTableIfNotExists(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (id INT)")
	run(t, e, "CREATE TABLE IF NOT EXISTS foo (id INT)")
}

func TestCreateTableUnknownType(t *testing.T) {
	e := newTestExecutor(t)

	err := runErr(t, e, "CREATE TABLE foo (id REAL)")
	assert.Equal(t, "unrecognized data type (column_definition)", err.Error())

	result := run(t, e, "SHOW TABLES")
	assert.Equal(t, "successfully returned 0 rows", result.Message)
}

func TestShowColumnsPreservesOrder(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (id INT, data TEXT, extra TEXT)")

	result := run(t, e, "SHOW COLUMNS FROM foo")
	assert.Equal(t, "successfully returned 3 rows", result.Message)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, types.TextValue("id"), result.Rows[0]["column_name"])
	assert.Equal(t, types.TextValue("INT"), result.Rows[0]["data_type"])
	assert.Equal(t, types.TextValue("data"), result.Rows[1]["column_name"])
	assert.Equal(t, types.TextValue("extra"), result.Rows[2]["column_name"])
}

func TestShowColumnsFromSchemaTable(t *testing.T) {
	e := newTestExecutor(t)

	result := run(t, e, "SHOW COLUMNS FROM _columns")
	assert.Equal(t, "successfully returned 3 rows", result.Message)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, types.TextValue("table_name"), result.Rows[0]["column_name"])
	assert.Equal(t, types.TextValue("column_name"), result.Rows[1]["column_name"])
	assert.Equal(t, types.TextValue("data_type"), result.Rows[2]["column_name"])
}

func TestShowTablesHidesSchemaTables(t *testing.T) {
	e := newTestExecutor(t)

	result := run(t, e, "SHOW TABLES")
	assert.Equal(t, "successfully returned 0 rows", result.Message)
	assert.Empty(t, result.Rows)
}

func TestCreateIndex(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (id INT, data TEXT)")
	result := run(t, e, "CREATE INDEX fx ON foo (data)")
	assert.Equal(t, "create index fx", result.Message)

	result = run(t, e, "SHOW INDEX FROM foo")
	assert.Equal(t, "successfully returned 1 rows", result.Message)
	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, types.TextValue("foo"), row["table_name"])
	assert.Equal(t, types.TextValue("fx"), row["index_name"])
	assert.Equal(t, types.TextValue("data"), row["column_name"])
	assert.Equal(t, types.IntValue(1), row["seq_in_index"])
	assert.Equal(t, types.TextValue("BTREE"), row["index_type"])
	assert.Equal(t, types.BoolValue(true), row["is_unique"])
}

func TestCreateCompositeIndex(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (a INT, b TEXT)")
	run(t, e, "CREATE INDEX ab ON foo (a, b)")

	result := run(t, e, "SHOW INDEX FROM foo")
	assert.Equal(t, "successfully returned 2 rows", result.Message)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, types.IntValue(1), result.Rows[0]["seq_in_index"])
	assert.Equal(t, types.TextValue("a"), result.Rows[0]["column_name"])
	assert.Equal(t, types.IntValue(2), result.Rows[1]["seq_in_index"])
	assert.Equal(t, types.TextValue("b"), result.Rows[1]["column_name"])
}

func TestCreateIndexUnknownColumn(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (id INT)")
	err := runErr(t, e, "CREATE INDEX fx ON foo (nope)")
	assert.Equal(t, "Error: there is no nope column in foo table", err.Error())

	// No partial catalog rows survive the failed statement.
	result := run(t, e, "SHOW INDEX FROM foo")
	assert.Equal(t, "successfully returned 0 rows", result.Message)
}

func TestCreateIndexNonBtreeIsNotUnique(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (id INT)")
	run(t, e, "CREATE INDEX fx ON foo (id) USING HASH")

	result := run(t, e, "SHOW INDEX FROM foo")
	require.Len(t, result.Rows, 1)
	assert.Equal(t, types.TextValue("HASH"), result.Rows[0]["index_type"])
	assert.Equal(t, types.BoolValue(false), result.Rows[0]["is_unique"])
}

func TestDropIndex(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (id INT, data TEXT)")
	run(t, e, "CREATE INDEX fx ON foo (data)")

	result := run(t, e, "DROP INDEX foo.fx")
	assert.Equal(t, "drop index fx", result.Message)

	result = run(t, e, "SHOW INDEX FROM foo")
	assert.Equal(t, "successfully returned 0 rows", result.Message)

	err := runErr(t, e, "DROP INDEX foo.fx")
	assert.Contains(t, err.Error(), "unknown index fx on table foo")
}

func TestDropTable(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (id INT, data TEXT)")
	run(t, e, "CREATE INDEX fx ON foo (data)")

	result := run(t, e, "DROP TABLE foo")
	assert.Equal(t, "dropped foo", result.Message)

	result = run(t, e, "SHOW TABLES")
	assert.Equal(t, "successfully returned 0 rows", result.Message)
	result = run(t, e, "SHOW COLUMNS FROM foo")
	assert.Equal(t, "successfully returned 0 rows", result.Message)
	result = run(t, e, "SHOW INDEX FROM foo")
	assert.Equal(t, "successfully returned 0 rows", result.Message)
}

func TestDropTableUnknown(t *testing.T) {
	e := newTestExecutor(t)

	err := runErr(t, e, "DROP TABLE nope")
	assert.Contains(t, err.Error(), "DbRelationError: ")
	assert.Contains(t, err.Error(), "unknown table nope")
}

func TestDropSchemaTableRefused(t *testing.T) {
	e := newTestExecutor(t)

	for _, name := range []string{"_tables", "_columns", "_indices"} {
		err := runErr(t, e, "DROP TABLE "+name)
		assert.Equal(t, "cannot drop a schema table", err.Error())
	}
}

func TestRecreateAfterDrop(t *testing.T) {
	e := newTestExecutor(t)

	run(t, e, "CREATE TABLE foo (id INT)")
	run(t, e, "DROP TABLE foo")
	result := run(t, e, "CREATE TABLE foo (data TEXT)")
	assert.Equal(t, "created foo", result.Message)

	result = run(t, e, "SHOW COLUMNS FROM foo")
	assert.Equal(t, "successfully returned 1 rows", result.Message)
	assert.Equal(t, types.TextValue("data"), result.Rows[0]["column_name"])
}

func TestDMLNotImplemented(t *testing.T) {
	e := newTestExecutor(t)

	for _, sql := range []string{
		"SELECT * FROM foo",
		"INSERT INTO foo VALUES (1)",
		"UPDATE foo SET id = 1",
		"DELETE FROM foo",
	} {
		result := run(t, e, sql)
		assert.Equal(t, "not implemented", result.Message)
	}
}

func TestQueryResultString(t *testing.T) {
	qr := &QueryResult{
		ColumnNames: types.ColumnNames{"id", "name", "active"},
		ColumnAttributes: types.ColumnAttributes{
			{DataType: types.IntType},
			{DataType: types.TextType},
			{DataType: types.BooleanType},
		},
		Rows: []types.Row{
			{"id": types.IntValue(1), "name": types.TextValue("alice"), "active": types.BoolValue(true)},
		},
		Message: "successfully returned 1 rows",
	}

	expected := "id name active \n" +
		"+----------+----------+----------+\n" +
		"1 \"alice\" true \n" +
		"successfully returned 1 rows"
	assert.Equal(t, expected, qr.String())
}

func TestMessageResultString(t *testing.T) {
	assert.Equal(t, "created foo", NewMessageResult("created foo").String())
}
