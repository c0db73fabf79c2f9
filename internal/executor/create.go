package executor

import (
	"github.com/tilldb/till-db/internal/catalog"
	"github.com/tilldb/till-db/internal/logger"
	"github.com/tilldb/till-db/internal/parser"
	"github.com/tilldb/till-db/internal/storage"
	"github.com/tilldb/till-db/internal/types"
)

// columnDefinition maps a parsed column to its catalog attribute. Only INT
// and TEXT are accepted from user statements; BOOLEAN is catalog-internal.
func columnDefinition(col parser.ColumnDefinition) (string, types.ColumnAttribute, error) {
	switch col.Type {
	case "INT":
		return col.Name, types.ColumnAttribute{DataType: types.IntType}, nil
	case "TEXT":
		return col.Name, types.ColumnAttribute{DataType: types.TextType}, nil
	default:
		return "", types.ColumnAttribute{}, NewSQLExecError("unrecognized data type (column_definition)")
	}
}

// createTable inserts the catalog rows for a new table, then creates the
// physical relation. Failures unwind with compensating deletes.
func (e *Executor) createTable(stmt *parser.CreateTableStatement) (*QueryResult, error) {
	tables := e.catalog.Tables

	columnNames := make(types.ColumnNames, 0, len(stmt.Columns))
	columnAttributes := make(types.ColumnAttributes, 0, len(stmt.Columns))
	for _, col := range stmt.Columns {
		name, attr, err := columnDefinition(col)
		if err != nil {
			return nil, err
		}
		columnNames = append(columnNames, name)
		columnAttributes = append(columnAttributes, attr)
	}

	tableHandle, err := tables.Insert(types.Row{"table_name": types.TextValue(stmt.Table)})
	if err != nil {
		return nil, err
	}

	columns, err := tables.GetTable(catalog.ColumnsTableName)
	if err != nil {
		e.compensateTables(tableHandle)
		return nil, err
	}

	var columnHandles storage.Handles
	insertColumns := func() error {
		for i, name := range columnNames {
			row := types.Row{
				"table_name":  types.TextValue(stmt.Table),
				"column_name": types.TextValue(name),
				"data_type":   types.TextValue(columnAttributes[i].DataType.String()),
			}
			h, err := columns.Insert(row)
			if err != nil {
				return err
			}
			columnHandles = append(columnHandles, h)
		}

		table, err := tables.GetTable(stmt.Table)
		if err != nil {
			return err
		}
		if stmt.IfNotExists {
			return table.CreateIfNotExists()
		}
		return table.Create()
	}

	if err := insertColumns(); err != nil {
		e.compensateColumns(columns, columnHandles)
		e.compensateTables(tableHandle)
		tables.Evict(stmt.Table)
		return nil, err
	}

	return NewMessageResult("created " + stmt.Table), nil
}

// createIndex validates the referenced columns, inserts the _indices rows in
// column order, then builds the physical index. Failures unwind with
// compensating deletes.
func (e *Executor) createIndex(stmt *parser.CreateIndexStatement) (*QueryResult, error) {
	tables := e.catalog.Tables
	indices := e.catalog.Indices

	columns, err := tables.GetTable(catalog.ColumnsTableName)
	if err != nil {
		return nil, err
	}

	// Every referenced column must exist before any catalog write, so a
	// failed CREATE INDEX leaves the catalog untouched.
	for _, col := range stmt.Columns {
		where := types.Row{
			"table_name":  types.TextValue(stmt.Table),
			"column_name": types.TextValue(col),
		}
		handles, err := columns.Select(where)
		if err != nil {
			return nil, err
		}
		if len(handles) == 0 {
			return nil, NewSQLExecError("Error: there is no %s column in %s table", col, stmt.Table)
		}
	}

	var indexHandles storage.Handles
	insertEntries := func() error {
		for i, col := range stmt.Columns {
			row := types.Row{
				"table_name":   types.TextValue(stmt.Table),
				"index_name":   types.TextValue(stmt.Index),
				"column_name":  types.TextValue(col),
				"seq_in_index": types.IntValue(int32(i + 1)),
				"index_type":   types.TextValue(stmt.IndexType),
				"is_unique":    types.BoolValue(stmt.IndexType == "BTREE"),
			}
			h, err := indices.Insert(row)
			if err != nil {
				return err
			}
			indexHandles = append(indexHandles, h)
		}

		index, err := indices.GetIndex(stmt.Table, stmt.Index)
		if err != nil {
			return err
		}
		return index.Create()
	}

	if err := insertEntries(); err != nil {
		e.compensateIndices(indexHandles)
		indices.Evict(stmt.Table, stmt.Index)
		return nil, err
	}

	return NewMessageResult("create index " + stmt.Index), nil
}

// Compensating deletes run on the error path only. They are best-effort:
// secondary failures are logged and swallowed so the original error
// propagates.

func (e *Executor) compensateTables(h storage.Handle) {
	if err := e.catalog.Tables.Delete(h); err != nil {
		logger.Warnf("rollback of _tables row failed: %v", err)
	}
}

func (e *Executor) compensateColumns(columns storage.DbRelation, handles storage.Handles) {
	for _, h := range handles {
		if err := columns.Delete(h); err != nil {
			logger.Warnf("rollback of _columns row failed: %v", err)
		}
	}
}

func (e *Executor) compensateIndices(handles storage.Handles) {
	for _, h := range handles {
		if err := e.catalog.Indices.Delete(h); err != nil {
			logger.Warnf("rollback of _indices row failed: %v", err)
		}
	}
}
