package executor

import (
	"fmt"

	"github.com/tilldb/till-db/internal/catalog"
	"github.com/tilldb/till-db/internal/parser"
	"github.com/tilldb/till-db/internal/types"
)

// showTables lists every user table. The three system rows are always
// present, so the reported count is the handle count minus three.
func (e *Executor) showTables() (*QueryResult, error) {
	tables := e.catalog.Tables

	columnNames := types.ColumnNames{"table_name"}
	columnAttributes := types.ColumnAttributes{{DataType: types.TextType}}

	handles, err := tables.Select(nil)
	if err != nil {
		return nil, err
	}
	n := len(handles) - 3

	var rows []types.Row
	for _, h := range handles {
		row, err := tables.Project(h, columnNames)
		if err != nil {
			return nil, err
		}
		name, err := row["table_name"].Text()
		if err != nil {
			return nil, err
		}
		if !catalog.IsSchemaTable(name) {
			rows = append(rows, row)
		}
	}

	return &QueryResult{
		ColumnNames:      columnNames,
		ColumnAttributes: columnAttributes,
		Rows:             rows,
		Message:          fmt.Sprintf("successfully returned %d rows", n),
	}, nil
}

// showColumns lists the _columns rows of one table in declared order.
func (e *Executor) showColumns(stmt *parser.ShowStatement) (*QueryResult, error) {
	columns, err := e.catalog.Tables.GetTable(catalog.ColumnsTableName)
	if err != nil {
		return nil, err
	}

	columnNames := types.ColumnNames{"table_name", "column_name", "data_type"}
	columnAttributes := types.ColumnAttributes{
		{DataType: types.TextType},
		{DataType: types.TextType},
		{DataType: types.TextType},
	}

	where := types.Row{"table_name": types.TextValue(stmt.Table)}
	handles, err := columns.Select(where)
	if err != nil {
		return nil, err
	}

	var rows []types.Row
	for _, h := range handles {
		row, err := columns.Project(h, columnNames)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return &QueryResult{
		ColumnNames:      columnNames,
		ColumnAttributes: columnAttributes,
		Rows:             rows,
		Message:          fmt.Sprintf("successfully returned %d rows", len(handles)),
	}, nil
}

// showIndex lists the _indices rows of one table, all six columns in
// declared order.
func (e *Executor) showIndex(stmt *parser.ShowStatement) (*QueryResult, error) {
	indices := e.catalog.Indices

	columnNames := types.ColumnNames{"table_name", "index_name", "column_name", "seq_in_index", "index_type", "is_unique"}
	columnAttributes := types.ColumnAttributes{
		{DataType: types.TextType},
		{DataType: types.TextType},
		{DataType: types.TextType},
		{DataType: types.IntType},
		{DataType: types.TextType},
		{DataType: types.BooleanType},
	}

	where := types.Row{"table_name": types.TextValue(stmt.Table)}
	handles, err := indices.Select(where)
	if err != nil {
		return nil, err
	}

	var rows []types.Row
	for _, h := range handles {
		row, err := indices.Project(h, columnNames)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return &QueryResult{
		ColumnNames:      columnNames,
		ColumnAttributes: columnAttributes,
		Rows:             rows,
		Message:          fmt.Sprintf("successfully returned %d rows", len(handles)),
	}, nil
}
