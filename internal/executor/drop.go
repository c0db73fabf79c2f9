package executor

import (
	"github.com/tilldb/till-db/internal/catalog"
	"github.com/tilldb/till-db/internal/parser"
	"github.com/tilldb/till-db/internal/types"
)

// dropTable removes a table's indices, its catalog rows and the physical
// relation, in an order that leaves no dangling catalog references if a
// later step fails.
func (e *Executor) dropTable(stmt *parser.DropTableStatement) (*QueryResult, error) {
	if catalog.IsSchemaTable(stmt.Table) {
		return nil, NewSQLExecError("cannot drop a schema table")
	}

	tables := e.catalog.Tables
	indices := e.catalog.Indices

	table, err := tables.GetTable(stmt.Table)
	if err != nil {
		return nil, err
	}

	// Indices first: catalog rows, then the physical structures.
	indexNames, err := indices.GetIndexNames(stmt.Table)
	if err != nil {
		return nil, err
	}
	for _, indexName := range indexNames {
		index, err := indices.GetIndex(stmt.Table, indexName)
		if err != nil {
			return nil, err
		}
		where := types.Row{
			"table_name": types.TextValue(stmt.Table),
			"index_name": types.TextValue(indexName),
		}
		handles, err := indices.Select(where)
		if err != nil {
			return nil, err
		}
		for _, h := range handles {
			if err := indices.Delete(h); err != nil {
				return nil, err
			}
		}
		if err := index.Drop(); err != nil {
			return nil, err
		}
		indices.Evict(stmt.Table, indexName)
	}

	columns, err := tables.GetTable(catalog.ColumnsTableName)
	if err != nil {
		return nil, err
	}
	where := types.Row{"table_name": types.TextValue(stmt.Table)}
	columnHandles, err := columns.Select(where)
	if err != nil {
		return nil, err
	}
	for _, h := range columnHandles {
		if err := columns.Delete(h); err != nil {
			return nil, err
		}
	}

	if err := table.Drop(); err != nil {
		return nil, err
	}

	tableHandles, err := tables.Select(where)
	if err != nil {
		return nil, err
	}
	for _, h := range tableHandles {
		if err := tables.Delete(h); err != nil {
			return nil, err
		}
	}
	tables.Evict(stmt.Table)

	return NewMessageResult("dropped " + stmt.Table), nil
}

// dropIndex removes the catalog rows for one index, then the physical
// structure. Catalog rows go first, matching the fixed drop ordering.
func (e *Executor) dropIndex(stmt *parser.DropIndexStatement) (*QueryResult, error) {
	indices := e.catalog.Indices

	index, err := indices.GetIndex(stmt.Table, stmt.Index)
	if err != nil {
		return nil, err
	}

	where := types.Row{
		"table_name": types.TextValue(stmt.Table),
		"index_name": types.TextValue(stmt.Index),
	}
	handles, err := indices.Select(where)
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		if err := indices.Delete(h); err != nil {
			return nil, err
		}
	}

	if err := index.Drop(); err != nil {
		return nil, err
	}
	indices.Evict(stmt.Table, stmt.Index)

	return NewMessageResult("drop index " + stmt.Index), nil
}
