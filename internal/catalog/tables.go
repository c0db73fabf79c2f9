package catalog

import (
	"github.com/pkg/errors"

	"github.com/tilldb/till-db/internal/storage"
	"github.com/tilldb/till-db/internal/types"
)

// System relation names. These three describe every relation in the
// database, themselves included.
const (
	TablesTableName  = "_tables"
	ColumnsTableName = "_columns"
	IndicesTableName = "_indices"
)

// IsSchemaTable reports whether name is one of the three system relations.
func IsSchemaTable(name string) bool {
	return name == TablesTableName || name == ColumnsTableName || name == IndicesTableName
}

// Hard-coded schemas for the system relations. The catalog cannot look
// itself up, so these bootstrap the lookup chain.
var (
	tablesColumns = types.ColumnNames{"table_name"}
	tablesAttrs   = types.ColumnAttributes{
		{DataType: types.TextType},
	}

	columnsColumns = types.ColumnNames{"table_name", "column_name", "data_type"}
	columnsAttrs   = types.ColumnAttributes{
		{DataType: types.TextType},
		{DataType: types.TextType},
		{DataType: types.TextType},
	}

	indicesColumns = types.ColumnNames{"table_name", "index_name", "column_name", "seq_in_index", "index_type", "is_unique"}
	indicesAttrs   = types.ColumnAttributes{
		{DataType: types.TextType},
		{DataType: types.TextType},
		{DataType: types.TextType},
		{DataType: types.IntType},
		{DataType: types.TextType},
		{DataType: types.BooleanType},
	}
)

// Tables manages the _tables relation and acts as the factory for every
// other DbRelation.
type Tables struct {
	config   storage.StorageConfig
	relation storage.DbRelation
	columns  storage.DbRelation
	cache    map[string]storage.DbRelation
}

// NewTables opens (or creates) the _tables and _columns heap files. Newly
// created files are seeded with the self-describing bootstrap rows.
func NewTables(config storage.StorageConfig) (*Tables, error) {
	relation, err := storage.NewRelation(config, TablesTableName, tablesColumns, tablesAttrs)
	if err != nil {
		return nil, err
	}
	columns, err := storage.NewRelation(config, ColumnsTableName, columnsColumns, columnsAttrs)
	if err != nil {
		return nil, err
	}

	t := &Tables{
		config:   config,
		relation: relation,
		columns:  columns,
		cache:    make(map[string]storage.DbRelation),
	}

	if err := relation.CreateIfNotExists(); err != nil {
		return nil, errors.Wrap(err, "bootstrap _tables")
	}
	if err := columns.CreateIfNotExists(); err != nil {
		return nil, errors.Wrap(err, "bootstrap _columns")
	}
	if err := t.seed(); err != nil {
		return nil, errors.Wrap(err, "seed catalog")
	}

	return t, nil
}

// seed inserts the self-describing rows when the catalog files are fresh.
func (t *Tables) seed() error {
	handles, err := t.relation.Select(nil)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		for _, name := range []string{TablesTableName, ColumnsTableName, IndicesTableName} {
			if _, err := t.relation.Insert(types.Row{"table_name": types.TextValue(name)}); err != nil {
				return err
			}
		}
	}

	handles, err = t.columns.Select(nil)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		if err := t.seedColumns(TablesTableName, tablesColumns, tablesAttrs); err != nil {
			return err
		}
		if err := t.seedColumns(ColumnsTableName, columnsColumns, columnsAttrs); err != nil {
			return err
		}
		if err := t.seedColumns(IndicesTableName, indicesColumns, indicesAttrs); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tables) seedColumns(tableName string, names types.ColumnNames, attrs types.ColumnAttributes) error {
	for i, col := range names {
		row := types.Row{
			"table_name":  types.TextValue(tableName),
			"column_name": types.TextValue(col),
			"data_type":   types.TextValue(attrs[i].DataType.String()),
		}
		if _, err := t.columns.Insert(row); err != nil {
			return err
		}
	}
	return nil
}

// GetTable returns an open relation handle, opening and caching on first
// use. _tables and _columns short-circuit to the bootstrap relations; every
// other name is resolved through the catalog.
func (t *Tables) GetTable(name string) (storage.DbRelation, error) {
	switch name {
	case TablesTableName:
		return t.relation, nil
	case ColumnsTableName:
		return t.columns, nil
	}

	if rel, ok := t.cache[name]; ok {
		return rel, nil
	}

	handles, err := t.relation.Select(types.Row{"table_name": types.TextValue(name)})
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, types.NewDbRelationError("unknown table %s", name)
	}

	columnNames, columnAttributes, err := t.GetColumns(name)
	if err != nil {
		return nil, err
	}
	if len(columnNames) == 0 {
		return nil, types.NewDbRelationError("table %s has no columns in the catalog", name)
	}

	rel, err := storage.NewRelation(t.config, name, columnNames, columnAttributes)
	if err != nil {
		return nil, err
	}
	if rel.Exists() {
		if err := rel.Open(); err != nil {
			return nil, errors.Wrapf(err, "open table %s", name)
		}
	}

	t.cache[name] = rel
	return rel, nil
}

// Evict drops a relation from the open-relation cache. Used after DROP TABLE
// and after a failed CREATE TABLE, so a later CREATE starts fresh.
func (t *Tables) Evict(name string) {
	delete(t.cache, name)
}

// Insert appends a catalog row to _tables and returns its handle. The row
// must carry table_name.
func (t *Tables) Insert(row types.Row) (storage.Handle, error) {
	if _, err := row.Get("table_name"); err != nil {
		return 0, types.NewDbRelationError("catalog row is missing table_name")
	}
	return t.relation.Insert(row)
}

// Delete removes a catalog row from _tables. It does not touch _columns or
// the physical relation; the executor owns that ordering.
func (t *Tables) Delete(h storage.Handle) error {
	return t.relation.Delete(h)
}

// Select returns the _tables handles matching an optional equality
// predicate.
func (t *Tables) Select(where types.Row) (storage.Handles, error) {
	return t.relation.Select(where)
}

// Project reads the named columns of one _tables row.
func (t *Tables) Project(h storage.Handle, cols types.ColumnNames) (types.Row, error) {
	return t.relation.Project(h, cols)
}

// GetColumns reads the column list of a table from _columns, preserving
// insertion order. This is the source of truth GetTable uses to instantiate
// user relations.
func (t *Tables) GetColumns(tableName string) (types.ColumnNames, types.ColumnAttributes, error) {
	handles, err := t.columns.Select(types.Row{"table_name": types.TextValue(tableName)})
	if err != nil {
		return nil, nil, err
	}

	var columnNames types.ColumnNames
	var columnAttributes types.ColumnAttributes
	for _, h := range handles {
		row, err := t.columns.Project(h, types.ColumnNames{"column_name", "data_type"})
		if err != nil {
			return nil, nil, err
		}
		name, err := row["column_name"].Text()
		if err != nil {
			return nil, nil, err
		}
		typeName, err := row["data_type"].Text()
		if err != nil {
			return nil, nil, err
		}
		dataType, err := types.DataTypeFromString(typeName)
		if err != nil {
			return nil, nil, types.NewDbRelationError("table %s column %s: %v", tableName, name, err)
		}
		columnNames = append(columnNames, name)
		columnAttributes = append(columnAttributes, types.ColumnAttribute{DataType: dataType})
	}
	return columnNames, columnAttributes, nil
}
