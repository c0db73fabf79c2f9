package catalog

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/tilldb/till-db/internal/storage"
	"github.com/tilldb/till-db/internal/types"
)

// Indices manages the _indices relation and acts as the factory for
// physical indices.
type Indices struct {
	config   storage.StorageConfig
	tables   *Tables
	relation storage.DbRelation
	cache    map[string]storage.DbIndex
}

// NewIndices opens (or creates) the _indices heap file. The _indices schema
// itself comes out of the bootstrapped _columns relation.
func NewIndices(config storage.StorageConfig, tables *Tables) (*Indices, error) {
	relation, err := tables.GetTable(IndicesTableName)
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap _indices")
	}
	if err := relation.CreateIfNotExists(); err != nil {
		return nil, errors.Wrap(err, "bootstrap _indices")
	}

	return &Indices{
		config:   config,
		tables:   tables,
		relation: relation,
		cache:    make(map[string]storage.DbIndex),
	}, nil
}

// GetIndex opens (and caches) the physical index for (tableName, indexName).
// The column list, ordered by seq_in_index, and the uniqueness flag come
// from the _indices rows. index_type is not read: every index is opened as
// a BTreeIndex.
func (ix *Indices) GetIndex(tableName, indexName string) (storage.DbIndex, error) {
	cacheKey := tableName + "." + indexName
	if idx, ok := ix.cache[cacheKey]; ok {
		return idx, nil
	}

	where := types.Row{
		"table_name": types.TextValue(tableName),
		"index_name": types.TextValue(indexName),
	}
	handles, err := ix.relation.Select(where)
	if err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, types.NewDbRelationError("unknown index %s on table %s", indexName, tableName)
	}

	type indexedColumn struct {
		seq  int32
		name string
	}
	var cols []indexedColumn
	unique := false
	for _, h := range handles {
		row, err := ix.relation.Project(h, types.ColumnNames{"column_name", "seq_in_index", "is_unique"})
		if err != nil {
			return nil, err
		}
		name, err := row["column_name"].Text()
		if err != nil {
			return nil, err
		}
		seq, err := row["seq_in_index"].Int()
		if err != nil {
			return nil, err
		}
		unique, err = row["is_unique"].Bool()
		if err != nil {
			return nil, err
		}
		cols = append(cols, indexedColumn{seq: seq, name: name})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].seq < cols[j].seq })

	columnNames := make(types.ColumnNames, len(cols))
	for i, c := range cols {
		columnNames[i] = c.name
	}

	rel, err := ix.tables.GetTable(tableName)
	if err != nil {
		return nil, err
	}

	idx, err := storage.NewBTreeIndex(ix.config.DataDir, rel, indexName, columnNames, unique)
	if err != nil {
		return nil, errors.Wrapf(err, "open index %s on %s", indexName, tableName)
	}
	ix.cache[cacheKey] = idx
	return idx, nil
}

// GetIndexNames returns the distinct index names of a table in _indices
// insertion order.
func (ix *Indices) GetIndexNames(tableName string) ([]string, error) {
	handles, err := ix.relation.Select(types.Row{"table_name": types.TextValue(tableName)})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	for _, h := range handles {
		row, err := ix.relation.Project(h, types.ColumnNames{"index_name"})
		if err != nil {
			return nil, err
		}
		name, err := row["index_name"].Text()
		if err != nil {
			return nil, err
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

// Evict drops an index from the open-index cache.
func (ix *Indices) Evict(tableName, indexName string) {
	delete(ix.cache, tableName+"."+indexName)
}

// Insert appends a catalog row to _indices and returns its handle.
func (ix *Indices) Insert(row types.Row) (storage.Handle, error) {
	return ix.relation.Insert(row)
}

// Delete removes a catalog row from _indices.
func (ix *Indices) Delete(h storage.Handle) error {
	return ix.relation.Delete(h)
}

// Select returns the _indices handles matching an optional equality
// predicate.
func (ix *Indices) Select(where types.Row) (storage.Handles, error) {
	return ix.relation.Select(where)
}

// Project reads the named columns of one _indices row.
func (ix *Indices) Project(h storage.Handle, cols types.ColumnNames) (types.Row, error) {
	return ix.relation.Project(h, cols)
}
