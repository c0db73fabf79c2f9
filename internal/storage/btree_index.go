package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/btree"
	"github.com/tilldb/till-db/internal/types"
)

// indexEntry is one key/handle pair in a B-tree index. Keys are the indexed
// column values joined with a NUL separator, so composite keys order by
// column sequence.
type indexEntry struct {
	Key    string `json:"key"`
	Handle Handle `json:"handle"`
}

func lessEntry(a, b indexEntry) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.Handle < b.Handle
}

type indexSnapshot struct {
	Table   string       `json:"table"`
	Index   string       `json:"index"`
	Columns []string     `json:"columns"`
	Unique  bool         `json:"unique"`
	Entries []indexEntry `json:"entries"`
}

// BTreeIndex implements DbIndex with an in-memory B-tree persisted as a
// JSON snapshot next to the relation's heap file.
type BTreeIndex struct {
	relation DbRelation
	name     string
	columns  types.ColumnNames
	unique   bool
	filePath string
	tree     *btree.BTreeG[indexEntry]
}

// NewBTreeIndex creates an index over the given relation columns. An existing
// snapshot on disk is loaded eagerly.
func NewBTreeIndex(dataDir string, relation DbRelation, name string, columns types.ColumnNames, unique bool) (*BTreeIndex, error) {
	idx := &BTreeIndex{
		relation: relation,
		name:     name,
		columns:  columns,
		unique:   unique,
		filePath: filepath.Join(dataDir, relation.Name()+"."+name+".idx.json"),
		tree:     btree.NewG(8, lessEntry),
	}
	if _, err := os.Stat(idx.filePath); err == nil {
		if err := idx.load(); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Name returns the index name.
func (idx *BTreeIndex) Name() string {
	return idx.name
}

// Create builds the index from the current relation contents and persists it.
func (idx *BTreeIndex) Create() error {
	idx.tree.Clear(false)

	handles, err := idx.relation.Select(nil)
	if err != nil {
		return err
	}
	for _, h := range handles {
		if err := idx.add(h); err != nil {
			return err
		}
	}
	return idx.save()
}

// Drop removes the snapshot file and clears the in-memory tree.
func (idx *BTreeIndex) Drop() error {
	if err := os.Remove(idx.filePath); err != nil && !os.IsNotExist(err) {
		return types.NewDbRelationError("drop index %s on %s: %v", idx.name, idx.relation.Name(), err)
	}
	idx.tree.Clear(false)
	return nil
}

// Insert adds the row behind a handle to the index and persists the change.
func (idx *BTreeIndex) Insert(h Handle) error {
	if err := idx.add(h); err != nil {
		return err
	}
	return idx.save()
}

// Lookup returns the handles whose indexed columns equal the key.
func (idx *BTreeIndex) Lookup(key types.Row) (Handles, error) {
	composed, err := idx.composeKey(key)
	if err != nil {
		return nil, err
	}

	var handles Handles
	idx.tree.AscendGreaterOrEqual(indexEntry{Key: composed}, func(e indexEntry) bool {
		if e.Key != composed {
			return false
		}
		handles = append(handles, e.Handle)
		return true
	})
	return handles, nil
}

func (idx *BTreeIndex) add(h Handle) error {
	row, err := idx.relation.Project(h, idx.columns)
	if err != nil {
		return err
	}
	composed, err := idx.composeKey(row)
	if err != nil {
		return err
	}

	if idx.unique {
		duplicate := false
		idx.tree.AscendGreaterOrEqual(indexEntry{Key: composed}, func(e indexEntry) bool {
			duplicate = e.Key == composed
			return false
		})
		if duplicate {
			return types.NewDbRelationError("duplicate entry for unique index %s on %s", idx.name, idx.relation.Name())
		}
	}

	idx.tree.ReplaceOrInsert(indexEntry{Key: composed, Handle: h})
	return nil
}

func (idx *BTreeIndex) composeKey(row types.Row) (string, error) {
	parts := make([]string, len(idx.columns))
	for i, col := range idx.columns {
		v, err := row.Get(col)
		if err != nil {
			return "", types.NewDbRelationError("index %s on %s: %v", idx.name, idx.relation.Name(), err)
		}
		parts[i] = v.String()
	}
	return strings.Join(parts, "\x00"), nil
}

func (idx *BTreeIndex) save() error {
	snap := indexSnapshot{
		Table:   idx.relation.Name(),
		Index:   idx.name,
		Columns: idx.columns,
		Unique:  idx.unique,
		Entries: []indexEntry{},
	}
	idx.tree.Ascend(func(e indexEntry) bool {
		snap.Entries = append(snap.Entries, e)
		return true
	})

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return types.NewDbRelationError("encode index %s on %s: %v", idx.name, idx.relation.Name(), err)
	}
	if err := os.WriteFile(idx.filePath, data, 0644); err != nil {
		return types.NewDbRelationError("write index %s on %s: %v", idx.name, idx.relation.Name(), err)
	}
	return nil
}

func (idx *BTreeIndex) load() error {
	data, err := os.ReadFile(idx.filePath)
	if err != nil {
		return types.NewDbRelationError("read index %s on %s: %v", idx.name, idx.relation.Name(), err)
	}

	var snap indexSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return types.NewDbRelationError("decode index %s on %s: %v", idx.name, idx.relation.Name(), err)
	}

	idx.tree.Clear(false)
	for _, e := range snap.Entries {
		idx.tree.ReplaceOrInsert(e)
	}
	return nil
}
