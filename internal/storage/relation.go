package storage

import (
	"github.com/tilldb/till-db/internal/types"
)

// Handle is an opaque identifier for a stored row. It stays stable until the
// row is deleted.
type Handle int64

// Handles is an ordered list of row handles.
type Handles []Handle

// DbRelation is a physical table managed by the storage engine.
type DbRelation interface {
	// Name returns the relation name.
	Name() string
	// ColumnNames returns the relation's columns in declared order.
	ColumnNames() types.ColumnNames
	// ColumnAttributes returns per-column metadata in declared order.
	ColumnAttributes() types.ColumnAttributes

	// Exists reports whether the underlying file is present on disk.
	Exists() bool
	// Create creates the underlying file. Fails if it already exists.
	Create() error
	// CreateIfNotExists creates the underlying file, or opens it when present.
	CreateIfNotExists() error
	// Open loads an existing underlying file.
	Open() error
	// Drop removes the underlying file.
	Drop() error
	// Close flushes any pending state.
	Close() error

	// Insert appends a row and returns its handle.
	Insert(row types.Row) (Handle, error)
	// Select returns the handles of rows matching the equality predicate.
	// A nil predicate matches every row.
	Select(where types.Row) (Handles, error)
	// Project returns the named columns of the row behind a handle. A nil
	// column list means all columns.
	Project(h Handle, cols types.ColumnNames) (types.Row, error)
	// Delete removes the row behind a handle.
	Delete(h Handle) error
}

// DbIndex is a physical index over one relation.
type DbIndex interface {
	// Name returns the index name.
	Name() string
	// Create builds the index from the current relation contents.
	Create() error
	// Drop removes the index structure.
	Drop() error
	// Insert adds the row behind a handle to the index.
	Insert(h Handle) error
	// Lookup returns the handles whose indexed columns equal the key.
	Lookup(key types.Row) (Handles, error)
}

// BackendType selects the relation backend.
type BackendType string

const (
	// HeapBackend stores rows in JSON heap files, one per relation.
	HeapBackend BackendType = "heap"
)

// StorageConfig configures where and how relations are kept on disk.
type StorageConfig struct {
	Backend BackendType
	DataDir string
}

// NewRelation creates a relation instance for the configured backend. The
// underlying file is not touched until Create or Open is called.
func NewRelation(config StorageConfig, name string, columnNames types.ColumnNames, columnAttributes types.ColumnAttributes) (DbRelation, error) {
	switch config.Backend {
	case HeapBackend, "":
		if config.DataDir == "" {
			return nil, types.NewDbRelationError("data directory is required for heap storage")
		}
		return NewHeapRelation(config.DataDir, name, columnNames, columnAttributes), nil
	default:
		return nil, types.NewDbRelationError("unsupported storage backend: %s", config.Backend)
	}
}
