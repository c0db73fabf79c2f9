package catalog

import (
	"github.com/pkg/errors"

	"github.com/tilldb/till-db/internal/storage"
	"github.com/tilldb/till-db/internal/types"
)

// Catalog owns the system relations and hands out relations and indices to
// the executor. The shell keeps one Catalog for the process lifetime.
type Catalog struct {
	Tables  *Tables
	Indices *Indices
	config  storage.StorageConfig
}

// New bootstraps a catalog over the configured storage. The system heap
// files are created and seeded on first use.
func New(config storage.StorageConfig) (*Catalog, error) {
	tables, err := NewTables(config)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	indices, err := NewIndices(config, tables)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	return &Catalog{
		Tables:  tables,
		Indices: indices,
		config:  config,
	}, nil
}

// Relations enumerates every relation in the catalog, system tables
// included. Used by the archiver to snapshot the whole database.
func (c *Catalog) Relations() ([]storage.DbRelation, error) {
	handles, err := c.Tables.Select(nil)
	if err != nil {
		return nil, err
	}

	var relations []storage.DbRelation
	for _, h := range handles {
		row, err := c.Tables.Project(h, types.ColumnNames{"table_name"})
		if err != nil {
			return nil, err
		}
		name, err := row["table_name"].Text()
		if err != nil {
			return nil, err
		}
		rel, err := c.Tables.GetTable(name)
		if err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, nil
}

// Close flushes the system relations and every cached user relation.
func (c *Catalog) Close() error {
	var firstErr error
	for _, rel := range c.Tables.cache {
		if err := rel.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.Tables.columns.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.Tables.relation.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
