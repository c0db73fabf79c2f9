package executor

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/tilldb/till-db/internal/catalog"
	"github.com/tilldb/till-db/internal/parser"
	"github.com/tilldb/till-db/internal/types"
)

// SQLExecError is the one error kind DDL execution surfaces to callers.
type SQLExecError struct {
	Msg string
}

func (e *SQLExecError) Error() string {
	return e.Msg
}

// NewSQLExecError builds an SQLExecError from a format string.
func NewSQLExecError(format string, args ...interface{}) *SQLExecError {
	return &SQLExecError{Msg: fmt.Sprintf(format, args...)}
}

// Executor runs DDL statements against a catalog. A mutex serializes Execute
// so the catalog caches stay consistent across callers.
type Executor struct {
	catalog *catalog.Catalog
	mu      sync.Mutex
}

// New creates an executor over an opened catalog.
func New(c *catalog.Catalog) *Executor {
	return &Executor{catalog: c}
}

// Execute dispatches one parsed statement and returns its QueryResult.
// Storage-layer DbRelationErrors are re-surfaced as SQLExecError with a
// "DbRelationError: " prefix.
func (e *Executor) Execute(stmt parser.Statement) (*QueryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.dispatch(stmt)
	if err != nil {
		var relErr *types.DbRelationError
		if errors.As(err, &relErr) {
			return nil, NewSQLExecError("DbRelationError: %s", relErr.Msg)
		}
		return nil, err
	}
	return result, nil
}

func (e *Executor) dispatch(stmt parser.Statement) (*QueryResult, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStatement:
		return e.createTable(s)
	case *parser.CreateIndexStatement:
		return e.createIndex(s)
	case *parser.DropTableStatement:
		return e.dropTable(s)
	case *parser.DropIndexStatement:
		return e.dropIndex(s)
	case *parser.ShowStatement:
		return e.show(s)
	default:
		return NewMessageResult("not implemented"), nil
	}
}

func (e *Executor) show(stmt *parser.ShowStatement) (*QueryResult, error) {
	switch stmt.Kind {
	case parser.ShowTables:
		return e.showTables()
	case parser.ShowColumns:
		return e.showColumns(stmt)
	case parser.ShowIndex:
		return e.showIndex(stmt)
	default:
		return nil, NewSQLExecError("unrecognized SHOW type")
	}
}
