package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tilldb/till-db/internal/types"
)

// heapRecord is one slot in a heap file. Deleted slots stay in place so that
// handles of surviving rows remain stable.
type heapRecord struct {
	Deleted bool                   `json:"deleted"`
	Values  map[string]interface{} `json:"values"`
}

type heapFile struct {
	Name    string       `json:"name"`
	Columns []heapColumn `json:"columns"`
	Records []heapRecord `json:"records"`
}

type heapColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// HeapRelation implements DbRelation on top of a JSON heap file. A handle is
// the slot position of a record; deletes tombstone the slot.
type HeapRelation struct {
	name             string
	columnNames      types.ColumnNames
	columnAttributes types.ColumnAttributes
	filePath         string
	records          []heapRecord
	opened           bool
	mu               sync.RWMutex
}

// NewHeapRelation creates a heap relation handle. The file is not touched
// until Create or Open is called.
func NewHeapRelation(dataDir string, name string, columnNames types.ColumnNames, columnAttributes types.ColumnAttributes) *HeapRelation {
	return &HeapRelation{
		name:             name,
		columnNames:      columnNames,
		columnAttributes: columnAttributes,
		filePath:         filepath.Join(dataDir, name+".heap.json"),
	}
}

// Name returns the relation name.
func (r *HeapRelation) Name() string {
	return r.name
}

// ColumnNames returns the relation's columns in declared order.
func (r *HeapRelation) ColumnNames() types.ColumnNames {
	return r.columnNames
}

// ColumnAttributes returns per-column metadata in declared order.
func (r *HeapRelation) ColumnAttributes() types.ColumnAttributes {
	return r.columnAttributes
}

// Exists reports whether the underlying heap file is present on disk.
func (r *HeapRelation) Exists() bool {
	_, err := os.Stat(r.filePath)
	return err == nil
}

// Create creates the underlying heap file. Fails if it already exists.
func (r *HeapRelation) Create() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Exists() {
		return types.NewDbRelationError("table %s already exists", r.name)
	}

	if err := os.MkdirAll(filepath.Dir(r.filePath), 0755); err != nil {
		return types.NewDbRelationError("create data directory for %s: %v", r.name, err)
	}

	r.records = nil
	r.opened = true
	return r.save()
}

// CreateIfNotExists creates the underlying heap file, or opens it when it is
// already present.
func (r *HeapRelation) CreateIfNotExists() error {
	if r.Exists() {
		return r.Open()
	}
	return r.Create()
}

// Open loads an existing heap file into memory.
func (r *HeapRelation) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opened {
		return nil
	}
	if err := r.load(); err != nil {
		return err
	}
	r.opened = true
	return nil
}

// Drop removes the underlying heap file.
func (r *HeapRelation) Drop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.filePath); err != nil && !os.IsNotExist(err) {
		return types.NewDbRelationError("drop table %s: %v", r.name, err)
	}
	r.records = nil
	r.opened = false
	return nil
}

// Close flushes the in-memory records back to disk.
func (r *HeapRelation) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.opened {
		return nil
	}
	return r.save()
}

// Insert appends a row and returns its handle.
func (r *HeapRelation) Insert(row types.Row) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.opened {
		return 0, types.NewDbRelationError("table %s is not open", r.name)
	}

	values := make(map[string]interface{}, len(r.columnNames))
	for i, col := range r.columnNames {
		v, ok := row[col]
		if !ok {
			return 0, types.NewDbRelationError("missing column %s in row for table %s", col, r.name)
		}
		if v.Type != r.columnAttributes[i].DataType {
			return 0, types.NewDbRelationError("column %s of table %s expects %s", col, r.name, r.columnAttributes[i].DataType)
		}
		values[col] = encodeValue(v)
	}

	r.records = append(r.records, heapRecord{Values: values})
	if err := r.save(); err != nil {
		r.records = r.records[:len(r.records)-1]
		return 0, err
	}
	return Handle(len(r.records) - 1), nil
}

// Select returns the handles of rows matching the equality predicate. A nil
// predicate matches every row.
func (r *HeapRelation) Select(where types.Row) (Handles, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.opened {
		return nil, types.NewDbRelationError("table %s is not open", r.name)
	}

	var handles Handles
	for i, rec := range r.records {
		if rec.Deleted {
			continue
		}
		row, err := r.decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		if matches(row, where) {
			handles = append(handles, Handle(i))
		}
	}
	return handles, nil
}

// Project returns the named columns of the row behind a handle. A nil column
// list means all columns.
func (r *HeapRelation) Project(h Handle, cols types.ColumnNames) (types.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.record(h)
	if err != nil {
		return nil, err
	}
	row, err := r.decodeRecord(*rec)
	if err != nil {
		return nil, err
	}

	if cols == nil {
		return row, nil
	}
	out := make(types.Row, len(cols))
	for _, col := range cols {
		v, ok := row[col]
		if !ok {
			return nil, types.NewDbRelationError("table %s has no column %s", r.name, col)
		}
		out[col] = v
	}
	return out, nil
}

// Delete tombstones the row behind a handle.
func (r *HeapRelation) Delete(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.record(h)
	if err != nil {
		return err
	}
	rec.Deleted = true
	return r.save()
}

func (r *HeapRelation) record(h Handle) (*heapRecord, error) {
	if !r.opened {
		return nil, types.NewDbRelationError("table %s is not open", r.name)
	}
	if h < 0 || int(h) >= len(r.records) {
		return nil, types.NewDbRelationError("invalid handle %d for table %s", h, r.name)
	}
	rec := &r.records[h]
	if rec.Deleted {
		return nil, types.NewDbRelationError("handle %d of table %s is deleted", h, r.name)
	}
	return rec, nil
}

func (r *HeapRelation) decodeRecord(rec heapRecord) (types.Row, error) {
	row := make(types.Row, len(r.columnNames))
	for i, col := range r.columnNames {
		raw, ok := rec.Values[col]
		if !ok {
			return nil, types.NewDbRelationError("record in table %s is missing column %s", r.name, col)
		}
		v, err := decodeValue(raw, r.columnAttributes[i].DataType)
		if err != nil {
			return nil, types.NewDbRelationError("decode column %s of table %s: %v", col, r.name, err)
		}
		row[col] = v
	}
	return row, nil
}

func (r *HeapRelation) save() error {
	file := heapFile{
		Name:    r.name,
		Columns: make([]heapColumn, len(r.columnNames)),
		Records: r.records,
	}
	for i, col := range r.columnNames {
		file.Columns[i] = heapColumn{Name: col, Type: r.columnAttributes[i].DataType.String()}
	}
	if file.Records == nil {
		file.Records = []heapRecord{}
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return types.NewDbRelationError("encode heap file for %s: %v", r.name, err)
	}
	if err := os.WriteFile(r.filePath, data, 0644); err != nil {
		return types.NewDbRelationError("write heap file for %s: %v", r.name, err)
	}
	return nil
}

func (r *HeapRelation) load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return types.NewDbRelationError("table %s does not exist", r.name)
		}
		return types.NewDbRelationError("read heap file for %s: %v", r.name, err)
	}

	var file heapFile
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()
	if err := decoder.Decode(&file); err != nil {
		return types.NewDbRelationError("decode heap file for %s: %v", r.name, err)
	}

	r.records = file.Records
	return nil
}

func matches(row types.Row, where types.Row) bool {
	for col, want := range where {
		got, ok := row[col]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

func encodeValue(v types.Value) interface{} {
	switch v.Type {
	case types.IntType:
		n, _ := v.Int()
		return n
	case types.BooleanType:
		b, _ := v.Bool()
		return b
	default:
		s, _ := v.Text()
		return s
	}
}

func decodeValue(raw interface{}, dt types.DataType) (types.Value, error) {
	switch dt {
	case types.IntType:
		switch n := raw.(type) {
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return types.Value{}, err
			}
			return types.IntValue(int32(i)), nil
		case int32:
			return types.IntValue(n), nil
		case int:
			return types.IntValue(int32(n)), nil
		case float64:
			return types.IntValue(int32(n)), nil
		}
		return types.Value{}, types.NewDbRelationError("value %v is not an integer", raw)
	case types.TextType:
		if s, ok := raw.(string); ok {
			return types.TextValue(s), nil
		}
		return types.Value{}, types.NewDbRelationError("value %v is not a string", raw)
	case types.BooleanType:
		if b, ok := raw.(bool); ok {
			return types.BoolValue(b), nil
		}
		return types.Value{}, types.NewDbRelationError("value %v is not a boolean", raw)
	default:
		return types.Value{}, types.NewDbRelationError("unknown data type %v", dt)
	}
}
