package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tilldb/till-db/internal/logger"
	"github.com/tilldb/till-db/internal/types"
)

// ParquetRow carries one archived row with dynamic columns flattened to JSON.
type ParquetRow struct {
	TableName string `parquet:"name=table_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	DataJSON  string `parquet:"name=data_json, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ParquetArchiver periodically snapshots every relation into Parquet files,
// one file per relation. The archive is read-only; writes go through the
// primary heap storage.
type ParquetArchiver struct {
	baseDir      string
	source       func() ([]DbRelation, error)
	syncWorker   *time.Ticker
	syncInterval time.Duration
	stopSync     chan struct{}
	lastSync     time.Time
	mu           sync.RWMutex
}

// NewParquetArchiver creates an archiver writing under baseDir. The source
// callback enumerates the relations to snapshot.
func NewParquetArchiver(baseDir string, source func() ([]DbRelation, error)) (*ParquetArchiver, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &ParquetArchiver{
		baseDir:      baseDir,
		source:       source,
		syncInterval: 5 * time.Minute,
	}, nil
}

// SetInterval sets the interval for automatic snapshots.
func (a *ParquetArchiver) SetInterval(interval time.Duration) {
	a.syncInterval = interval
	if a.syncWorker != nil {
		a.syncWorker.Reset(interval)
	}
}

// Start launches a background worker that periodically snapshots all
// relations.
func (a *ParquetArchiver) Start() {
	if a.syncInterval == 0 {
		a.syncInterval = 5 * time.Minute
	}

	a.stopSync = make(chan struct{})
	a.syncWorker = time.NewTicker(a.syncInterval)

	go func() {
		for {
			select {
			case <-a.syncWorker.C:
				if err := a.SnapshotAll(); err != nil {
					logger.Warnf("parquet snapshot failed: %v", err)
				}
			case <-a.stopSync:
				a.syncWorker.Stop()
				return
			}
		}
	}()
}

// Stop halts the background worker.
func (a *ParquetArchiver) Stop() {
	if a.stopSync != nil {
		close(a.stopSync)
		a.stopSync = nil
	}
	if a.syncWorker != nil {
		a.syncWorker.Stop()
	}
}

// SnapshotAll writes a Parquet file for every relation the source reports.
func (a *ParquetArchiver) SnapshotAll() error {
	relations, err := a.source()
	if err != nil {
		return err
	}

	for _, rel := range relations {
		if err := a.Snapshot(rel); err != nil {
			logger.Warnf("failed to archive table %s: %v", rel.Name(), err)
		}
	}

	a.mu.Lock()
	a.lastSync = time.Now()
	a.mu.Unlock()
	return nil
}

// Snapshot writes one relation's current rows to its Parquet file.
func (a *ParquetArchiver) Snapshot(rel DbRelation) error {
	handles, err := rel.Select(nil)
	if err != nil {
		return err
	}

	filePath := filepath.Join(a.baseDir, fmt.Sprintf("%s.parquet", rel.Name()))
	fw, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return err
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, h := range handles {
		row, err := rel.Project(h, nil)
		if err != nil {
			return err
		}

		jsonData, err := json.Marshal(rowToPlain(row))
		if err != nil {
			return err
		}

		parquetRow := &ParquetRow{
			TableName: rel.Name(),
			DataJSON:  string(jsonData),
		}
		if err := pw.Write(parquetRow); err != nil {
			return err
		}
	}

	return pw.WriteStop()
}

// ReadSnapshot loads the archived rows of one relation back from its Parquet
// file. Missing files yield an empty result.
func (a *ParquetArchiver) ReadSnapshot(tableName string) ([]map[string]interface{}, error) {
	filePath := filepath.Join(a.baseDir, fmt.Sprintf("%s.parquet", tableName))
	fr, err := local.NewLocalFileReader(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ParquetRow), 4)
	if err != nil {
		return nil, err
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	parquetRows := make([]ParquetRow, numRows)
	if err := pr.Read(&parquetRows); err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for _, prow := range parquetRows {
		if prow.TableName != tableName {
			continue
		}
		var row map[string]interface{}
		if err := json.Unmarshal([]byte(prow.DataJSON), &row); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, nil
}

// LastSyncTime returns the time of the last completed snapshot pass.
func (a *ParquetArchiver) LastSyncTime() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastSync
}

func rowToPlain(row types.Row) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for col, v := range row {
		out[col] = encodeValue(v)
	}
	return out
}
