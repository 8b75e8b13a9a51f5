// Package sqlite persists the in-memory campuscore state to an embedded
// SQLite database as JSON bucket snapshots.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"campuscore/internal/infra/persistence/memory"
	"campuscore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store decorates the memory store and snapshots the full state into a
// single `state(bucket, payload)` table after every successful transaction.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ domain.PersistentStore = (*Store)(nil)

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "campuscore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

const (
	bucketCoordinates = "coordinates"
	bucketLocations   = "locations"
	bucketPersons     = "persons"
	bucketStudyGroups = "study_groups"
	bucketImportJobs  = "import_jobs"
	bucketSequences   = "sequences"
)

var buckets = []string{
	bucketCoordinates, bucketLocations, bucketPersons,
	bucketStudyGroups, bucketImportJobs, bucketSequences,
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{}
	loaded := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if err := decodeBucket(&snapshot, bucket, payload); err != nil {
			return err
		}
		loaded = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if loaded {
		s.ImportState(snapshot)
	}
	return nil
}

func decodeBucket(snapshot *memory.Snapshot, bucket string, payload []byte) error {
	var err error
	switch bucket {
	case bucketCoordinates:
		err = json.Unmarshal(payload, &snapshot.Coordinates)
	case bucketLocations:
		err = json.Unmarshal(payload, &snapshot.Locations)
	case bucketPersons:
		err = json.Unmarshal(payload, &snapshot.Persons)
	case bucketStudyGroups:
		err = json.Unmarshal(payload, &snapshot.StudyGroups)
	case bucketImportJobs:
		err = json.Unmarshal(payload, &snapshot.ImportJobs)
	case bucketSequences:
		err = json.Unmarshal(payload, &snapshot.Sequences)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

func encodeBucket(snapshot memory.Snapshot, bucket string) ([]byte, error) {
	switch bucket {
	case bucketCoordinates:
		return json.Marshal(snapshot.Coordinates)
	case bucketLocations:
		return json.Marshal(snapshot.Locations)
	case bucketPersons:
		return json.Marshal(snapshot.Persons)
	case bucketStudyGroups:
		return json.Marshal(snapshot.StudyGroups)
	case bucketImportJobs:
		return json.Marshal(snapshot.ImportJobs)
	case bucketSequences:
		return json.Marshal(snapshot.Sequences)
	}
	return nil, fmt.Errorf("unknown bucket %s", bucket)
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		data, err := encodeBucket(snapshot, bucket)
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn through the memory store, then snapshots the
// committed state to SQLite.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) ([]domain.Change, error) {
	changes, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return changes, err
	}
	if err := s.persist(); err != nil {
		return changes, fmt.Errorf("persist sqlite state: %w", err)
	}
	return changes, nil
}

// Close flushes nothing further and closes the database handle.
func (s *Store) Close() error { return s.db.Close() }
