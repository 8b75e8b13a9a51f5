// Package postgres persists the in-memory campuscore state to a PostgreSQL
// database as JSONB bucket snapshots.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"campuscore/internal/infra/persistence/memory"
	"campuscore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver "pgx"
)

// Store decorates the memory store and snapshots the full state into a
// single `state(bucket, payload)` table after every successful transaction.
// The layout matches the sqlite driver so the two stay interchangeable.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

var _ domain.PersistentStore = (*Store)(nil)

// NewStore connects to PostgreSQL using the provided DSN and loads any
// previously persisted state.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
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
		var decodeErr error
		switch bucket {
		case "coordinates":
			decodeErr = json.Unmarshal(payload, &snapshot.Coordinates)
		case "locations":
			decodeErr = json.Unmarshal(payload, &snapshot.Locations)
		case "persons":
			decodeErr = json.Unmarshal(payload, &snapshot.Persons)
		case "study_groups":
			decodeErr = json.Unmarshal(payload, &snapshot.StudyGroups)
		case "import_jobs":
			decodeErr = json.Unmarshal(payload, &snapshot.ImportJobs)
		case "sequences":
			decodeErr = json.Unmarshal(payload, &snapshot.Sequences)
		}
		if decodeErr != nil {
			return fmt.Errorf("decode %s: %w", bucket, decodeErr)
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

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	payloads := []struct {
		bucket string
		value  any
	}{
		{"coordinates", snapshot.Coordinates},
		{"locations", snapshot.Locations},
		{"persons", snapshot.Persons},
		{"study_groups", snapshot.StudyGroups},
		{"import_jobs", snapshot.ImportJobs},
		{"sequences", snapshot.Sequences},
	}
	for _, p := range payloads {
		data, err := json.Marshal(p.value)
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, p.bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", p.bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// RunInTransaction applies fn through the memory store, then snapshots the
// committed state to PostgreSQL.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) ([]domain.Change, error) {
	changes, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return changes, err
	}
	if err := s.persist(ctx); err != nil {
		return changes, fmt.Errorf("persist postgres state: %w", err)
	}
	return changes, nil
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }
