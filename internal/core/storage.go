package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"campuscore/internal/infra/persistence/memory"
	"campuscore/internal/infra/persistence/postgres"
	"campuscore/internal/infra/persistence/sqlite"
	"campuscore/pkg/domain"
)

// Environment variables selecting the persistence backend.
const (
	EnvStorageDriver = "CAMPUSCORE_STORAGE_DRIVER"
	EnvSQLitePath    = "CAMPUSCORE_SQLITE_PATH"
	EnvPostgresDSN   = "CAMPUSCORE_POSTGRES_DSN"
)

// OpenPersistentStore builds the persistence backend named by
// CAMPUSCORE_STORAGE_DRIVER (memory, sqlite, or postgres; default memory).
func OpenPersistentStore(ctx context.Context) (domain.PersistentStore, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv(EnvStorageDriver)))
	switch driver {
	case "", "memory":
		return memory.NewStore(), nil
	case "sqlite":
		return sqlite.NewStore(os.Getenv(EnvSQLitePath))
	case "postgres":
		dsn := strings.TrimSpace(os.Getenv(EnvPostgresDSN))
		if dsn == "" {
			return nil, fmt.Errorf("postgres storage requires %s", EnvPostgresDSN)
		}
		return postgres.NewStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
