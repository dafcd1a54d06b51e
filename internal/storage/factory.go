package storage

import (
	"context"
	"fmt"

	"github.com/yourname/fastingtracker/internal"
)

// Open builds the configured backend. backend is one of file, sqlite,
// postgres; dsn is unused for file, and sessionsFile/profileFile are unused
// for the database backends.
func Open(ctx context.Context, backend, dsn, sessionsFile, profileFile string, logger internal.Logger) (Store, error) {
	switch backend {
	case "file":
		return NewFileStorage(sessionsFile, profileFile, logger)
	case "sqlite":
		return NewGormStorage(dsn, logger)
	case "postgres":
		return NewPostgresStorage(ctx, dsn, logger)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}
