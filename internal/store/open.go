package store

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Open builds the primary gateway for backend. location is the data file for
// the file backend and the DSN for postgres; memory ignores it.
func Open(ctx context.Context, backend, location string) (Gateway, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return OpenFile(location)
	case BackendPostgres:
		pg, err := OpenPostgres(ctx, location)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
