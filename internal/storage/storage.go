// Package storage persists the BIN registry and the submission queue.
//
// Two durable collections exist: BIN records keyed by code, and pending
// submissions keyed by a monotonically increasing id. Three backends
// implement the same Store contract: an embedded SQLite file (the default,
// zero configuration), Postgres via pgxpool (production), and an in-memory
// map used by unit tests. All operations are atomic per code / per id; the
// contract requires no cross-record transactions.
package storage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cardmeta/bindex/internal/model"
)

// Store is the persistence contract for the registry and submission queue.
type Store interface {
	// GetBin returns the record for code, or ErrNotFound.
	GetBin(ctx context.Context, code string) (model.BinRecord, error)
	// CreateBin inserts a new record; ErrConflict if the code exists.
	CreateBin(ctx context.Context, rec model.BinRecord) error
	// PutBin inserts or replaces the record for rec.Code. This is the merge
	// path for approved submissions: calling it twice with the same record
	// is a no-op the second time.
	PutBin(ctx context.Context, rec model.BinRecord) error
	// UpdateBin applies a partial update to an existing record and returns
	// the result, or ErrNotFound. The read-modify-write is serialized per
	// code at the storage layer.
	UpdateBin(ctx context.Context, code string, patch model.BinPatch) (model.BinRecord, error)
	// DeleteBin removes the record for code, or ErrNotFound.
	DeleteBin(ctx context.Context, code string) error

	// AppendSubmission stores a new pending submission and returns its id.
	// IDs increase monotonically and are never reused, even after removal.
	AppendSubmission(ctx context.Context, sub model.Submission) (int64, error)
	// ListSubmissions returns all pending submissions in creation order.
	ListSubmissions(ctx context.Context) ([]model.Submission, error)
	// GetSubmission returns the submission with the given id, or ErrNotFound.
	GetSubmission(ctx context.Context, id int64) (model.Submission, error)
	// RemoveSubmission deletes a pending submission, or ErrNotFound.
	RemoveSubmission(ctx context.Context, id int64) error

	// Ping checks connectivity to the underlying database.
	Ping(ctx context.Context) error
	// Close releases the backend's resources.
	Close()
}

// Open creates a Store for the given DSN. postgres:// and postgresql://
// DSNs get the pgx backend; anything else is treated as a SQLite file path
// or file: URI.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewPostgres(ctx, dsn, logger)
	}
	return NewSQLite(ctx, dsn, logger)
}
