// Package directory implements the registry operations and the correction
// workflow on top of a storage.Store. Every access channel — JSON API, web
// UI, admin UI, chat worker — goes through this service rather than the
// store directly.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cardmeta/bindex/internal/model"
	"github.com/cardmeta/bindex/internal/storage"
)

// ErrValidation wraps input errors so transports can map them to 400.
var ErrValidation = errors.New("directory: invalid input")

// Service exposes registry reads, admin mutations, and the correction
// workflow (submit / approve / reject).
type Service struct {
	store  storage.Store
	logger *slog.Logger
}

// New creates a Service.
func New(store storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Lookup returns the record for code, or storage.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, code string) (model.BinRecord, error) {
	if err := model.ValidateCode(code); err != nil {
		return model.BinRecord{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return s.store.GetBin(ctx, code)
}

// Create inserts a brand-new record. Company and country are required on
// this path; an existing code is a conflict, never a silent overwrite.
func (s *Service) Create(ctx context.Context, rec model.BinRecord) (model.BinRecord, error) {
	if err := model.ValidateCode(rec.Code); err != nil {
		return model.BinRecord{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if rec.Company == "" || rec.Country == "" {
		return model.BinRecord{}, fmt.Errorf("%w: company and country are required", ErrValidation)
	}
	if err := s.store.CreateBin(ctx, rec); err != nil {
		return model.BinRecord{}, err
	}
	return rec, nil
}

// Update applies a partial update to an existing record.
func (s *Service) Update(ctx context.Context, code string, patch model.BinPatch) (model.BinRecord, error) {
	if err := model.ValidateCode(code); err != nil {
		return model.BinRecord{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return s.store.UpdateBin(ctx, code, patch)
}

// Save is the admin editor's insert-or-replace path: it writes the full
// record whether or not the code already exists.
func (s *Service) Save(ctx context.Context, rec model.BinRecord) error {
	if err := model.ValidateCode(rec.Code); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return s.store.PutBin(ctx, rec)
}

// Delete removes a record, or storage.ErrNotFound.
func (s *Service) Delete(ctx context.Context, code string) error {
	if err := model.ValidateCode(code); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return s.store.DeleteBin(ctx, code)
}

// Submit validates the code format and appends a pending submission. It
// never touches the registry, and it deliberately accepts codes unknown to
// the registry so missing BINs get reported too.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (model.Submission, error) {
	if err := model.ValidateCode(sub.Code); err != nil {
		return model.Submission{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	sub.ID = 0
	id, err := s.store.AppendSubmission(ctx, sub)
	if err != nil {
		return model.Submission{}, err
	}
	sub.ID = id
	s.logger.Info("submission received", "id", id, "code", sub.Code)
	return sub, nil
}

// Submissions lists the pending queue in creation order.
func (s *Service) Submissions(ctx context.Context) ([]model.Submission, error) {
	return s.store.ListSubmissions(ctx)
}

// Submission returns one pending submission by id.
func (s *Service) Submission(ctx context.Context, id int64) (model.Submission, error) {
	return s.store.GetSubmission(ctx, id)
}

// Approve merges a pending submission into the registry and retires it.
//
// The registry write commits first; removing the queue entry is the commit
// point. If the process dies between the two, the stale submission still
// points at an already-merged record, and re-running Approve is harmless:
// PutBin with identical data is a no-op. Once the submission is removed a
// second Approve returns storage.ErrNotFound, so a resolved id can never be
// applied twice.
func (s *Service) Approve(ctx context.Context, id int64) (model.BinRecord, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return model.BinRecord{}, err
	}

	rec := sub.Record()
	if err := s.store.PutBin(ctx, rec); err != nil {
		return model.BinRecord{}, err
	}
	if err := s.store.RemoveSubmission(ctx, id); err != nil {
		// The merge landed but the queue entry survived. Surface the error;
		// the operator retries Approve, which re-merges the same data.
		return model.BinRecord{}, fmt.Errorf("directory: retire submission %d: %w", id, err)
	}

	s.logger.Info("submission approved", "id", id, "code", sub.Code)
	return rec, nil
}

// Reject discards a pending submission without touching the registry.
func (s *Service) Reject(ctx context.Context, id int64) error {
	if err := s.store.RemoveSubmission(ctx, id); err != nil {
		return err
	}
	s.logger.Info("submission rejected", "id", id)
	return nil
}
