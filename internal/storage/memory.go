package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/cardmeta/bindex/internal/model"
)

// Memory is an in-memory Store used by unit tests and throwaway setups.
// A single RWMutex serializes writes; reads of different keys never block
// each other.
type Memory struct {
	mu          sync.RWMutex
	bins        map[string]model.BinRecord
	submissions map[int64]model.Submission
	nextID      int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		bins:        make(map[string]model.BinRecord),
		submissions: make(map[int64]model.Submission),
	}
}

func (m *Memory) GetBin(_ context.Context, code string) (model.BinRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.bins[code]
	if !ok {
		return model.BinRecord{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *Memory) CreateBin(_ context.Context, rec model.BinRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bins[rec.Code]; ok {
		return ErrConflict
	}
	m.bins[rec.Code] = cloneRecord(rec)
	return nil
}

func (m *Memory) PutBin(_ context.Context, rec model.BinRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bins[rec.Code] = cloneRecord(rec)
	return nil
}

func (m *Memory) UpdateBin(_ context.Context, code string, patch model.BinPatch) (model.BinRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.bins[code]
	if !ok {
		return model.BinRecord{}, ErrNotFound
	}
	rec = patch.Apply(rec)
	m.bins[code] = rec
	return cloneRecord(rec), nil
}

func (m *Memory) DeleteBin(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bins[code]; !ok {
		return ErrNotFound
	}
	delete(m.bins, code)
	return nil
}

func (m *Memory) AppendSubmission(_ context.Context, sub model.Submission) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sub.ID = m.nextID
	m.submissions[sub.ID] = cloneSubmission(sub)
	return sub.ID, nil
}

func (m *Memory) ListSubmissions(_ context.Context) ([]model.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Submission, 0, len(m.submissions))
	for _, sub := range m.submissions {
		out = append(out, cloneSubmission(sub))
	}
	// IDs are assigned in creation order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetSubmission(_ context.Context, id int64) (model.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.submissions[id]
	if !ok {
		return model.Submission{}, ErrNotFound
	}
	return cloneSubmission(sub), nil
}

func (m *Memory) RemoveSubmission(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[id]; !ok {
		return ErrNotFound
	}
	delete(m.submissions, id)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}

// cloneRecord copies rec, giving MaxBalance its own pointer so callers can
// never mutate stored state through a shared *int64.
func cloneRecord(rec model.BinRecord) model.BinRecord {
	if rec.MaxBalance != nil {
		mb := *rec.MaxBalance
		rec.MaxBalance = &mb
	}
	return rec
}

// cloneSubmission is cloneRecord's counterpart for the submission queue.
func cloneSubmission(sub model.Submission) model.Submission {
	if sub.MaxBalance != nil {
		mb := *sub.MaxBalance
		sub.MaxBalance = &mb
	}
	return sub
}
