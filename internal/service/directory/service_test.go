package directory_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardmeta/bindex/internal/model"
	"github.com/cardmeta/bindex/internal/service/directory"
	"github.com/cardmeta/bindex/internal/storage"
)

func newService(t *testing.T) (*directory.Service, storage.Store) {
	t.Helper()
	store := storage.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return directory.New(store, logger), store
}

func strp(s string) *string { return &s }

func TestLookup(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	require.NoError(t, store.CreateBin(ctx, model.BinRecord{Code: "411111", Company: "Acme Bank", Country: "US"}))

	rec, err := svc.Lookup(ctx, "411111")
	require.NoError(t, err)
	assert.Equal(t, "Acme Bank", rec.Company)

	_, err = svc.Lookup(ctx, "999999")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Lookup(ctx, "41111")
	assert.ErrorIs(t, err, directory.ErrValidation)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		rec  model.BinRecord
	}{
		{"short code", model.BinRecord{Code: "1234", Company: "Acme", Country: "US"}},
		{"non-digit code", model.BinRecord{Code: "12a456", Company: "Acme", Country: "US"}},
		{"missing company", model.BinRecord{Code: "123456", Country: "US"}},
		{"missing country", model.BinRecord{Code: "123456", Company: "Acme"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.rec)
			assert.ErrorIs(t, err, directory.ErrValidation)
		})
	}
}

func TestCreateConflict(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, model.BinRecord{Code: "123456", Company: "Acme", Country: "US"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, model.BinRecord{Code: "123456", Company: "Other", Country: "CA"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	rec, err := svc.Lookup(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "Acme", rec.Company, "conflicting create must not overwrite")
}

func TestUpdatePartial(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, model.BinRecord{Code: "123456", Company: "Acme", Country: "US", Issuer: "First National"})
	require.NoError(t, err)

	rec, err := svc.Update(ctx, "123456", model.BinPatch{Company: strp("Acme Holdings")})
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", rec.Company)
	assert.Equal(t, "First National", rec.Issuer, "untouched field must survive")

	_, err = svc.Update(ctx, "999999", model.BinPatch{Company: strp("x")})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, model.BinRecord{Code: "123456", Company: "Acme", Country: "US"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "123456"))

	_, err = svc.Lookup(ctx, "123456")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "123456"), storage.ErrNotFound)
}

func TestSubmitNeverTouchesRegistry(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, model.Submission{Code: "123456", Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sub.ID)

	_, err = svc.Lookup(ctx, "123456")
	assert.ErrorIs(t, err, storage.ErrNotFound, "submission must not create a registry record")

	// A code unknown to the registry is fine; company/country are optional.
	sub2, err := svc.Submit(ctx, model.Submission{Code: "654321"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), sub2.ID)

	_, err = svc.Submit(ctx, model.Submission{Code: "12345"})
	assert.ErrorIs(t, err, directory.ErrValidation)
}

func TestApproveCreatesAndMerges(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, model.Submission{Code: "123456", Company: "Acme", Country: "US"})
	require.NoError(t, err)

	rec, err := svc.Approve(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", rec.Company)

	got, err := svc.Lookup(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// Approving a correction overwrites the existing record wholesale.
	sub2, err := svc.Submit(ctx, model.Submission{Code: "123456", Company: "Acme Holdings"})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, sub2.ID)
	require.NoError(t, err)

	got, err = svc.Lookup(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", got.Company)
	assert.Empty(t, got.Country, "merge replaces the full field set")
}

func TestApproveIsSingleShot(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, model.Submission{Code: "123456", Company: "Acme"})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, sub.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, sub.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	subs, err := svc.Submissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestRejectLeavesRegistryAlone(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, model.BinRecord{Code: "123456", Company: "Acme", Country: "US"})
	require.NoError(t, err)

	sub, err := svc.Submit(ctx, model.Submission{Code: "123456", Company: "Imposter"})
	require.NoError(t, err)
	require.NoError(t, svc.Reject(ctx, sub.ID))

	rec, err := svc.Lookup(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, "Acme", rec.Company)

	assert.ErrorIs(t, svc.Reject(ctx, sub.ID), storage.ErrNotFound)
}

func TestSubmissionsOrder(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, code := range []string{"111111", "222222", "333333"} {
		_, err := svc.Submit(ctx, model.Submission{Code: code})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Reject(ctx, 2))

	subs, err := svc.Submissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, int64(1), subs[0].ID)
	assert.Equal(t, int64(3), subs[1].ID)

	// IDs are never reused after removal.
	again, err := svc.Submit(ctx, model.Submission{Code: "444444"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), again.ID)
}
