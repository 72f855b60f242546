package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cardmeta/bindex/internal/model"
	"github.com/cardmeta/bindex/internal/storage"
)

// startPostgres spins up a disposable Postgres container and returns a
// connected store. Skipped in -short runs and wherever Docker is unavailable.
func startPostgres(t *testing.T) storage.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:17-alpine",
		tcpostgres.WithDatabase("bindex"),
		tcpostgres.WithUsername("bindex"),
		tcpostgres.WithPassword("bindex"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("cannot start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := storage.NewPostgres(ctx, dsn, testLogger())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestPostgresBinLifecycle(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	want := sampleRecord("511111")
	require.NoError(t, store.CreateBin(ctx, want))

	got, err := store.GetBin(ctx, "511111")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.ErrorIs(t, store.CreateBin(ctx, want), storage.ErrConflict)

	country := "CA"
	got, err = store.UpdateBin(ctx, "511111", model.BinPatch{Country: &country})
	require.NoError(t, err)
	assert.Equal(t, "CA", got.Country)
	assert.Equal(t, "Acme", got.Company)

	require.NoError(t, store.DeleteBin(ctx, "511111"))
	require.ErrorIs(t, store.DeleteBin(ctx, "511111"), storage.ErrNotFound)
}

func TestPostgresSubmissionQueue(t *testing.T) {
	store := startPostgres(t)
	ctx := context.Background()

	id1, err := store.AppendSubmission(ctx, model.Submission{Code: "611111", Company: "A"})
	require.NoError(t, err)
	id2, err := store.AppendSubmission(ctx, model.Submission{Code: "622222", Company: "B"})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	subs, err := store.ListSubmissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "611111", subs[0].Code)

	require.NoError(t, store.RemoveSubmission(ctx, id1))
	_, err = store.GetSubmission(ctx, id1)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Identity column draws from a sequence: removed ids never come back.
	id3, err := store.AppendSubmission(ctx, model.Submission{Code: "633333"})
	require.NoError(t, err)
	assert.Greater(t, id3, id2)
}
