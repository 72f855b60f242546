package telegram

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardmeta/bindex/internal/model"
	"github.com/cardmeta/bindex/internal/service/directory"
	"github.com/cardmeta/bindex/internal/storage"
)

// fakeTransport feeds scripted updates to the worker and records replies.
type fakeTransport struct {
	mu       sync.Mutex
	pending  []Update
	sent     []string
	commands []Command
}

func (f *fakeTransport) SetCommands(_ context.Context, cmds []Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = cmds
	return nil
}

func (f *fakeTransport) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	f.mu.Lock()
	var batch []Update
	for _, u := range f.pending {
		if u.ID > offset {
			batch = append(batch, u)
		}
	}
	f.mu.Unlock()
	if len(batch) > 0 {
		return batch, nil
	}
	// Simulate a long poll so the loop does not spin.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func (f *fakeTransport) SendMessage(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestWorker(t *testing.T) (*Worker, *fakeTransport, storage.Store) {
	t.Helper()
	store := storage.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := directory.New(store, logger)
	tr := &fakeTransport{}
	return NewWorker(tr, dir, logger), tr, store
}

func TestReplyFor(t *testing.T) {
	w, _, store := newTestWorker(t)
	ctx := context.Background()

	mb := int64(500)
	require.NoError(t, store.CreateBin(ctx, model.BinRecord{
		Code:       "411111",
		Company:    "Acme Bank",
		Country:    "US",
		MaxBalance: &mb,
	}))

	t.Run("start", func(t *testing.T) {
		assert.Equal(t, greeting, w.replyFor(ctx, "/start"))
	})

	t.Run("bare code", func(t *testing.T) {
		reply := w.replyFor(ctx, "411111")
		assert.Contains(t, reply, "BIN 411111")
		assert.Contains(t, reply, "Company: Acme Bank")
		assert.Contains(t, reply, "Max balance: 500")
		assert.NotContains(t, reply, "Issuer", "blank attributes are omitted")
	})

	t.Run("lookup command", func(t *testing.T) {
		assert.Contains(t, w.replyFor(ctx, "/lookup 411111"), "Company: Acme Bank")
	})

	t.Run("unknown code", func(t *testing.T) {
		assert.Equal(t, notFoundReply, w.replyFor(ctx, "999999"))
	})

	t.Run("garbage", func(t *testing.T) {
		assert.Equal(t, usageReply, w.replyFor(ctx, "hello there"))
		assert.Equal(t, usageReply, w.replyFor(ctx, "/frobnicate"))
		assert.Equal(t, usageReply, w.replyFor(ctx, "41111"))
	})
}

func TestWorkerLifecycle(t *testing.T) {
	w, tr, store := newTestWorker(t)
	ctx := context.Background()

	require.NoError(t, store.CreateBin(ctx, model.BinRecord{Code: "411111", Company: "Acme", Country: "US"}))
	tr.mu.Lock()
	tr.pending = []Update{
		{ID: 1, ChatID: 7, Text: "/start"},
		{ID: 2, ChatID: 7, Text: "411111"},
	}
	tr.mu.Unlock()

	w.Start(ctx)
	w.Start(ctx) // second start is a no-op

	assert.Eventually(t, func() bool {
		return len(tr.sentMessages()) == 2
	}, 2*time.Second, 10*time.Millisecond, "each update answered exactly once")

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	w.Stop(stopCtx)

	select {
	case <-w.done:
	default:
		t.Fatal("poll loop still running after Stop")
	}

	sent := tr.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, greeting, sent[0])
	assert.Contains(t, sent[1], "Company: Acme")

	tr.mu.Lock()
	assert.Len(t, tr.commands, 2, "command menu registered on start")
	tr.mu.Unlock()
}

func TestConcurrentStartStop(t *testing.T) {
	w, _, _ := newTestWorker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w.Start(ctx)
		}()
		go func() {
			defer wg.Done()
			w.Stop(ctx)
		}()
	}
	wg.Wait()

	w.Stop(ctx)
	select {
	case <-w.done:
	case <-ctx.Done():
		t.Fatal("poll loop still running after Stop")
	}
}

func TestStopBeforeStart(t *testing.T) {
	w, _, _ := newTestWorker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Stop(ctx) // must return immediately, not hang on done
	w.Stop(ctx)
}
