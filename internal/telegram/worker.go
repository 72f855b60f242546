package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardmeta/bindex/internal/model"
	"github.com/cardmeta/bindex/internal/service/directory"
	"github.com/cardmeta/bindex/internal/storage"
	"github.com/cardmeta/bindex/internal/telemetry"
)

// Worker long-polls the chat transport and answers lookup queries against
// the directory service. It runs as a background goroutine next to the HTTP
// server and shares the service's shutdown lifecycle.
type Worker struct {
	transport Transport
	dir       *directory.Service
	logger    *slog.Logger

	mu         sync.Mutex
	started    bool
	cancelLoop context.CancelFunc
	done       chan struct{}
	once       sync.Once
	offset     int64
	handled    otelmetric.Int64Counter
}

// NewWorker creates a Worker. It does not start polling.
func NewWorker(transport Transport, dir *directory.Service, logger *slog.Logger) *Worker {
	return &Worker{
		transport: transport,
		dir:       dir,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start registers the command menu and launches the poll loop. It returns
// immediately; polling failures are logged and retried, never fatal to the
// process. Calling Start more than once is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		w.logger.Warn("telegram: Start called more than once, ignoring")
		return
	}
	w.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancelLoop = cancel
	w.mu.Unlock()

	if counter, err := telemetry.Meter("bindex/telegram").Int64Counter("bindex.telegram.messages_handled"); err == nil {
		w.handled = counter
	}

	setupCtx, settle := context.WithTimeout(ctx, 10*time.Second)
	if err := w.transport.SetCommands(setupCtx, []Command{
		{Command: "start", Description: "What this bot does"},
		{Command: "lookup", Description: "Look up a six-digit BIN"},
	}); err != nil {
		w.logger.Warn("telegram: set commands", "error", err)
	}
	settle()

	go w.pollLoop(loopCtx)
	w.logger.Info("telegram worker started")
}

// Stop cancels the poll loop and blocks until it exits or ctx expires.
// Stop before Start, or a second Stop, returns immediately.
func (w *Worker) Stop(ctx context.Context) {
	w.mu.Lock()
	cancel := w.cancelLoop
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-w.done:
	case <-ctx.Done():
		w.logger.Warn("telegram: stop timed out")
	}
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer w.once.Do(func() { close(w.done) })

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := w.transport.GetUpdates(ctx, w.offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("telegram: get updates", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.ID > w.offset {
				w.offset = u.ID
			}
			if u.ChatID == 0 || u.Text == "" {
				continue
			}
			w.handle(ctx, u)
		}
	}
}

func (w *Worker) handle(ctx context.Context, u Update) {
	reply := w.replyFor(ctx, u.Text)
	if err := w.transport.SendMessage(ctx, u.ChatID, reply); err != nil {
		w.logger.Error("telegram: send message", "error", err, "chat_id", u.ChatID)
		return
	}
	if w.handled != nil {
		w.handled.Add(ctx, 1)
	}
}

// replyFor maps one incoming message to its reply text. Understood inputs:
// /start, /lookup <bin>, or a bare six-digit BIN; anything else gets the
// usage hint.
func (w *Worker) replyFor(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)

	switch {
	case text == "/start":
		return greeting
	case strings.HasPrefix(text, "/lookup"):
		text = strings.TrimSpace(strings.TrimPrefix(text, "/lookup"))
	case strings.HasPrefix(text, "/"):
		return usageReply
	}

	if model.ValidateCode(text) != nil {
		return usageReply
	}

	rec, err := w.dir.Lookup(ctx, text)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return notFoundReply
	case err != nil:
		w.logger.Error("telegram: lookup", "error", err, "code", text)
		return "Lookup failed, try again later."
	}
	return formatRecord(rec)
}
