package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"masraf/internal/amqp"
	"masraf/internal/ledger"
)

// MirrorWorker copies every row announced on the queue into a secondary
// ledger, typically the shared spreadsheet.
type MirrorWorker struct {
	mirror ledger.Ledger

	mirrored atomic.Int64
	failed   atomic.Int64
}

func NewMirrorWorker(mirror ledger.Ledger) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// Prepare makes sure the mirror ledger exists before consuming starts.
func (w *MirrorWorker) Prepare(ctx context.Context) error {
	if err := w.mirror.OpenOrCreate(ctx); err != nil {
		return fmt.Errorf("open mirror ledger: %w", err)
	}
	info := w.mirror.Info()
	slog.InfoContext(ctx, "Mirror ledger ready", "backend", info.Backend, "ledger", info.Location)
	return nil
}

// HandleRowAppended appends the announced record to the mirror. An error
// makes the consumer requeue the message.
func (w *MirrorWorker) HandleRowAppended(ctx context.Context, msg *amqp.RowAppendedMessage) error {
	slog.InfoContext(ctx, "Processing row appended message",
		"source_backend", msg.Backend,
		"source_row", msg.Row)

	row, err := w.mirror.Append(ctx, msg.Record())
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("mirror row %d: %w", msg.Row, err)
	}
	w.mirrored.Add(1)

	slog.InfoContext(ctx, "Row mirrored",
		"source_backend", msg.Backend,
		"source_row", msg.Row,
		"mirror_row", row)
	return nil
}

// Stats returns how many rows were mirrored and how many attempts failed.
func (w *MirrorWorker) Stats() (mirrored, failed int64) {
	return w.mirrored.Load(), w.failed.Load()
}
