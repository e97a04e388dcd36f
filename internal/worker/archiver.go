package worker

import (
	"context"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/kafka"
	"github.com/jmehdipour/saga-coordinator/internal/metrics"
	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/repository"
	"go.uber.org/zap"
)

// Archiver copies relayed events into the ClickHouse archive.
// Offsets are committed only after the batch holding them is written, so a crash replays
// at most one batch; the archive table collapses replays on envelope id.
type Archiver struct {
	Consumer kafka.Fetcher
	Archive  repository.CHEventsRepository
	Log      *zap.Logger

	BatchSize int           // max rows per insert
	BatchWait time.Duration // max time a row waits before flush
}

func NewArchiver(consumer kafka.Fetcher, archive repository.CHEventsRepository, log *zap.Logger) *Archiver {
	return &Archiver{
		Consumer:  consumer,
		Archive:   archive,
		Log:       log,
		BatchSize: 500,
		BatchWait: 500 * time.Millisecond,
	}
}

// Run blocks until ctx is cancelled.
func (w *Archiver) Run(ctx context.Context) error {
	if w.BatchSize <= 0 {
		w.BatchSize = 500
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 500 * time.Millisecond
	}
	if w.Log == nil {
		w.Log = zap.NewNop()
	}

	msgCh := make(chan kafka.Message, w.BatchSize)
	go fetchLoop(ctx, w.Consumer, msgCh, w.Log)

	b := &archiveBatch{}
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	for {
		// a full batch that failed to flush stops intake until it is written
		in := msgCh
		if len(b.rows) >= w.BatchSize {
			in = nil
		}

		select {
		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx), b)
			return nil

		case m, ok := <-in:
			if !ok {
				w.flush(context.WithoutCancel(ctx), b)
				return nil
			}
			w.add(b, m)
			if len(b.rows) >= w.BatchSize {
				w.flush(ctx, b)
			}

		case <-tick.C:
			w.flush(ctx, b)
		}
	}
}

type archiveBatch struct {
	rows []model.ArchivedEvent
	msgs []kafka.Message
}

func (b *archiveBatch) reset() {
	b.rows = b.rows[:0]
	b.msgs = b.msgs[:0]
}

func (w *Archiver) add(b *archiveBatch, m kafka.Message) {
	b.msgs = append(b.msgs, m)
	env, err := kafka.DecodeEnvelope(m)
	if err != nil {
		// poison: committed with the batch, never archived
		w.Log.Warn("skipping undecodable relay message",
			zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	b.rows = append(b.rows, env.Archive())
}

func (w *Archiver) flush(ctx context.Context, b *archiveBatch) {
	if len(b.msgs) == 0 {
		return
	}
	if len(b.rows) > 0 {
		if err := w.Archive.InsertBatch(ctx, b.rows); err != nil {
			w.Log.Error("archive insert failed, batch kept for retry", zap.Int("rows", len(b.rows)), zap.Error(err))
			return
		}
		metrics.ArchivedEventsTotal.Add(float64(len(b.rows)))
	}
	if err := w.Consumer.Commit(ctx, b.msgs...); err != nil {
		w.Log.Error("kafka commit failed", zap.Error(err))
	}
	w.Log.Debug("archive batch flushed", zap.Int("rows", len(b.rows)), zap.Int("messages", len(b.msgs)))
	b.reset()
}
