package worker

import (
	"context"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/kafka"
	"github.com/jmehdipour/saga-coordinator/internal/metrics"
	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/service/txconsistent"
	"go.uber.org/zap"
)

// PendingSource lists the sub-transactions of a failed saga still waiting for compensation.
type PendingSource interface {
	PendingCompensations(ctx context.Context, globalTxID string) ([]model.TxEvent, error)
}

type Dispatch interface {
	Compensate(ctx context.Context, cmd model.CompensationCommand) error
}

// Compensator reacts to relayed abort and timeout events by sending compensation commands
// to the participants that completed sub-transactions of the saga.
// Participants must tolerate a command delivered more than once.
type Compensator struct {
	Consumer kafka.Fetcher
	Pending  PendingSource
	Dispatch Dispatch
	Log      *zap.Logger

	Workers      int           // goroutines processing messages; one partition maps to one worker
	Rounds       int           // passes over a saga before giving up
	RetryBackoff time.Duration // pause between passes
}

func NewCompensator(consumer kafka.Fetcher, pending PendingSource, dispatch Dispatch, log *zap.Logger) *Compensator {
	return &Compensator{
		Consumer:     consumer,
		Pending:      pending,
		Dispatch:     dispatch,
		Log:          log,
		Workers:      16,
		Rounds:       3,
		RetryBackoff: time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (w *Compensator) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 16
	}
	if w.Rounds <= 0 {
		w.Rounds = 3
	}
	if w.Log == nil {
		w.Log = zap.NewNop()
	}

	msgCh := make(chan kafka.Message, w.Workers*2)
	go fetchLoop(ctx, w.Consumer, msgCh, w.Log)

	// A partition always lands on the same worker, so its offsets are handled and
	// committed in order and a commit never covers an abort still in flight.
	lanes := make([]chan kafka.Message, w.Workers)
	done := make(chan struct{})
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 2)
		go func(in <-chan kafka.Message) {
			defer func() { done <- struct{}{} }()
			for m := range in {
				w.processOne(ctx, m)
			}
		}(lanes[i])
	}
	for m := range msgCh {
		lanes[laneFor(m.Partition, w.Workers)] <- m
	}
	for _, l := range lanes {
		close(l)
	}
	for range lanes {
		<-done
	}
	return nil
}

func laneFor(partition, n int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % n
}

func (w *Compensator) processOne(ctx context.Context, m kafka.Message) {
	if ctx.Err() != nil {
		// after shutdown nothing more is committed; an earlier offset of this partition
		// may have been left uncommitted
		return
	}
	env, err := kafka.DecodeEnvelope(m)
	if err != nil {
		w.Log.Warn("skipping undecodable relay message", zap.Int64("offset", m.Offset), zap.Error(err))
		w.commit(ctx, m)
		return
	}
	if !txconsistent.TriggersCompensation(env.Event.Type) {
		w.commit(ctx, m)
		return
	}

	w.compensateSaga(ctx, env.Event.GlobalTxID)
	if ctx.Err() != nil {
		// left uncommitted so the next consumer of the partition picks the saga up again
		return
	}
	w.commit(ctx, m)
}

// compensateSaga makes up to Rounds passes; each pass re-reads what is still pending,
// so sub-transactions compensated in an earlier pass are not sent again.
func (w *Compensator) compensateSaga(ctx context.Context, globalTxID string) {
	log := w.Log.With(zap.String("global_tx_id", globalTxID))

	for round := 0; round < w.Rounds; round++ {
		if round > 0 && !sleepCtx(ctx, w.RetryBackoff) {
			return
		}

		pending, err := w.Pending.PendingCompensations(ctx, globalTxID)
		if err != nil {
			log.Error("load pending compensations failed", zap.Int("round", round), zap.Error(err))
			continue
		}
		if len(pending) == 0 {
			if round == 0 {
				metrics.CompensationsTotal.WithLabelValues("skipped").Inc()
			}
			return
		}

		failed := 0
		for _, e := range pending {
			if err := w.Dispatch.Compensate(ctx, model.CommandFor(e)); err != nil {
				failed++
				metrics.CompensationsTotal.WithLabelValues("failed").Inc()
				log.Warn("compensation dispatch failed",
					zap.String("local_tx_id", e.LocalTxID),
					zap.String("service", e.ServiceName),
					zap.Error(err))
				continue
			}
			metrics.CompensationsTotal.WithLabelValues("sent").Inc()
		}
		if failed == 0 {
			return
		}
	}
	log.Error("saga left partially compensated", zap.Int("rounds", w.Rounds))
}

func (w *Compensator) commit(ctx context.Context, m kafka.Message) {
	if err := w.Consumer.Commit(context.WithoutCancel(ctx), m); err != nil {
		w.Log.Error("kafka commit failed", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
