package txconsistent

import (
	"context"

	"github.com/jmehdipour/saga-coordinator/internal/model"
)

// EventStore is the durable event log the engine decides against. Implementations must
// make a successfully saved event visible to every later read.
type EventStore interface {
	Save(ctx context.Context, e *model.TxEvent) error
	FindTransactions(ctx context.Context, globalTxID string, typ model.EventType) ([]model.TxEvent, error)
	CheckIsExistsTxCompensatedEvent(ctx context.Context, typ model.EventType, localTxID string) (bool, error)
	CheckIsRetriedEvent(ctx context.Context, globalTxID string) (bool, error)
	SelectPausedAndContinueEvent(ctx context.Context, globalTxID string) ([]model.TxEvent, error)
	SelectEndedGlobalTx(ctx context.Context, localTxIDs []string) (map[string]struct{}, error)
}

type KafkaMessageStore interface {
	Save(ctx context.Context, m *model.KafkaMessage) error
}

// Metrics is fire-and-forget.
type Metrics interface {
	StartMarkTxDuration(e model.TxEvent)
	EndMarkTxDuration(e model.TxEvent)
	CountChildTxNumber(e model.TxEvent)
	CountTxNumber(e model.TxEvent, isAbortRejection, isRetried bool)
}

// Relay forwards accepted events to the message bus, best effort.
type Relay interface {
	Send(ctx context.Context, e model.TxEvent) error
}

type noopMetrics struct{}

func (noopMetrics) StartMarkTxDuration(model.TxEvent)       {}
func (noopMetrics) EndMarkTxDuration(model.TxEvent)         {}
func (noopMetrics) CountChildTxNumber(model.TxEvent)        {}
func (noopMetrics) CountTxNumber(model.TxEvent, bool, bool) {}

type noopRelay struct{}

func (noopRelay) Send(context.Context, model.TxEvent) error { return nil }
