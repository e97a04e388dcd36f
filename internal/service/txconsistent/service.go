// Package txconsistent decides which reported transaction events are accepted.
//
// The event log is the only source of truth: abort and pause state are derived from it on
// every call, so the Service holds no mutable state and is safe for concurrent use.
package txconsistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"go.uber.org/zap"
)

// Outcome is the result of pause-aware ingestion.
type Outcome int

const (
	OutcomeAborted  Outcome = -1
	OutcomePaused   Outcome = 0
	OutcomeAccepted Outcome = 1
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAborted:
		return "ABORTED"
	case OutcomePaused:
		return "PAUSED"
	case OutcomeAccepted:
		return "ACCEPTED"
	default:
		return "UNKNOWN"
	}
}

var ErrInvalidEvent = errors.New("invalid transaction event")

type Service struct {
	store         EventStore
	kafkaMessages KafkaMessageStore
	metrics       Metrics
	relay         Relay
	log           *zap.Logger
	now           func() time.Time
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New wires the engine. metrics and relay may be nil.
func New(store EventStore, kafkaMessages KafkaMessageStore, metrics Metrics, relay Relay, opts ...Option) *Service {
	s := &Service{
		store:         store,
		kafkaMessages: kafkaMessages,
		relay:         relay,
		log:           zap.NewNop(),
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	s.metrics = guardedMetrics{m: metrics, log: s.log}
	if s.relay == nil {
		s.relay = noopRelay{}
	}
	return s
}

// Validate checks the fields every reported event must carry.
func Validate(e model.TxEvent) error {
	switch {
	case e.GlobalTxID == "":
		return fmt.Errorf("%w: empty globalTxId", ErrInvalidEvent)
	case e.LocalTxID == "":
		return fmt.Errorf("%w: empty localTxId", ErrInvalidEvent)
	case !e.Type.Valid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// abortSensitive lists the types rejected once the saga has a TxAbortedEvent.
func abortSensitive(t model.EventType) bool {
	return t == model.TxStartedEvent || t == model.SagaEndedEvent
}

// Handle persists the event unless the saga was already aborted and the event would
// start or end work on it. A failed read or save is returned so the participant retries.
func (s *Service) Handle(ctx context.Context, event model.TxEvent) (bool, error) {
	s.metrics.StartMarkTxDuration(event)
	defer s.metrics.EndMarkTxDuration(event)

	if abortSensitive(event.Type) {
		aborted, err := s.isGlobalTxAborted(ctx, event.GlobalTxID)
		if err != nil {
			return false, err
		}
		if aborted {
			s.log.Info("transaction event rejected, global transaction already aborted",
				zap.String("type", event.Type.String()),
				zap.String("global_tx_id", event.GlobalTxID),
				zap.String("local_tx_id", event.LocalTxID))
			return false, nil
		}
	}

	if err := s.store.Save(ctx, &event); err != nil {
		return false, fmt.Errorf("save event: %w", err)
	}
	return true, nil
}

// HandleSupportTxPause is Handle plus pause awareness, (type, localTxId) de-duplication
// and relay. A paused saga is not queued: the participant resubmits later.
// When err is non-nil the Outcome is OutcomePaused and must not be trusted.
func (s *Service) HandleSupportTxPause(ctx context.Context, event model.TxEvent) (Outcome, error) {
	s.metrics.StartMarkTxDuration(event)
	defer s.metrics.EndMarkTxDuration(event)
	s.metrics.CountChildTxNumber(event)

	if abortSensitive(event.Type) {
		aborted, err := s.isGlobalTxAborted(ctx, event.GlobalTxID)
		if err != nil {
			return OutcomePaused, err
		}
		if aborted {
			s.log.Info("transaction event rejected, global transaction already aborted",
				zap.String("type", event.Type.String()),
				zap.String("global_tx_id", event.GlobalTxID),
				zap.String("local_tx_id", event.LocalTxID))
			s.metrics.CountTxNumber(event, true, s.isRetried(ctx, event.GlobalTxID))
			return OutcomeAborted, nil
		}
	}

	if s.IsGlobalTxPaused(ctx, event.GlobalTxID) {
		return OutcomePaused, nil
	}

	// Timeout detection may report the same compensation more than once.
	exists, err := s.store.CheckIsExistsTxCompensatedEvent(ctx, event.Type, event.LocalTxID)
	if err != nil {
		return OutcomePaused, fmt.Errorf("check duplicate event: %w", err)
	}
	if exists {
		s.log.Debug("duplicate transaction event ignored",
			zap.String("type", event.Type.String()),
			zap.String("global_tx_id", event.GlobalTxID),
			zap.String("local_tx_id", event.LocalTxID))
		// a resend the store never sees again; counted here so it still shows as retried
		s.metrics.CountTxNumber(event, false, true)
		return OutcomeAccepted, nil
	}

	if err := s.store.Save(ctx, &event); err != nil {
		return OutcomePaused, fmt.Errorf("save event: %w", err)
	}
	s.metrics.CountTxNumber(event, false, s.isRetried(ctx, event.GlobalTxID))
	s.relayEvent(ctx, event)

	return OutcomeAccepted, nil
}

// IsGlobalTxPaused applies the parity rule over the saga's pause-class events and lifts an
// expired pause by recording a SagaAutoContinuedEvent. Read failures answer true.
func (s *Service) IsGlobalTxPaused(ctx context.Context, globalTxID string) bool {
	events, err := s.store.SelectPausedAndContinueEvent(ctx, globalTxID)
	if err != nil {
		s.log.Error("failed to load pause events, treating global transaction as paused",
			zap.String("global_tx_id", globalTxID), zap.Error(err))
		return true
	}
	if len(events)%2 == 0 {
		return false
	}

	origin := events[0]
	if !origin.Expired(s.now()) {
		return true
	}

	auto := model.TxEvent{
		ServiceName: origin.ServiceName,
		InstanceID:  origin.InstanceID,
		GlobalTxID:  origin.GlobalTxID,
		LocalTxID:   origin.LocalTxID,
		ParentTxID:  origin.ParentTxID,
		Type:        model.SagaAutoContinuedEvent,
		Category:    origin.Category,
		Payloads:    origin.Payloads,
	}
	// A failed write is retried on the next evaluation; transient failures may leave
	// more than one SagaAutoContinuedEvent for the same pause window.
	if err := s.store.Save(ctx, &auto); err != nil {
		s.log.Error("failed to save SagaAutoContinuedEvent",
			zap.String("global_tx_id", globalTxID), zap.Error(err))
		return true
	}

	s.log.Info("global transaction auto-continued after pause expiry",
		zap.String("global_tx_id", globalTxID),
		zap.Time("expiry_time", origin.ExpiryTime.Time))
	return false
}

// FetchLocalTxIdOfEndedGlobalTx lets polling participants prune local saga state.
func (s *Service) FetchLocalTxIdOfEndedGlobalTx(ctx context.Context, localTxIDs []string) (map[string]struct{}, error) {
	return s.store.SelectEndedGlobalTx(ctx, localTxIDs)
}

// SaveKafkaMessage records a manual-compensation notification outside the event log.
func (s *Service) SaveKafkaMessage(ctx context.Context, m *model.KafkaMessage) error {
	if s.kafkaMessages == nil {
		return errors.New("kafka message store not configured")
	}
	return s.kafkaMessages.Save(ctx, m)
}

func (s *Service) isGlobalTxAborted(ctx context.Context, globalTxID string) (bool, error) {
	aborted, err := s.store.FindTransactions(ctx, globalTxID, model.TxAbortedEvent)
	if err != nil {
		return false, fmt.Errorf("check global tx aborted: %w", err)
	}
	return len(aborted) > 0, nil
}

// isRetried only feeds metrics, so a read failure counts as a first attempt.
func (s *Service) isRetried(ctx context.Context, globalTxID string) bool {
	retried, err := s.store.CheckIsRetriedEvent(ctx, globalTxID)
	if err != nil {
		s.log.Warn("retry lookup failed", zap.String("global_tx_id", globalTxID), zap.Error(err))
		return false
	}
	return retried
}

func (s *Service) relayEvent(ctx context.Context, event model.TxEvent) {
	if err := s.relay.Send(ctx, event); err != nil {
		s.log.Error("failed to relay transaction event",
			zap.String("type", event.Type.String()),
			zap.String("global_tx_id", event.GlobalTxID),
			zap.String("local_tx_id", event.LocalTxID),
			zap.Error(err))
	}
}
