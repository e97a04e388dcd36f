package txconsistent

import (
	"context"
	"fmt"

	"github.com/jmehdipour/saga-coordinator/internal/model"
)

// TriggersCompensation reports whether an accepted event of this type means the
// saga's completed sub-transactions must be compensated.
func TriggersCompensation(t model.EventType) bool {
	return t == model.TxAbortedEvent || t == model.SagaAbortedEvent || t == model.SagaTimeoutEvent
}

// PendingCompensations returns the ended sub-transactions of an aborted saga that declare a
// compensation method and have no TxCompensatedEvent yet, oldest first. It returns nothing
// for a saga that has neither aborted nor timed out.
func (s *Service) PendingCompensations(ctx context.Context, globalTxID string) ([]model.TxEvent, error) {
	failed, err := s.isSagaFailed(ctx, globalTxID)
	if err != nil {
		return nil, err
	}
	if !failed {
		return nil, nil
	}

	ended, err := s.store.FindTransactions(ctx, globalTxID, model.TxEndedEvent)
	if err != nil {
		return nil, fmt.Errorf("load ended sub-transactions: %w", err)
	}

	seen := make(map[string]struct{}, len(ended))
	pending := make([]model.TxEvent, 0, len(ended))
	for _, e := range ended {
		if e.IsSagaLevel() || e.CompensationMethod == "" {
			continue
		}
		if _, dup := seen[e.LocalTxID]; dup {
			continue
		}
		seen[e.LocalTxID] = struct{}{}

		done, err := s.store.CheckIsExistsTxCompensatedEvent(ctx, model.TxCompensatedEvent, e.LocalTxID)
		if err != nil {
			return nil, fmt.Errorf("check compensated %s: %w", e.LocalTxID, err)
		}
		if !done {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (s *Service) isSagaFailed(ctx context.Context, globalTxID string) (bool, error) {
	for _, t := range []model.EventType{model.TxAbortedEvent, model.SagaAbortedEvent, model.SagaTimeoutEvent} {
		found, err := s.store.FindTransactions(ctx, globalTxID, t)
		if err != nil {
			return false, fmt.Errorf("check saga failure: %w", err)
		}
		if len(found) > 0 {
			return true, nil
		}
	}
	return false, nil
}
