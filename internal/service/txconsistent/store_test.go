package txconsistent

import (
	"context"
	"sync"

	"github.com/jmehdipour/saga-coordinator/internal/model"
)

// memStore is an in-memory EventStore with failure injection.
type memStore struct {
	mu     sync.Mutex
	events []model.TxEvent
	nextID int64

	saveErr      func(e *model.TxEvent) error
	findErr      error
	pauseReadErr error
}

func newMemStore(seed ...model.TxEvent) *memStore {
	s := &memStore{}
	for _, e := range seed {
		e := e
		_ = s.Save(context.Background(), &e)
	}
	return s
}

func (s *memStore) Save(_ context.Context, e *model.TxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		if err := s.saveErr(e); err != nil {
			return err
		}
	}
	s.nextID++
	e.SurrogateID = s.nextID
	s.events = append(s.events, *e)
	return nil
}

func (s *memStore) FindTransactions(_ context.Context, globalTxID string, typ model.EventType) ([]model.TxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []model.TxEvent
	for _, e := range s.events {
		if e.GlobalTxID == globalTxID && e.Type == typ {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) CheckIsExistsTxCompensatedEvent(_ context.Context, typ model.EventType, localTxID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.LocalTxID == localTxID && e.Type == typ {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CheckIsRetriedEvent(_ context.Context, globalTxID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	starts := map[string]int{}
	for _, e := range s.events {
		if e.GlobalTxID == globalTxID && e.Type == model.TxStartedEvent {
			starts[e.LocalTxID]++
			if starts[e.LocalTxID] > 1 {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *memStore) SelectPausedAndContinueEvent(_ context.Context, globalTxID string) ([]model.TxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pauseReadErr != nil {
		return nil, s.pauseReadErr
	}
	var out []model.TxEvent
	for _, e := range s.events {
		if e.GlobalTxID == globalTxID && e.Type.IsPauseClass() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) SelectEndedGlobalTx(_ context.Context, localTxIDs []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	endedSagas := map[string]bool{}
	for _, e := range s.events {
		if e.Type == model.SagaEndedEvent {
			endedSagas[e.GlobalTxID] = true
		}
	}
	out := map[string]struct{}{}
	for _, id := range localTxIDs {
		for _, e := range s.events {
			if e.LocalTxID == id && endedSagas[e.GlobalTxID] {
				out[id] = struct{}{}
			}
		}
	}
	return out, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *memStore) types(globalTxID string) []model.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EventType
	for _, e := range s.events {
		if e.GlobalTxID == globalTxID {
			out = append(out, e.Type)
		}
	}
	return out
}

type recordingMetrics struct {
	mu        sync.Mutex
	starts    int
	ends      int
	children  int
	counted   []countCall
	panicking bool
}

type countCall struct {
	typ     model.EventType
	aborted bool
	retried bool
}

func (m *recordingMetrics) StartMarkTxDuration(model.TxEvent) {
	m.mu.Lock()
	m.starts++
	m.mu.Unlock()
	if m.panicking {
		panic("metrics backend exploded")
	}
}

func (m *recordingMetrics) EndMarkTxDuration(model.TxEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ends++
}

func (m *recordingMetrics) CountChildTxNumber(model.TxEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children++
}

func (m *recordingMetrics) CountTxNumber(e model.TxEvent, aborted, retried bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counted = append(m.counted, countCall{typ: e.Type, aborted: aborted, retried: retried})
}

type recordingRelay struct {
	mu   sync.Mutex
	sent []model.TxEvent
	err  error
}

func (r *recordingRelay) Send(_ context.Context, e model.TxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return r.err
}

type memKafkaMessages struct {
	saved []model.KafkaMessage
}

func (m *memKafkaMessages) Save(_ context.Context, msg *model.KafkaMessage) error {
	msg.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, *msg)
	return nil
}
