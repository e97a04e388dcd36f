package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/model"
)

type durationKey struct {
	globalTxID string
	localTxID  string
	typ        model.EventType
}

// TxMetrics records engine observations into the package collectors.
// Starts are queued per (globalTxId, localTxId, type) so concurrent resends of one event
// each observe a duration; an End takes the oldest pending Start and is ignored without one.
type TxMetrics struct {
	mu      sync.Mutex
	started map[durationKey][]time.Time
	now     func() time.Time
}

func NewTxMetrics() *TxMetrics {
	return &TxMetrics{started: make(map[durationKey][]time.Time), now: time.Now}
}

func keyOf(e model.TxEvent) durationKey {
	return durationKey{globalTxID: e.GlobalTxID, localTxID: e.LocalTxID, typ: e.Type}
}

func (m *TxMetrics) StartMarkTxDuration(e model.TxEvent) {
	k := keyOf(e)
	m.mu.Lock()
	m.started[k] = append(m.started[k], m.now())
	m.mu.Unlock()
}

func (m *TxMetrics) EndMarkTxDuration(e model.TxEvent) {
	k := keyOf(e)
	m.mu.Lock()
	starts := m.started[k]
	if len(starts) == 0 {
		m.mu.Unlock()
		return
	}
	start := starts[0]
	if len(starts) == 1 {
		delete(m.started, k)
	} else {
		m.started[k] = starts[1:]
	}
	m.mu.Unlock()

	TxDuration.WithLabelValues(e.Type.String()).Observe(m.now().Sub(start).Seconds())
}

func (m *TxMetrics) pending(e model.TxEvent) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.started[keyOf(e)])
}

func (m *TxMetrics) CountChildTxNumber(e model.TxEvent) {
	if e.IsSagaLevel() {
		return
	}
	ChildTxTotal.WithLabelValues(e.ServiceName).Inc()
}

func (m *TxMetrics) CountTxNumber(e model.TxEvent, isAbortRejection, isRetried bool) {
	TxTotal.WithLabelValues(e.Type.String(), strconv.FormatBool(isAbortRejection), strconv.FormatBool(isRetried)).Inc()
}
