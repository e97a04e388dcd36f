package metrics

import (
	"testing"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterOnFreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { MustRegister(reg) })
}

func TestDurationStartEndPairs(t *testing.T) {
	m := NewTxMetrics()
	clock := time.Unix(1000, 0)
	m.now = func() time.Time { return clock }

	ev := model.TxEvent{GlobalTxID: "g-dur", LocalTxID: "l-dur", Type: model.TxEndedEvent}
	before := testutil.CollectAndCount(TxDuration)

	m.StartMarkTxDuration(ev)
	clock = clock.Add(25 * time.Millisecond)
	m.EndMarkTxDuration(ev)
	// second End has no matching Start
	m.EndMarkTxDuration(ev)

	assert.Zero(t, m.pending(ev))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(TxDuration), before)
}

func TestDurationOverlappingResendsKeepBothStarts(t *testing.T) {
	m := NewTxMetrics()
	clock := time.Unix(2000, 0)
	m.now = func() time.Time { return clock }

	ev := model.TxEvent{GlobalTxID: "g-dup", LocalTxID: "l-dup", Type: model.TxStartedEvent}
	m.StartMarkTxDuration(ev)
	clock = clock.Add(time.Millisecond)
	m.StartMarkTxDuration(ev)
	assert.Equal(t, 2, m.pending(ev))

	m.EndMarkTxDuration(ev)
	assert.Equal(t, 1, m.pending(ev), "the second call still has its start")
	m.EndMarkTxDuration(ev)
	assert.Zero(t, m.pending(ev))
	assert.Empty(t, m.started)
}

func TestCountTxNumberLabels(t *testing.T) {
	m := NewTxMetrics()
	ev := model.TxEvent{GlobalTxID: "g", LocalTxID: "l", Type: model.TxStartedEvent}

	c := TxTotal.WithLabelValues("TxStartedEvent", "true", "false")
	before := testutil.ToFloat64(c)
	m.CountTxNumber(ev, true, false)
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestCountChildTxSkipsSagaLevelEvents(t *testing.T) {
	m := NewTxMetrics()
	c := ChildTxTotal.WithLabelValues("billing")
	before := testutil.ToFloat64(c)

	m.CountChildTxNumber(model.TxEvent{ServiceName: "billing", GlobalTxID: "g", LocalTxID: "g"})
	m.CountChildTxNumber(model.TxEvent{ServiceName: "billing", GlobalTxID: "g", LocalTxID: "l"})

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
