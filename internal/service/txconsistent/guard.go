package txconsistent

import (
	"github.com/jmehdipour/saga-coordinator/internal/model"
	"go.uber.org/zap"
)

// guardedMetrics keeps a misbehaving metrics backend from affecting decisions.
type guardedMetrics struct {
	m   Metrics
	log *zap.Logger
}

func (g guardedMetrics) absorb(op string) {
	if r := recover(); r != nil {
		g.log.Warn("metrics hook panicked", zap.String("op", op), zap.Any("panic", r))
	}
}

func (g guardedMetrics) StartMarkTxDuration(e model.TxEvent) {
	defer g.absorb("start_duration")
	g.m.StartMarkTxDuration(e)
}

func (g guardedMetrics) EndMarkTxDuration(e model.TxEvent) {
	defer g.absorb("end_duration")
	g.m.EndMarkTxDuration(e)
}

func (g guardedMetrics) CountChildTxNumber(e model.TxEvent) {
	defer g.absorb("count_child")
	g.m.CountChildTxNumber(e)
}

func (g guardedMetrics) CountTxNumber(e model.TxEvent, isAbortRejection, isRetried bool) {
	defer g.absorb("count_tx")
	g.m.CountTxNumber(e, isAbortRejection, isRetried)
}
