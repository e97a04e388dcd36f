package worker

import (
	"context"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/kafka"
	"go.uber.org/zap"
)

// fetchLoop feeds out until ctx is cancelled, then closes it.
func fetchLoop(ctx context.Context, c kafka.Fetcher, out chan<- kafka.Message, log *zap.Logger) {
	defer close(out)
	for {
		m, err := c.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}
		select {
		case out <- m:
		case <-ctx.Done():
			return
		}
	}
}
