package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/kafka"
	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/stretchr/testify/require"
)

// fakeFetcher hands out queued messages, then blocks until ctx is done.
type fakeFetcher struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	commitErr error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeFetcher) Commit(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeFetcher) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

func relayed(t *testing.T, offset int64, e model.TxEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(model.Envelope{ID: e.LocalTxID + "-env", RelayedAt: time.Unix(0, 0).UTC(), Event: e})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(e.GlobalTxID), Value: b}
}

func runFor(t *testing.T, run func(context.Context) error, until func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	require.Eventually(t, until, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

var errBoom = errors.New("boom")
