package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jmehdipour/saga-coordinator/internal/config"
	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeParticipant struct {
	service, instance string
	ready             bool
	err               error

	mu    sync.Mutex
	calls []model.CompensationCommand
}

func (f *fakeParticipant) ServiceName() string { return f.service }
func (f *fakeParticipant) InstanceID() string  { return f.instance }
func (f *fakeParticipant) Ready() bool         { return f.ready }
func (f *fakeParticipant) Acquire() bool       { return f.ready }

func (f *fakeParticipant) Compensate(_ context.Context, cmd model.CompensationCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	return f.err
}

func (f *fakeParticipant) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestCompensatePrefersOriginatingInstance(t *testing.T) {
	a := &fakeParticipant{service: "order", instance: "a", ready: true}
	b := &fakeParticipant{service: "order", instance: "b", ready: true}
	d := NewDispatcher([]Participant{a, b}, 3)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Compensate(context.Background(), model.CompensationCommand{ServiceName: "order", InstanceID: "b", LocalTxID: "l"}))
	}
	assert.Equal(t, 0, a.count())
	assert.Equal(t, 3, b.count())
}

func TestCompensateRoundRobinWithoutInstance(t *testing.T) {
	a := &fakeParticipant{service: "order", instance: "a", ready: true}
	b := &fakeParticipant{service: "order", instance: "b", ready: true}
	d := NewDispatcher([]Participant{a, b}, 3)

	for i := 0; i < 4; i++ {
		require.NoError(t, d.Compensate(context.Background(), model.CompensationCommand{ServiceName: "order"}))
	}
	assert.Equal(t, 2, a.count())
	assert.Equal(t, 2, b.count())
}

func TestCompensateSkipsUnhealthy(t *testing.T) {
	a := &fakeParticipant{service: "order", instance: "a", ready: false}
	b := &fakeParticipant{service: "order", instance: "b", ready: true}
	d := NewDispatcher([]Participant{a, b}, 3)

	require.NoError(t, d.Compensate(context.Background(), model.CompensationCommand{ServiceName: "order", InstanceID: "a"}))
	assert.Equal(t, 0, a.count())
	assert.Equal(t, 1, b.count())
}

func TestCompensateRetriesThenFails(t *testing.T) {
	a := &fakeParticipant{service: "order", instance: "a", ready: true, err: errors.New("boom")}
	d := NewDispatcher([]Participant{a}, 3)

	err := d.Compensate(context.Background(), model.CompensationCommand{ServiceName: "order", LocalTxID: "l1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 3, a.count())
}

func TestCompensateErrors(t *testing.T) {
	d := NewDispatcher([]Participant{&fakeParticipant{service: "order", ready: false}}, 2)

	err := d.Compensate(context.Background(), model.CompensationCommand{ServiceName: "order"})
	assert.ErrorIs(t, err, ErrNoHealthy)

	err = d.Compensate(context.Background(), model.CompensationCommand{ServiceName: "payment"})
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestHTTPParticipantPostsCommand(t *testing.T) {
	var got model.CompensationCommand
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/omega/compensate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPParticipant(config.ParticipantConfig{ServiceName: "order", InstanceID: "a", BaseURL: srv.URL})
	cmd := model.CompensationCommand{GlobalTxID: "g", LocalTxID: "l", ServiceName: "order", CompensationMethod: "cancelOrder"}
	require.NoError(t, p.Compensate(context.Background(), cmd))
	assert.Equal(t, cmd, got)
}

func TestHTTPParticipantTripsBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPParticipant(config.ParticipantConfig{
		ServiceName: "order",
		BaseURL:     srv.URL,
		Breaker:     config.BreakerConfig{FailThreshold: 2, OpenForMs: 60000},
	})
	for i := 0; i < 2; i++ {
		assert.Error(t, p.Compensate(context.Background(), model.CompensationCommand{}))
	}
	assert.False(t, p.Ready())
}
