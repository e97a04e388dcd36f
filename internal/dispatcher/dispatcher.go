package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jmehdipour/saga-coordinator/internal/model"
)

var (
	ErrUnknownService = errors.New("no participant registered for service")
	ErrNoHealthy      = errors.New("no healthy participants")
	ErrNoAcquire      = errors.New("participant not acquired")
)

type pool struct {
	members []Participant
	rr      atomic.Uint64
}

// Dispatcher routes compensation commands to participant instances of the owning service.
// The instance that ran the sub-transaction is tried first while it is healthy; after that
// healthy instances are taken round-robin.
type Dispatcher struct {
	pools       map[string]*pool
	maxAttempts int
}

func NewDispatcher(parts []Participant, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	pools := make(map[string]*pool)
	for _, p := range parts {
		pl, ok := pools[p.ServiceName()]
		if !ok {
			pl = &pool{}
			pools[p.ServiceName()] = pl
		}
		pl.members = append(pl.members, p)
	}
	return &Dispatcher{pools: pools, maxAttempts: maxAttempts}
}

func (d *Dispatcher) selectParticipant(cmd model.CompensationCommand, attempt int) (Participant, error) {
	pl, ok := d.pools[cmd.ServiceName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, cmd.ServiceName)
	}

	healthy := make([]Participant, 0, len(pl.members))
	for _, p := range pl.members {
		if !p.Ready() {
			continue
		}
		if attempt == 0 && cmd.InstanceID != "" && p.InstanceID() == cmd.InstanceID {
			return p, nil
		}
		healthy = append(healthy, p)
	}
	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := pl.rr.Add(1)
	return healthy[int((x-1)%uint64(len(healthy)))], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, cmd model.CompensationCommand, attempt int) error {
	p, err := d.selectParticipant(cmd, attempt)
	if err != nil {
		return err
	}
	if !p.Acquire() {
		return ErrNoAcquire
	}
	return p.Compensate(ctx, cmd)
}

// Compensate delivers cmd to one participant, retrying up to maxAttempts times.
func (d *Dispatcher) Compensate(ctx context.Context, cmd model.CompensationCommand) error {
	var last error
	for i := 0; i < d.maxAttempts; i++ {
		err := d.tryOnce(ctx, cmd, i)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrUnknownService) {
			return err
		}
		last = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("compensate %s after %d attempts: %w", cmd.LocalTxID, d.maxAttempts, last)
}
