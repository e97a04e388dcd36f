package omega

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateRegistration = errors.New("compensable already registered")
	ErrUnknownCompensable    = errors.New("unknown compensable")
)

// Action runs one side of a compensable step. payloads are the step's arguments as
// recorded in the event log.
type Action func(ctx context.Context, payloads []byte) error

type Compensable struct {
	Forward    Action
	Compensate Action
}

// Registry maps a compensation method name to its actions. Fill it at startup.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Compensable
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Compensable)}
}

func (r *Registry) Register(name string, c Compensable) error {
	if name == "" || c.Forward == nil || c.Compensate == nil {
		return fmt.Errorf("register %q: name, forward and compensate are required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, name)
	}
	r.entries[name] = c
	return nil
}

// MustRegister panics on error; for wiring in main.
func (r *Registry) MustRegister(name string, c Compensable) {
	if err := r.Register(name, c); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(name string) (Compensable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[name]
	if !ok {
		return Compensable{}, fmt.Errorf("%w: %s", ErrUnknownCompensable, name)
	}
	return c, nil
}

func (r *Registry) Forward(ctx context.Context, name string, payloads []byte) error {
	c, err := r.lookup(name)
	if err != nil {
		return err
	}
	return c.Forward(ctx, payloads)
}

func (r *Registry) Compensate(ctx context.Context, name string, payloads []byte) error {
	c, err := r.lookup(name)
	if err != nil {
		return err
	}
	return c.Compensate(ctx, payloads)
}
