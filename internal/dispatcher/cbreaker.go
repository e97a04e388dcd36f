package dispatcher

import (
	"sync"
	"time"
)

type state int

const (
	closed state = iota
	open
	halfOpen
)

func (s state) String() string {
	switch s {
	case open:
		return "open"
	case halfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// MicroBreaker trips after failThreshold consecutive failures. Once openFor has elapsed it
// admits a single probe; the probe's result closes or re-opens it.
type MicroBreaker struct {
	mu        sync.Mutex
	st        state
	fails     int
	threshold int
	openFor   time.Duration
	retryAt   time.Time
	probing   bool
	now       func() time.Time
}

func NewMicroBreaker(threshold int, openFor time.Duration) *MicroBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &MicroBreaker{threshold: threshold, openFor: openFor, now: time.Now}
}

// admit decides whether a call may pass; with reserve it also claims the probe slot.
func (b *MicroBreaker) admit(reserve bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st == closed {
		return true
	}
	if b.probing || (b.st == open && b.now().Before(b.retryAt)) {
		return false
	}
	if reserve {
		b.st = halfOpen
		b.probing = true
	}
	return true
}

// Ready reports whether a call would be admitted, without claiming the probe.
func (b *MicroBreaker) Ready() bool { return b.admit(false) }

// TryAcquire admits a call, claiming the probe slot when not closed.
func (b *MicroBreaker) TryAcquire() bool { return b.admit(true) }

func (b *MicroBreaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st, b.fails, b.probing = closed, 0, false
}

func (b *MicroBreaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fails++
	if b.st == halfOpen || b.fails >= b.threshold {
		b.st = open
		b.retryAt = b.now().Add(b.openFor)
		b.probing = false
	}
}

func (b *MicroBreaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st.String()
}
