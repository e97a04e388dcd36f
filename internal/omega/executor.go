package omega

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/service/txconsistent"
	"github.com/jmehdipour/saga-coordinator/internal/util"
)

var (
	ErrNoTxContext     = errors.New("no saga in context")
	ErrGlobalTxAborted = errors.New("global transaction aborted")
	ErrGlobalTxPaused  = errors.New("global transaction paused")
)

// UnsettledError carries a step's end or abort event that alpha kept answering PAUSED
// until the context ended. The forward action already ran; pass Event to Resubmit.
type UnsettledError struct {
	Event model.TxEvent
	Err   error
}

func (e *UnsettledError) Error() string {
	return fmt.Sprintf("%s of %s not recorded: %v", e.Event.Type, e.Event.LocalTxID, e.Err)
}

func (e *UnsettledError) Unwrap() error { return e.Err }

// Reporter is the part of Client the executor needs.
type Reporter interface {
	Report(ctx context.Context, e model.TxEvent) (txconsistent.Outcome, error)
}

// Executor runs registered compensable steps inside a saga and reports their lifecycle.
type Executor struct {
	reporter Reporter
	registry *Registry
	newID    func() string

	resumeMin time.Duration
	resumeMax time.Duration
}

func NewExecutor(reporter Reporter, registry *Registry) *Executor {
	return &Executor{
		reporter:  reporter,
		registry:  registry,
		newID:     util.New,
		resumeMin: 500 * time.Millisecond,
		resumeMax: 10 * time.Second,
	}
}

// StartSaga opens a new saga and returns a context carrying it.
func (x *Executor) StartSaga(ctx context.Context, category string) (context.Context, error) {
	gid := x.newID()
	tc := TxContext{GlobalTxID: gid, LocalTxID: gid, Category: category}
	if err := x.report(ctx, tc, model.SagaStartedEvent, "", nil, sql.NullString{}); err != nil {
		return ctx, err
	}
	return NewContext(ctx, tc), nil
}

func (x *Executor) EndSaga(ctx context.Context) error {
	tc, ok := FromContext(ctx)
	if !ok {
		return ErrNoTxContext
	}
	return x.report(ctx, TxContext{GlobalTxID: tc.GlobalTxID, LocalTxID: tc.GlobalTxID, Category: tc.Category},
		model.SagaEndedEvent, "", nil, sql.NullString{})
}

func (x *Executor) AbortSaga(ctx context.Context) error {
	tc, ok := FromContext(ctx)
	if !ok {
		return ErrNoTxContext
	}
	return x.report(ctx, TxContext{GlobalTxID: tc.GlobalTxID, LocalTxID: tc.GlobalTxID, Category: tc.Category},
		model.SagaAbortedEvent, "", nil, sql.NullString{})
}

// Run executes the forward action registered under name as a sub-transaction of the saga in ctx.
// A failing action is reported as TxAbortedEvent and its error returned.
// Once the action has run, its end or abort event is resubmitted while the saga is paused;
// if ctx ends first the error is an *UnsettledError.
func (x *Executor) Run(ctx context.Context, name string, payloads []byte) error {
	tc, ok := FromContext(ctx)
	if !ok {
		return ErrNoTxContext
	}
	child := tc.Child(x.newID())
	parent := sql.NullString{String: tc.LocalTxID, Valid: tc.LocalTxID != ""}

	if err := x.report(ctx, child, model.TxStartedEvent, name, payloads, parent); err != nil {
		return err
	}

	if err := x.registry.Forward(NewContext(ctx, child), name, payloads); err != nil {
		aborted := eventOf(child, model.TxAbortedEvent, name, payloads, parent)
		if rerr := x.Resubmit(ctx, aborted); rerr != nil && !errors.Is(rerr, ErrGlobalTxAborted) {
			return errors.Join(err, rerr)
		}
		return err
	}
	return x.Resubmit(ctx, eventOf(child, model.TxEndedEvent, name, payloads, parent))
}

// Resubmit reports e until alpha accepts or rejects it, backing off while the saga is paused.
func (x *Executor) Resubmit(ctx context.Context, e model.TxEvent) error {
	wait := x.resumeMin
	for {
		err := x.submit(ctx, e)
		if !errors.Is(err, ErrGlobalTxPaused) {
			return err
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return &UnsettledError{Event: e, Err: err}
		case <-t.C:
		}
		wait = min(wait*2, x.resumeMax)
	}
}

func eventOf(tc TxContext, typ model.EventType, method string, payloads []byte, parent sql.NullString) model.TxEvent {
	return model.TxEvent{
		GlobalTxID:         tc.GlobalTxID,
		LocalTxID:          tc.LocalTxID,
		ParentTxID:         parent,
		Type:               typ,
		CompensationMethod: method,
		Category:           tc.Category,
		Payloads:           payloads,
	}
}

func (x *Executor) report(ctx context.Context, tc TxContext, typ model.EventType, method string, payloads []byte, parent sql.NullString) error {
	return x.submit(ctx, eventOf(tc, typ, method, payloads, parent))
}

func (x *Executor) submit(ctx context.Context, e model.TxEvent) error {
	outcome, err := x.reporter.Report(ctx, e)
	if err != nil {
		return err
	}
	switch outcome {
	case txconsistent.OutcomeAborted:
		return fmt.Errorf("%w: %s", ErrGlobalTxAborted, e.GlobalTxID)
	case txconsistent.OutcomePaused:
		return fmt.Errorf("%w: %s", ErrGlobalTxPaused, e.GlobalTxID)
	}
	return nil
}
