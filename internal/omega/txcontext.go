// Package omega is the participant side of a saga: it carries the transaction context
// across service calls, reports sub-transaction events to alpha and runs compensations
// alpha asks for.
package omega

import (
	"context"
	"net/http"
	"strings"
)

const (
	HeaderGlobalTxID = "X-Global-Tx-Id"
	HeaderLocalTxID  = "X-Local-Tx-Id"
	HeaderCategory   = "X-Tx-Category"
	HeaderInstanceID = "X-Instance-Id"
)

// TxContext identifies the saga and the sub-transaction a call belongs to.
type TxContext struct {
	GlobalTxID string
	LocalTxID  string
	Category   string
}

func (tc TxContext) Valid() bool { return tc.GlobalTxID != "" }

// Child returns the context of a sub-transaction started under tc.
func (tc TxContext) Child(localTxID string) TxContext {
	return TxContext{GlobalTxID: tc.GlobalTxID, LocalTxID: localTxID, Category: tc.Category}
}

type ctxKey struct{}

func NewContext(ctx context.Context, tc TxContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

func FromContext(ctx context.Context) (TxContext, bool) {
	tc, ok := ctx.Value(ctxKey{}).(TxContext)
	return tc, ok && tc.Valid()
}

func Inject(h http.Header, tc TxContext) {
	h.Set(HeaderGlobalTxID, tc.GlobalTxID)
	if tc.LocalTxID != "" {
		h.Set(HeaderLocalTxID, tc.LocalTxID)
	}
	if tc.Category != "" {
		h.Set(HeaderCategory, tc.Category)
	}
}

// Extract reads a TxContext from request headers; ok is false without a global id.
func Extract(h http.Header) (TxContext, bool) {
	tc := TxContext{
		GlobalTxID: strings.TrimSpace(h.Get(HeaderGlobalTxID)),
		LocalTxID:  strings.TrimSpace(h.Get(HeaderLocalTxID)),
		Category:   strings.TrimSpace(h.Get(HeaderCategory)),
	}
	return tc, tc.Valid()
}
