package omega

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/service/txconsistent"
	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveCompensation(t *testing.T, reg *Registry, rep Reporter, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.POST("/omega/compensate", CompensationHandler(reg, rep))
	req := httptest.NewRequest(http.MethodPost, "/omega/compensate", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const cmdBody = `{"globalTxId":"g","localTxId":"l","parentTxId":"p","serviceName":"order","compensationMethod":"reserve"}`

func TestCompensationHandlerReportsCompensated(t *testing.T) {
	reg := NewRegistry()
	var seen TxContext
	reg.MustRegister("reserve", Compensable{
		Forward: noop,
		Compensate: func(ctx context.Context, _ []byte) error {
			seen, _ = FromContext(ctx)
			return nil
		},
	})
	rep := &fakeReporter{}

	rec := serveCompensation(t, reg, rep, cmdBody)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "l", seen.LocalTxID)

	require.Len(t, rep.events, 1)
	ev := rep.events[0]
	assert.Equal(t, model.TxCompensatedEvent, ev.Type)
	assert.Equal(t, "p", ev.ParentTxID.String)
	assert.Equal(t, "reserve", ev.CompensationMethod)
}

func TestCompensationHandlerFailures(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("reserve", Compensable{
		Forward:    noop,
		Compensate: func(context.Context, []byte) error { return errors.New("db down") },
	})
	rep := &fakeReporter{}

	assert.Equal(t, http.StatusInternalServerError, serveCompensation(t, reg, rep, cmdBody).Code)
	assert.Empty(t, rep.events)

	assert.Equal(t, http.StatusBadRequest, serveCompensation(t, reg, rep, `{"globalTxId":"g"}`).Code)
}

func TestCompensationHandlerPausedIsNotSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("reserve", Compensable{Forward: noop, Compensate: noop})
	rep := &fakeReporter{outcomes: map[model.EventType]txconsistent.Outcome{model.TxCompensatedEvent: txconsistent.OutcomePaused}}

	assert.Equal(t, http.StatusLocked, serveCompensation(t, reg, rep, cmdBody).Code)
}
