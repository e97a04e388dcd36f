package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/service/txconsistent"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// TxEngine is the ingestion surface of txconsistent.Service.
type TxEngine interface {
	Handle(ctx context.Context, event model.TxEvent) (bool, error)
	HandleSupportTxPause(ctx context.Context, event model.TxEvent) (txconsistent.Outcome, error)
	IsGlobalTxPaused(ctx context.Context, globalTxID string) bool
	FetchLocalTxIdOfEndedGlobalTx(ctx context.Context, localTxIDs []string) (map[string]struct{}, error)
	SaveKafkaMessage(ctx context.Context, m *model.KafkaMessage) error
}

func bindEvent(c echo.Context) (model.TxEvent, error) {
	var ev model.TxEvent
	if err := c.Bind(&ev); err != nil {
		return model.TxEvent{}, err
	}
	ev.GlobalTxID = strings.TrimSpace(ev.GlobalTxID)
	ev.LocalTxID = strings.TrimSpace(ev.LocalTxID)
	if t, ok := model.ParseEventType(string(ev.Type)); ok {
		ev.Type = t
	}
	if err := txconsistent.Validate(ev); err != nil {
		return model.TxEvent{}, err
	}
	return ev, nil
}

func badEvent(c echo.Context, err error) error {
	msg := "bad request"
	if errors.Is(err, txconsistent.ErrInvalidEvent) {
		msg = err.Error()
	}
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func handleEventHandler(engine TxEngine) echo.HandlerFunc {
	return func(c echo.Context) error {
		ev, err := bindEvent(c)
		if err != nil {
			return badEvent(c, err)
		}

		accepted, err := engine.Handle(c.Request().Context(), ev)
		if err != nil {
			log.Errorf("handle event %s/%s failed: %v", ev.GlobalTxID, ev.LocalTxID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "store error"})
		}
		if !accepted {
			return c.JSON(http.StatusConflict, map[string]any{"accepted": false})
		}
		return c.JSON(http.StatusOK, map[string]any{"accepted": true})
	}
}

func outcomeStatus(o txconsistent.Outcome) int {
	switch o {
	case txconsistent.OutcomeAccepted:
		return http.StatusOK
	case txconsistent.OutcomeAborted:
		return http.StatusConflict
	default:
		return http.StatusLocked
	}
}

func handlePausableEventHandler(engine TxEngine) echo.HandlerFunc {
	return func(c echo.Context) error {
		ev, err := bindEvent(c)
		if err != nil {
			return badEvent(c, err)
		}

		outcome, err := engine.HandleSupportTxPause(c.Request().Context(), ev)
		if err != nil {
			log.Errorf("handle pausable event %s/%s failed: %v", ev.GlobalTxID, ev.LocalTxID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "store error"})
		}
		return c.JSON(outcomeStatus(outcome), map[string]any{
			"result": outcome.String(),
			"code":   int(outcome),
		})
	}
}
