package omega

import (
	"database/sql"
	"net/http"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/service/txconsistent"
	echo "github.com/labstack/echo/v4"
)

// CompensationHandler serves the commands alpha's compensator dispatches: it runs the
// registered compensation and reports TxCompensatedEvent back.
func CompensationHandler(registry *Registry, reporter Reporter) echo.HandlerFunc {
	return func(c echo.Context) error {
		var cmd model.CompensationCommand
		if err := c.Bind(&cmd); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if cmd.GlobalTxID == "" || cmd.LocalTxID == "" || cmd.CompensationMethod == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "globalTxId, localTxId and compensationMethod are required"})
		}

		tc := TxContext{GlobalTxID: cmd.GlobalTxID, LocalTxID: cmd.LocalTxID, Category: cmd.Category}
		ctx := NewContext(c.Request().Context(), tc)

		if err := registry.Compensate(ctx, cmd.CompensationMethod, cmd.Payloads); err != nil {
			c.Logger().Errorf("compensate %s/%s failed: %v", cmd.GlobalTxID, cmd.LocalTxID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "compensation failed"})
		}

		outcome, err := reporter.Report(ctx, model.TxEvent{
			GlobalTxID:         cmd.GlobalTxID,
			LocalTxID:          cmd.LocalTxID,
			ParentTxID:         sql.NullString{String: cmd.ParentTxID, Valid: cmd.ParentTxID != ""},
			Type:               model.TxCompensatedEvent,
			CompensationMethod: cmd.CompensationMethod,
			Category:           cmd.Category,
		})
		if err != nil {
			c.Logger().Errorf("report compensated %s/%s failed: %v", cmd.GlobalTxID, cmd.LocalTxID, err)
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "report failed"})
		}
		if outcome == txconsistent.OutcomePaused {
			// not recorded, so the dispatcher must treat it as a failed delivery
			return c.JSON(http.StatusLocked, map[string]string{"error": "global transaction paused"})
		}
		return c.JSON(http.StatusOK, map[string]any{"compensated": true, "localTxId": cmd.LocalTxID})
	}
}
