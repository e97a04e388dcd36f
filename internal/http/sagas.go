package http

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

func sagaPausedHandler(engine TxEngine) echo.HandlerFunc {
	return func(c echo.Context) error {
		gid := strings.TrimSpace(c.Param("globalTxId"))
		if gid == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing globalTxId"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"globalTxId": gid,
			"paused":     engine.IsGlobalTxPaused(c.Request().Context(), gid),
		})
	}
}

type endedReq struct {
	LocalTxIDs []string `json:"localTxIds"`
}

const maxEndedLookup = 1000

func endedSagasHandler(engine TxEngine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req endedReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if len(req.LocalTxIDs) > maxEndedLookup {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "too many localTxIds"})
		}

		ids := make([]string, 0, len(req.LocalTxIDs))
		for _, id := range req.LocalTxIDs {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}

		ended, err := engine.FetchLocalTxIdOfEndedGlobalTx(c.Request().Context(), ids)
		if err != nil {
			log.Errorf("select ended global tx failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		out := make([]string, 0, len(ended))
		for _, id := range ids {
			if _, ok := ended[id]; ok {
				out = append(out, id)
			}
		}
		return c.JSON(http.StatusOK, map[string]any{"ended": out})
	}
}
