package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	"github.com/jmehdipour/saga-coordinator/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func pageParams(c echo.Context) (limit, offset int) {
	limit = 50
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func listEventsHandler(chRepo repository.CHEventsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		gid := strings.TrimSpace(c.QueryParam("globalTxId"))
		if gid == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing globalTxId"})
		}

		var typ string
		if raw := strings.TrimSpace(c.QueryParam("type")); raw != "" {
			t, ok := model.ParseEventType(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid type"})
			}
			typ = t.String()
		}

		limit, offset := pageParams(c)
		events, err := chRepo.ListByGlobalTx(c.Request().Context(), gid, typ, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(events),
			"results": events,
		})
	}
}
