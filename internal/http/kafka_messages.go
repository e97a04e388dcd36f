package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/saga-coordinator/internal/model"
	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

func saveKafkaMessageHandler(engine TxEngine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var m model.KafkaMessage
		if err := c.Bind(&m); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		m.GlobalTxID = strings.TrimSpace(m.GlobalTxID)
		m.LocalTxID = strings.TrimSpace(m.LocalTxID)
		if m.GlobalTxID == "" || m.LocalTxID == "" || m.TableName == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "globalTxId, localTxId and tableName are required"})
		}
		m.ID = 0
		m.Status = model.KafkaMessageInit

		if err := engine.SaveKafkaMessage(c.Request().Context(), &m); err != nil {
			log.Errorf("save kafka message %s/%s failed: %v", m.GlobalTxID, m.LocalTxID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "store error"})
		}
		return c.JSON(http.StatusCreated, m)
	}
}
