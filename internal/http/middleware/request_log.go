package middleware

import (
	"github.com/jmehdipour/saga-coordinator/internal/omega"
	echo "github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request with the saga ids when the caller sent them.
// It must run after omega.Middleware.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if tc, ok := omega.TxContextFromEcho(c); ok {
				fields = append(fields, zap.String("global_tx_id", tc.GlobalTxID), zap.String("local_tx_id", tc.LocalTxID))
			}
			if id := c.Request().Header.Get(omega.HeaderInstanceID); id != "" {
				fields = append(fields, zap.String("instance_id", id))
			}
			if v.Error != nil {
				log.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
