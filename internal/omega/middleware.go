package omega

import (
	echo "github.com/labstack/echo/v4"
)

const txContextKey = "omega_tx"

// Middleware moves an incoming TxContext from headers into the request context.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tc, ok := Extract(c.Request().Header); ok {
				req := c.Request()
				c.SetRequest(req.WithContext(NewContext(req.Context(), tc)))
				c.Set(txContextKey, tc)
			}
			return next(c)
		}
	}
}

// TxContextFromEcho returns the TxContext stored by Middleware.
func TxContextFromEcho(c echo.Context) (TxContext, bool) {
	tc, ok := c.Get(txContextKey).(TxContext)
	return tc, ok
}
