package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/platform/auth"
)

// Logger emits one structured line per completed request. Requests that
// carry an authenticated identity are logged with the actor's id and
// role, which keeps the request log joinable with the audit trail.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Identity is attached deeper in the chain, so read the
			// request context only after the handler returns.
			ctx := c.Request().Context()

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			evt = evt.
				Str("request_id", RequestIDFromContext(ctx)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())
			if ident, ok := auth.IdentityFromContext(ctx); ok {
				evt = evt.
					Str("user_id", ident.UserID.String()).
					Str("role", ident.Role)
			}
			evt.Msg("request")

			return err
		}
	}
}
