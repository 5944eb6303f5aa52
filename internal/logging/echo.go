package logging

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const headerRequestID = echo.HeaderXRequestID

// EchoMiddleware reads or generates X-Request-ID, attaches a child logger
// with request metadata to the request context and logs one line once the
// handler chain returns.  The caller identity is read after the chain
// runs because the identity middleware sits further down.
func EchoMiddleware(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqID := req.Header.Get(headerRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, reqID)

			child := logger.With().
				Str(FieldRequestID, reqID).
				Str(FieldMethod, req.Method).
				Str(FieldPath, req.URL.Path).
				Str(FieldClientIP, c.RealIP()).
				Logger()
			c.SetRequest(req.WithContext(WithLogger(req.Context(), child)))

			err := next(c)
			if err != nil {
				// let echo's error handler write the response before we read the status
				c.Error(err)
			}

			evt := child.Info()
			status := c.Response().Status
			if status >= 500 {
				evt = child.Error()
			}
			evt = evt.Int(FieldStatus, status).
				Float64(FieldLatency, float64(time.Since(start).Microseconds())/1000)
			if uid, ok := c.Get(FieldUserID).(string); ok && uid != "" {
				evt = evt.Str(FieldUserID, uid)
			}
			evt.Msg("request completed")
			return nil
		}
	}
}
