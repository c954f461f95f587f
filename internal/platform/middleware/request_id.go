package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderRequestID is the response header carrying the request id.
const HeaderRequestID = "X-Request-ID"

// requestIDKey is the echo context key the correlation id is stored under.
// Readers go through RequestIDFrom rather than the key.
const requestIDKey = "request_id"

// RequestID assigns each request a uuid, honoring one supplied by the client.
// The id is stored on the echo context for the logger and recovery middleware
// and echoed back in the response headers.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(requestIDKey, rid)
			c.Response().Header().Set(HeaderRequestID, rid)
			return next(c)
		}
	}
}

// RequestIDFrom returns the correlation id RequestID assigned to the request,
// or the empty string when the middleware has not run.
func RequestIDFrom(c echo.Context) string {
	rid, _ := c.Get(requestIDKey).(string)
	return rid
}
