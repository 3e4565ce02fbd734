package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"filevault/internal/logging"
)

// Logger is a middleware that logs each HTTP request in JSON format.
// Fields:
// - request_id (taken from context locals set by RequestID middleware)
// - owner_id (when the request was authenticated)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
func Logger(logger *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Process request
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		entry := map[string]any{
			"request_id": RequestIDFromCtx(c),
			"method":     c.Method(),
			// Only the path, no query string
			"path":    c.Path(),
			"status":  status,
			"latency": float64(time.Since(start).Microseconds()) / 1000,
		}
		if owner := OwnerID(c); owner != "" {
			entry["owner_id"] = owner
		}
		logger.Log(entry)

		return err
	}
}

// LoggerWithWriter is Logger writing to w with timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logging.New(w, loc))
}
