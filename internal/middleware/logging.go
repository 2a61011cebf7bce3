package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"UrbanScout/pkg/log"
)

func (m *middleware) NewLoggingMiddleware(ctx *fiber.Ctx) error {
	start := time.Now()

	requestID := m.GetRequestID(ctx)
	ctx.Locals("request_id", requestID)

	err := ctx.Next()

	latency := time.Since(start)
	status := ctx.Response().StatusCode()

	if err != nil && status == fiber.StatusInternalServerError {
		return err
	}

	logFields := log.Fields{
		"request_id": requestID,
		"method":     ctx.Method(),
		"path":       ctx.Path(),
		"status":     status,
		"latency_ms": latency.Milliseconds(),
		"ip":         ctx.IP(),
	}

	entry := m.log.WithFields(logrus.Fields(logFields))
	switch {
	case status >= 500:
		entry.Error("Server error")
	case status >= 400:
		entry.Warn("Client error")
	default:
		entry.Info("Success")
	}

	return err
}
