package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// WelcomeHandler serves the root document describing the API surface.
type WelcomeHandler struct {
	serviceName string
	version     string
}

// NewWelcomeHandler returns a new handler instance.
func NewWelcomeHandler(serviceName, version string) *WelcomeHandler {
	return &WelcomeHandler{serviceName: serviceName, version: version}
}

// Welcome handles GET /.
func (h *WelcomeHandler) Welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":   h.serviceName,
		"version":   h.version,
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"endpoints": fiber.Map{
			"register": "POST /auth/register",
			"login":    "POST /auth/login",
			"validate": "POST /auth/validate",
			"me":       "GET /auth/me",
			"health":   "GET /health/live",
		},
	})
}
