package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Welcome *handlers.WelcomeHandler
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Filter  *auth.Filter
}

// RegisterRoutes wires HTTP routes. The authentication filter runs for
// every request; routes stay public unless a guard is attached.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Filter.Handle)

	app.Get("/", cfg.Welcome.Welcome)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/validate", cfg.Auth.ValidateToken)

	authGroup.Get("/me", auth.RequireAuthenticated(), cfg.Auth.Me)
}
