package handlers

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// AuthHandler exposes the register, login, and validate-token endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	resp, err := h.auth.Register(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	resp, err := h.auth.Login(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ValidateToken handles POST /auth/validate. An invalid token answers 401
// with the same response shape as a valid one.
func (h *AuthHandler) ValidateToken(c *fiber.Ctx) error {
	var req dto.TokenValidationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	resp := h.auth.ValidateToken(c.Context(), req.Token)
	if !resp.Valid {
		return c.Status(http.StatusUnauthorized).JSON(resp)
	}
	return c.JSON(resp)
}

// Me handles GET /auth/me for authenticated callers.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return c.JSON(fiber.Map{
		"email":       principal.Subject,
		"name":        principal.Name,
		"role":        principal.Role,
		"authorities": principal.Authorities(),
	})
}

// validationError converts ozzo field errors into the standard
// VALIDATION_FAILED response with per-field details.
func validationError(err error) error {
	details := map[string]any{}
	if fieldErrors, ok := err.(validation.Errors); ok {
		for field, fieldErr := range fieldErrors {
			details[field] = fieldErr.Error()
		}
	}
	return apperrors.NewValidationError("validation failed", details)
}
