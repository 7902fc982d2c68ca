package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// RegisterRequest payload for new accounts. Role is optional and defaults
// server-side to USER.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Validate runs validation rules.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 0)),
	)
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs validation rules.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenValidationRequest carries a raw token, with or without the
// "Bearer " prefix.
type TokenValidationRequest struct {
	Token string `json:"token"`
}

// Validate runs validation rules.
func (r TokenValidationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

// AuthResponse standard response for register and login.
type AuthResponse struct {
	Token   string `json:"token"`
	Type    string `json:"type"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

// TokenValidationResponse reports the outcome of a validate-token call.
// ExpiresAt is milliseconds since epoch, present only when valid.
type TokenValidationResponse struct {
	Valid     bool   `json:"valid"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
	Message   string `json:"message"`
}
