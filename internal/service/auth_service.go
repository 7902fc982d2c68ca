package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/repository"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

const bearerPrefix = "Bearer "

// AuthService coordinates the register, login, and validate-token flows.
type AuthService struct {
	accounts   repository.AccountRepository
	codec      *auth.TokenCodec
	validator  *auth.Validator
	limiter    *LoginLimiter
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	Accounts   repository.AccountRepository
	Codec      *auth.TokenCodec
	Limiter    *LoginLimiter
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	BcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.Accounts,
		codec:      deps.Codec,
		validator:  auth.NewValidator(deps.Codec),
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: deps.BcryptCost,
		now:        time.Now,
	}
}

// WithClock overrides the service time source for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Register creates a new account and issues a token for it.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	exists, err := s.accounts.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewConflict("an account already exists for email "+req.Email, nil)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	account := &domain.Account{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		Enabled:      true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	token, _, err := s.codec.Encode(account.Email, account.Role)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventAccountRegistered, account.Email, events.AccountRegisteredPayload{
		AccountID: account.ID,
		Role:      account.Role,
	})

	return &dto.AuthResponse{
		Token:   token,
		Type:    "Bearer",
		Email:   account.Email,
		Name:    account.Name,
		Role:    account.Role,
		Message: "account registered successfully",
	}, nil
}

// Login verifies credentials and issues a token. Every credential failure
// maps to the same unauthorized response so callers cannot probe for
// registered emails.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	if !s.limiter.Allow(ctx, req.Email) {
		return nil, apperrors.NewTooManyRequests("too many failed login attempts, try again later")
	}

	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.failLogin(ctx, req.Email, "unknown email")
		}
		return nil, err
	}
	if !account.Enabled {
		return nil, s.failLogin(ctx, req.Email, "account disabled")
	}
	if err := auth.ComparePassword(account.PasswordHash, req.Password); err != nil {
		return nil, s.failLogin(ctx, req.Email, "password mismatch")
	}

	token, _, err := s.codec.Encode(account.Email, account.Role)
	if err != nil {
		return nil, err
	}

	s.limiter.Reset(ctx, req.Email)
	s.publish(ctx, events.EventLoginSucceeded, account.Email, nil)

	return &dto.AuthResponse{
		Token:   token,
		Type:    "Bearer",
		Email:   account.Email,
		Name:    account.Name,
		Role:    account.Role,
		Message: "login successful",
	}, nil
}

func (s *AuthService) failLogin(ctx context.Context, email, reason string) error {
	s.limiter.RecordFailure(ctx, email)
	s.publish(ctx, events.EventLoginFailed, email, events.LoginFailedPayload{Reason: reason})
	return apperrors.NewUnauthorized("invalid email or password")
}

// ValidateToken checks a raw token and reports the result. It never fails
// the caller: any problem, including unexpected store errors, yields an
// invalid response.
func (s *AuthService) ValidateToken(ctx context.Context, raw string) *dto.TokenValidationResponse {
	token := strings.TrimPrefix(raw, bearerPrefix)
	now := s.now()

	subject, err := s.codec.ExtractSubject(token)
	if err != nil {
		return s.rejectToken(ctx, "", err)
	}

	// Expired tokens are rejected before touching the store.
	if s.validator.IsExpired(token, now) {
		return s.rejectToken(ctx, subject, auth.ErrTokenExpired)
	}

	account, err := s.accounts.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.rejectToken(ctx, subject, auth.ErrAccountNotFound)
		}
		s.logger.Error("account lookup failed during token validation", zap.Error(err))
		return s.rejectToken(ctx, subject, auth.ErrMalformedToken)
	}

	outcome := s.validator.Validate(token, account.Email, now)
	if !outcome.Valid {
		return s.rejectToken(ctx, subject, outcome.Reason)
	}

	s.publish(ctx, events.EventTokenValidated, outcome.Subject, nil)
	return &dto.TokenValidationResponse{
		Valid:     true,
		Username:  outcome.Subject,
		Role:      outcome.Role,
		ExpiresAt: outcome.ExpiresAt.UnixMilli(),
		Message:   "token is valid",
	}
}

func (s *AuthService) rejectToken(ctx context.Context, subject string, reason error) *dto.TokenValidationResponse {
	s.publish(ctx, events.EventTokenRejected, subject, events.TokenRejectedPayload{
		Reason: auth.ErrorCode(reason),
	})
	return &dto.TokenValidationResponse{Valid: false, Message: reason.Error()}
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subject string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
