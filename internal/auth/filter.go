package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/repository"
)

const principalKey = "auth_principal"

const bearerPrefix = "Bearer "

// Principal represents the authenticated caller attached to a request.
type Principal struct {
	AccountID string
	Subject   string
	Name      string
	Role      string
}

// Authorities lists the authority strings granted by the principal's role.
func (p *Principal) Authorities() []string {
	return domain.Authorities(p.Role)
}

// Filter promotes a valid bearer token into a request-scoped principal.
// It runs once per request and never rejects the request itself: on any
// failure the request continues unauthenticated and the route guards
// decide whether that matters.
type Filter struct {
	codec     *TokenCodec
	validator *Validator
	accounts  repository.AccountRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewFilter constructs the request authentication filter.
func NewFilter(codec *TokenCodec, validator *Validator, accounts repository.AccountRepository, logger *zap.Logger) *Filter {
	return &Filter{
		codec:     codec,
		validator: validator,
		accounts:  accounts,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the filter's time source for tests.
func (f *Filter) WithClock(now func() time.Time) *Filter {
	f.now = now
	return f
}

// Handle inspects the Authorization header and, when it carries a token
// that verifies against a live account, stores a Principal in the request
// locals. Every path falls through to the next handler.
func (f *Filter) Handle(c *fiber.Ctx) error {
	if _, ok := PrincipalFromContext(c); ok {
		// Already authenticated; do not re-run the lookup.
		return c.Next()
	}

	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return c.Next()
	}
	tokenStr := strings.TrimPrefix(header, bearerPrefix)

	subject, err := f.codec.ExtractSubject(tokenStr)
	if err != nil {
		f.logger.Debug("bearer token rejected", zap.String("reason", ErrorCode(err)))
		return c.Next()
	}

	account, err := f.accounts.GetByEmail(c.Context(), subject)
	if err != nil {
		f.logger.Debug("bearer token rejected",
			zap.String("reason", ErrorCode(ErrAccountNotFound)),
			zap.String("subject", subject))
		return c.Next()
	}
	if !account.Enabled {
		f.logger.Debug("bearer token rejected for disabled account", zap.String("subject", subject))
		return c.Next()
	}

	outcome := f.validator.Validate(tokenStr, account.Email, f.now())
	if !outcome.Valid {
		f.logger.Debug("bearer token rejected",
			zap.String("reason", ErrorCode(outcome.Reason)),
			zap.String("subject", subject))
		return c.Next()
	}

	c.Locals(principalKey, &Principal{
		AccountID: account.ID,
		Subject:   account.Email,
		Name:      account.Name,
		Role:      outcome.Role,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
