package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/account-service/internal/api/http"
	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/service"
)

type memoryAccounts struct {
	byEmail map[string]*domain.Account
}

func (m *memoryAccounts) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	m.byEmail[account.Email] = account
	return nil
}

func (m *memoryAccounts) Update(ctx context.Context, account *domain.Account) error {
	m.byEmail[account.Email] = account
	return nil
}

func (m *memoryAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	for _, account := range m.byEmail {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if account, ok := m.byEmail[email]; ok {
		return account, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := zap.NewNop()
	codec := auth.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	accounts := &memoryAccounts{byEmail: map[string]*domain.Account{}}

	authService := service.NewAuthService(service.AuthDependencies{
		Accounts:   accounts,
		Codec:      codec,
		Limiter:    service.NewLoginLimiter(nil, 0, 0, logger),
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
		BcryptCost: bcrypt.MinCost,
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Welcome: handlers.NewWelcomeHandler("account-service", "test"),
		Health:  handlers.NewHealthHandler("account-service", "test", nil, nil),
		Auth:    handlers.NewAuthHandler(authService),
		Filter:  auth.NewFilter(codec, auth.NewValidator(codec), accounts, logger),
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	resp.Body.Close()
	return resp, decoded
}

func TestRegisterLoginValidateFlow(t *testing.T) {
	app := newTestApp(t)

	resp, body := postJSON(t, app, "/auth/register", map[string]string{
		"email": "dup@x.com", "name": "Dup", "password": "password123",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Bearer", body["type"])
	assert.Equal(t, "USER", body["role"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	// Duplicate registration conflicts.
	resp, body = postJSON(t, app, "/auth/register", map[string]string{
		"email": "dup@x.com", "name": "Dup", "password": "password123",
	}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	errBody, _ := body["error"].(map[string]any)
	assert.Equal(t, "CONFLICT", errBody["code"])

	// Wrong password is unauthorized.
	resp, _ = postJSON(t, app, "/auth/login", map[string]string{
		"email": "dup@x.com", "password": "wrong",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Correct credentials return a token.
	resp, body = postJSON(t, app, "/auth/login", map[string]string{
		"email": "dup@x.com", "password": "password123",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loginToken, _ := body["token"].(string)
	require.NotEmpty(t, loginToken)

	// Validate accepts the token with and without the Bearer prefix.
	resp, body = postJSON(t, app, "/auth/validate", map[string]string{"token": loginToken}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "dup@x.com", body["username"])

	resp, body = postJSON(t, app, "/auth/validate", map[string]string{"token": "Bearer " + loginToken}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])

	// A mangled token answers 401 with the same response shape.
	resp, body = postJSON(t, app, "/auth/validate", map[string]string{"token": "not.a.token"}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
}

func TestValidationFailures(t *testing.T) {
	app := newTestApp(t)

	resp, body := postJSON(t, app, "/auth/register", map[string]string{
		"email": "not-an-email", "name": "A", "password": "123",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody, _ := body["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	details, _ := errBody["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")

	resp, _ = postJSON(t, app, "/auth/validate", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMeEndpoint(t *testing.T) {
	app := newTestApp(t)

	_, body := postJSON(t, app, "/auth/register", map[string]string{
		"email": "a@x.com", "name": "Alice", "password": "password123",
	}, nil)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	// Without a token /auth/me is unauthorized.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	resp.Body.Close()
	assert.Equal(t, "a@x.com", me["email"])
	assert.Equal(t, "USER", me["role"])
}

func TestWelcome(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "account-service", body["service"])
	assert.Equal(t, "running", body["status"])
}
