package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
)

type fakeAccounts struct {
	byEmail      map[string]*domain.Account
	emailLookups int
}

func (f *fakeAccounts) Create(ctx context.Context, account *domain.Account) error { return nil }
func (f *fakeAccounts) Update(ctx context.Context, account *domain.Account) error { return nil }

func (f *fakeAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	for _, account := range f.byEmail {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccounts) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	f.emailLookups++
	if account, ok := f.byEmail[email]; ok {
		return account, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

type whoamiResponse struct {
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject"`
	Role          string `json:"role"`
}

func newFilterApp(t *testing.T, codec *auth.TokenCodec, accounts *fakeAccounts, now time.Time, mountTwice bool) *fiber.App {
	t.Helper()

	filter := auth.NewFilter(codec, auth.NewValidator(codec), accounts, zap.NewNop()).
		WithClock(fixedClock(now))

	app := fiber.New()
	app.Use(filter.Handle)
	if mountTwice {
		app.Use(filter.Handle)
	}
	app.Get("/whoami", func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return c.JSON(whoamiResponse{Authenticated: false})
		}
		return c.JSON(whoamiResponse{Authenticated: true, Subject: principal.Subject, Role: principal.Role})
	})
	app.Get("/admin", auth.RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func whoami(t *testing.T, app *fiber.App, authorization string) whoamiResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out whoamiResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func testAccount() *domain.Account {
	return &domain.Account{
		ID:      "acc-1",
		Email:   "a@x.com",
		Name:    "Alice",
		Role:    domain.RoleUser,
		Enabled: true,
	}
}

func TestFilterNoHeaderPassesThrough(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(t, now, time.Hour)
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{"a@x.com": testAccount()}}
	app := newFilterApp(t, codec, accounts, now, false)

	out := whoami(t, app, "")
	assert.False(t, out.Authenticated)
	assert.Zero(t, accounts.emailLookups)

	out = whoami(t, app, "Basic dXNlcjpwYXNz")
	assert.False(t, out.Authenticated)
	assert.Zero(t, accounts.emailLookups)
}

func TestFilterMalformedTokenPassesThrough(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(t, now, time.Hour)
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{"a@x.com": testAccount()}}
	app := newFilterApp(t, codec, accounts, now, false)

	out := whoami(t, app, "Bearer not.a.token")
	assert.False(t, out.Authenticated)
	assert.Zero(t, accounts.emailLookups)
}

func TestFilterUnknownSubjectPassesThrough(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(t, now, time.Hour)
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{}}
	app := newFilterApp(t, codec, accounts, now, false)

	token, _, err := codec.Encode("ghost@x.com", domain.RoleUser)
	require.NoError(t, err)

	out := whoami(t, app, "Bearer "+token)
	assert.False(t, out.Authenticated)
	assert.Equal(t, 1, accounts.emailLookups)
}

func TestFilterDisabledAccountPassesThrough(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(t, now, time.Hour)
	account := testAccount()
	account.Enabled = false
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{"a@x.com": account}}
	app := newFilterApp(t, codec, accounts, now, false)

	token, _, err := codec.Encode("a@x.com", domain.RoleUser)
	require.NoError(t, err)

	out := whoami(t, app, "Bearer "+token)
	assert.False(t, out.Authenticated)
}

func TestFilterExpiredTokenPassesThrough(t *testing.T) {
	issuedAt := time.Unix(1700000000, 0)
	codec := newTestCodec(t, issuedAt, time.Second)
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{"a@x.com": testAccount()}}
	app := newFilterApp(t, codec, accounts, issuedAt.Add(2*time.Second), false)

	token, _, err := codec.Encode("a@x.com", domain.RoleUser)
	require.NoError(t, err)

	out := whoami(t, app, "Bearer "+token)
	assert.False(t, out.Authenticated)
}

func TestFilterValidTokenSetsPrincipal(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(t, now, time.Hour)
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{"a@x.com": testAccount()}}
	app := newFilterApp(t, codec, accounts, now.Add(time.Minute), false)

	token, _, err := codec.Encode("a@x.com", domain.RoleUser)
	require.NoError(t, err)

	out := whoami(t, app, "Bearer "+token)
	assert.True(t, out.Authenticated)
	assert.Equal(t, "a@x.com", out.Subject)
	assert.Equal(t, domain.RoleUser, out.Role)
}

func TestFilterIdempotence(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(t, now, time.Hour)
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{"a@x.com": testAccount()}}
	app := newFilterApp(t, codec, accounts, now.Add(time.Minute), true)

	token, _, err := codec.Encode("a@x.com", domain.RoleUser)
	require.NoError(t, err)

	out := whoami(t, app, "Bearer "+token)
	assert.True(t, out.Authenticated)
	// The second filter pass sees the principal and skips the store lookup.
	assert.Equal(t, 1, accounts.emailLookups)
}

func TestRequireRole(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codec := newTestCodec(t, now, time.Hour)
	accounts := &fakeAccounts{byEmail: map[string]*domain.Account{"a@x.com": testAccount()}}
	app := newFilterApp(t, codec, accounts, now.Add(time.Minute), false)

	// No token at all.
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// USER token against an ADMIN-only route.
	token, _, err := codec.Encode("a@x.com", domain.RoleUser)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthorities(t *testing.T) {
	assert.Equal(t, []string{"ROLE_USER"}, domain.Authorities(domain.RoleUser))
	assert.Nil(t, domain.Authorities(""))

	principal := &auth.Principal{Role: domain.RoleAdmin}
	assert.Equal(t, []string{"ROLE_ADMIN"}, principal.Authorities())
}
