package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

type stubEmployees map[string]*domain.Employee

func (s stubEmployees) GetByUserCode(_ context.Context, userCode string) (*domain.Employee, error) {
	if e, ok := s[userCode]; ok {
		return e, nil
	}
	return nil, pgx.ErrNoRows
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, expires, err := tm.GenerateToken("E100", "unit-plant", true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expires, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "E100", claims.UserCode)
	assert.Equal(t, "unit-plant", claims.UnitID)
	assert.True(t, claims.IsAdmin)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)
	assert.ErrorIs(t, ComparePassword("", ""), ErrPasswordMismatch)
	assert.Error(t, ComparePassword("not-a-hash", "s3cret"))
}

func TestHashPasswordOutOfRangeCost(t *testing.T) {
	hash, err := HashPassword("s3cret", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
	assert.NoError(t, ComparePassword(hash, "s3cret"))
}

func newProtectedApp(tm *TokenManager, employees stubEmployees) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(tm, employees)
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.UserCode() + "@" + p.UnitID)
	})
	app.Get("/admin", mw.Handle, RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	employees := stubEmployees{
		"E100": {UserCode: "E100", UnitID: "unit-plant", Active: true},
		"OLD":  {UserCode: "OLD", UnitID: "unit-plant", Active: false},
	}
	app := newProtectedApp(tm, employees)

	switched, _, err := tm.GenerateToken("E100", "unit-hq", false)
	require.NoError(t, err)
	inactive, _, err := tm.GenerateToken("OLD", "", false)
	require.NoError(t, err)
	ghost, _, err := tm.GenerateToken("GHOST", "", false)
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"missing header", "/me", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed header", "/me", "Token abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "/me", "Bearer abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown employee", "/me", "Bearer " + ghost, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"inactive employee", "/me", "Bearer " + inactive, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"switched unit", "/me", "Bearer " + switched, http.StatusOK, "E100@unit-hq"},
		{"non admin", "/admin", "Bearer " + switched, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.body, string(body))
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(1, 2)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per IP")

	clock = clock.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))

	clock = clock.Add(10 * time.Minute)
	l.Allow("10.0.0.3")
	l.mu.Lock()
	_, stale := l.buckets["10.0.0.2"]
	l.mu.Unlock()
	assert.False(t, stale, "idle buckets are evicted")
}
