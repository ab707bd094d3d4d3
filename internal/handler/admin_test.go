package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmicianjur/pelantikan-api/internal/config"
	"github.com/pmicianjur/pelantikan-api/internal/middleware"
	"github.com/pmicianjur/pelantikan-api/internal/repository"
	"github.com/pmicianjur/pelantikan-api/internal/utils"
)

func newAdminHandler(t *testing.T) *AdminHandler {
	t.Helper()
	hash, err := utils.HashPassword("rahasia-panitia", 4)
	require.NoError(t, err)
	cache := middleware.NewCache(config.CacheConfig{}, nil)
	return NewAdminHandler(
		repository.NewRegistrationRepo(nil),
		repository.NewParticipantRepo(nil),
		repository.NewChaperoneRepo(nil),
		cache, hash, "session-secret", false,
	)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == utils.AdminCookieName {
			return c
		}
	}
	return nil
}

func TestAdminLogin(t *testing.T) {
	h := newAdminHandler(t)
	c, rec := postJSON("/api/admin/login", `{"password":"rahasia-panitia"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/api/admin", cookie.Path)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), cookie.Expires, time.Minute)
	assert.NoError(t, utils.VerifyAdminSession("session-secret", cookie.Value))
}

func TestAdminLoginWrongPassword(t *testing.T) {
	h := newAdminHandler(t)
	c, rec := postJSON("/api/admin/login", `{"password":"salah"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))
}

func TestAdminLoginMissingPassword(t *testing.T) {
	h := newAdminHandler(t)
	c, rec := postJSON("/api/admin/login", `{}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminLogoutExpiresCookie(t *testing.T) {
	h := newAdminHandler(t)
	c, rec := postJSON("/api/admin/logout", ``)
	require.NoError(t, h.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestAdminAuthMiddleware(t *testing.T) {
	sess, err := utils.NewAdminSession("session-secret", time.Hour)
	require.NoError(t, err)

	e := echo.New()
	next := func(c echo.Context) error { return c.String(http.StatusOK, "in") }
	guarded := middleware.AdminAuth("session-secret")(next)

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/pendaftar", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, guarded(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/pendaftar", nil)
		req.AddCookie(&http.Cookie{Name: utils.AdminCookieName, Value: "garbage"})
		rec := httptest.NewRecorder()
		require.NoError(t, guarded(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/pendaftar", nil)
		req.AddCookie(&http.Cookie{Name: utils.AdminCookieName, Value: sess.Token})
		rec := httptest.NewRecorder()
		require.NoError(t, guarded(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"081234567890", "6281234567890"},
		{"6281234567890", "6281234567890"},
		{"+62 812-3456-7890", "6281234567890"},
		{"0812 3456 7890", "6281234567890"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePhone(tt.in), tt.in)
	}
}
