package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

func TestProtect(t *testing.T) {
	h := newHarness(t)
	u := testutil.CreateUser(t, h.db, models.RoleUser)

	t.Run("no token", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
		requireStatus(t, http.StatusUnauthorized, rec)
		assert.Equal(t, "You are not logged in! Please log in to get access.", decode(t, rec).Message)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil)
		requireStatus(t, http.StatusUnauthorized, rec)
		assert.Equal(t, "Invalid token. Please log in again!", decode(t, rec).Message)
	})

	t.Run("wrong key", func(t *testing.T) {
		tok, _, err := tokens.CreateAccessToken(u.ID.String(), u.Role, time.Now(), time.Hour, []byte("other"))
		require.NoError(t, err)
		rec := h.do(t, http.MethodGet, "/api/v1/users/me", tok, nil)
		requireStatus(t, http.StatusUnauthorized, rec)
	})

	t.Run("bearer", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/v1/users/me", tokenFor(t, u), nil)
		requireStatus(t, http.StatusOK, rec)
		var got models.User
		decodeData(t, rec, &got)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.AddCookie(tokens.CreateCookie(tokenFor(t, u), time.Now().Add(time.Hour), false))
		rec := httptest.NewRecorder()
		h.e.ServeHTTP(rec, req)
		requireStatus(t, http.StatusOK, rec)
	})
}

func TestProtect_RejectsTokenIssuedBeforePasswordChange(t *testing.T) {
	h := newHarness(t)
	u := testutil.CreateUser(t, h.db, models.RoleUser)

	issued := time.Now().Add(-time.Hour)
	old, _, err := tokens.CreateAccessToken(u.ID.String(), u.Role, issued, 2*time.Hour, testSecret)
	require.NoError(t, err)

	changed := time.Now().Add(-time.Minute)
	require.NoError(t, h.db.Model(u).Update("password_changed_at", changed).Error)

	rec := h.do(t, http.MethodGet, "/api/v1/users/me", old, nil)
	requireStatus(t, http.StatusUnauthorized, rec)
	assert.Equal(t, "User recently changed password! Please log in again.", decode(t, rec).Message)

	requireStatus(t, http.StatusOK, h.do(t, http.MethodGet, "/api/v1/users/me", tokenFor(t, u), nil))
}

func TestProtect_RejectsDeactivatedUser(t *testing.T) {
	h := newHarness(t)
	u := testutil.CreateUser(t, h.db, models.RoleUser)
	tok := tokenFor(t, u)

	requireStatus(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/api/v1/users/me", tok, nil))
	requireStatus(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/v1/users/me", tok, nil))
}

func TestRestrictTo(t *testing.T) {
	h := newHarness(t)
	user := testutil.CreateUser(t, h.db, models.RoleUser)
	editor := testutil.CreateUser(t, h.db, models.RoleEditor)
	admin := testutil.CreateUser(t, h.db, models.RoleAdmin)

	rec := h.do(t, http.MethodGet, "/api/v1/users", tokenFor(t, user), nil)
	requireStatus(t, http.StatusForbidden, rec)
	assert.Equal(t, "You do not have permission to perform this action", decode(t, rec).Message)

	requireStatus(t, http.StatusOK, h.do(t, http.MethodGet, "/api/v1/users", tokenFor(t, editor), nil))

	// deleting users is for admins only
	target := "/api/v1/users/" + user.ID.String()
	requireStatus(t, http.StatusForbidden, h.do(t, http.MethodDelete, target, tokenFor(t, editor), nil))
	requireStatus(t, http.StatusNoContent, h.do(t, http.MethodDelete, target, tokenFor(t, admin), nil))

	// carts belong to customers
	requireStatus(t, http.StatusForbidden, h.do(t, http.MethodGet, "/api/v1/carts", tokenFor(t, admin), nil))
}
