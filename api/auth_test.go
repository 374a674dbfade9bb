package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carlot/api/token"
	"carlot/models"
)

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/register", map[string]any{
		"username": "alice",
		"password": testPassword,
		"email":    "alice@example.com",
		"role":     "seller",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "seller", body["role"])
	assert.Equal(t, false, body["is_staff"])
	assert.NotContains(t, body, "password")

	var user models.User
	require.NoError(t, s.db.First(&user, "username = ?", "alice").Error)
	assert.NotEqual(t, testPassword, user.PasswordHash)
}

func TestRegister_DefaultsToBuyer(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/auth/register", map[string]any{"username": "bob", "password": testPassword}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "buyer", decode[map[string]any](t, w)["role"])
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "taken", models.RoleBuyer, false)

	w := s.do(t, http.MethodPost, "/auth/register", map[string]any{"username": "taken", "password": testPassword}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{msgUsernameTaken}, decode[map[string][]string](t, w)["username"])

	w = s.do(t, http.MethodPost, "/auth/register", map[string]any{"username": "new", "password": "short", "role": "admin"}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string][]string](t, w)
	assert.Contains(t, body, "password")
	assert.Contains(t, body, "role")

	w = s.do(t, http.MethodPost, "/auth/register", "not json", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w), "detail")
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	u := s.createUser(t, "alice", models.RoleSeller, true)

	w := s.do(t, http.MethodPost, "/auth/login", map[string]any{"username": "alice", "password": testPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pair := decode[token.Pair](t, w)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	w = s.do(t, http.MethodGet, "/auth/me", nil, pair.Access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode[map[string]any](t, w)
	assert.Equal(t, u.ID.String(), me["id"])
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "seller", me["role"])
	assert.Equal(t, true, me["is_staff"])
	assert.Equal(t, false, me["is_superuser"])
}

func TestLogin_BadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "alice", models.RoleBuyer, false)

	for _, body := range []map[string]any{
		{"username": "alice", "password": "wrong-password"},
		{"username": "nobody", "password": testPassword},
	} {
		w := s.do(t, http.MethodPost, "/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, detailBadCredentials, decode[map[string]any](t, w)["detail"])
	}
}

func TestMe_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, detailUnauthenticated, decode[map[string]any](t, w)["detail"])

	w = s.do(t, http.MethodGet, "/auth/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token_not_valid", decode[map[string]any](t, w)["code"])
}

func TestRefresh_RotatesToken(t *testing.T) {
	s := newTestServer(t)
	u := s.createUser(t, "alice", models.RoleBuyer, false)
	first, err := s.impl.issuer.IssuePair(context.Background(), u)
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/auth/refresh", map[string]any{"refresh": first.Refresh}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := decode[token.Pair](t, w)
	assert.NotEqual(t, first.Refresh, second.Refresh)

	// 使用過的 refresh token 已撤銷
	w = s.do(t, http.MethodPost, "/auth/refresh", map[string]any{"refresh": first.Refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/refresh", map[string]any{"refresh": second.Refresh}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// access token 不能當作 refresh token
	w = s.do(t, http.MethodPost, "/auth/refresh", map[string]any{"refresh": second.Access}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerify(t *testing.T) {
	s := newTestServer(t)
	u := s.createUser(t, "alice", models.RoleBuyer, false)
	pair, err := s.impl.issuer.IssuePair(context.Background(), u)
	require.NoError(t, err)

	for _, tok := range []string{pair.Access, pair.Refresh} {
		w := s.do(t, http.MethodPost, "/auth/verify", map[string]any{"token": tok}, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{}`, w.Body.String())
	}

	w := s.do(t, http.MethodPost, "/auth/verify", map[string]any{"token": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	s := newTestServer(t, func(c *ServerConfig) { c.RateLimitPerMinute = 2 })
	body := map[string]any{"username": "nobody", "password": testPassword}

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/login", body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/login", body, "").Code)
	w := s.do(t, http.MethodPost, "/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, detailThrottled, decode[map[string]any](t, w)["detail"])

	// 登入與註冊分開計數
	w = s.do(t, http.MethodPost, "/auth/register", map[string]any{"username": "alice", "password": testPassword}, "")
	assert.Equal(t, http.StatusCreated, w.Code)
}
