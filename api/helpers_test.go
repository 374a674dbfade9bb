package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	internalS3 "carlot/adapters/s3"
	"carlot/models"
)

const testPassword = "correct-horse-battery"

func init() {
	gin.SetMode(gin.TestMode)
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type testServer struct {
	impl   *ServerImpl
	router *gin.Engine
	db     *gorm.DB
	mr     *miniredis.Miniredis
	blob   *internalS3.MockIBlobStore
}

func newTestConfig(t *testing.T) ServerConfig {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return ServerConfig{
		Auth:  AuthConfig{PrivateKey: key, Issuer: "carlot-test"},
		Redis: RedisConfig{KeyPrefix: "test:", StreamKeys: RedisStreamKeys{Moderation: "test:moderation"}},
	}
}

// newTestServer 以 sqlite、miniredis 與 mock blob store 組裝完整的路由
func newTestServer(t *testing.T, mutate ...func(*ServerConfig)) *testServer {
	t.Helper()
	config := newTestConfig(t)
	for _, fn := range mutate {
		fn(&config)
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	blob := internalS3.NewMockIBlobStore(gomock.NewController(t))
	impl, err := newServer(config, db, client, blob)
	require.NoError(t, err)
	require.NoError(t, impl.Migrate())
	impl.Start()
	t.Cleanup(impl.Close)

	router := gin.New()
	impl.RegisterHandlers(router)
	return &testServer{impl: impl, router: router, db: db, mr: mr, blob: blob}
}

func (s *testServer) createUser(t *testing.T, username string, role models.Role, staff bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Username: username, PasswordHash: string(hash), Role: role, IsStaff: staff}
	require.NoError(t, s.db.Create(u).Error)
	return u
}

func (s *testServer) accessToken(t *testing.T, u *models.User) string {
	t.Helper()
	pair, err := s.impl.issuer.IssuePair(context.Background(), u)
	require.NoError(t, err)
	return pair.Access
}

// do 發送 JSON 請求，token 為空字串時不帶 Authorization
func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(data)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *testServer) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
