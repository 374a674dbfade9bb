package token

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisAdapter "carlot/adapters/redis"
	"carlot/models"
)

func setupIssuer(t *testing.T, opts ...Option) (*Issuer, *miniredis.Miniredis) {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := redisAdapter.NewStore(client, redisAdapter.WithStorePrefix("test:refresh:"))
	return NewIssuer(key, store, opts...), mr
}

func testUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Username: "alice",
		Role:     models.RoleSeller,
		IsStaff:  true,
	}
}

func TestIssuePairAndParse(t *testing.T) {
	issuer, mr := setupIssuer(t)
	u := testUser()

	pair, err := issuer.IssuePair(context.Background(), u)
	require.NoError(t, err)

	claims, err := issuer.Parse(pair.Access, TypeAccess)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleSeller, claims.Role)
	assert.True(t, claims.IsStaff)
	assert.False(t, claims.IsSuperuser)

	refresh, err := issuer.Parse(pair.Refresh, TypeRefresh)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:refresh:"+refresh.ID))
}

func TestParseRejectsWrongType(t *testing.T) {
	issuer, _ := setupIssuer(t)
	pair, err := issuer.IssuePair(context.Background(), testUser())
	require.NoError(t, err)

	_, err = issuer.Parse(pair.Refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.Parse(pair.Access, TypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	issuer, _ := setupIssuer(t, WithAccessTTL(time.Minute), WithClock(func() time.Time { return now }))
	pair, err := issuer.IssuePair(context.Background(), testUser())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = issuer.Parse(pair.Access, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsForeignKey(t *testing.T) {
	issuer, _ := setupIssuer(t)
	other, _ := setupIssuer(t)
	pair, err := other.IssuePair(context.Background(), testUser())
	require.NoError(t, err)

	_, err = issuer.Parse(pair.Access, TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.Parse("not-a-token", TypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestConsumeIsSingleUse(t *testing.T) {
	issuer, mr := setupIssuer(t)
	pair, err := issuer.IssuePair(context.Background(), testUser())
	require.NoError(t, err)

	claims, err := issuer.Consume(context.Background(), pair.Refresh)
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:refresh:"+claims.ID))

	_, err = issuer.Consume(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestRefreshTokenExpiresInStore(t *testing.T) {
	issuer, mr := setupIssuer(t, WithRefreshTTL(time.Hour))
	pair, err := issuer.IssuePair(context.Background(), testUser())
	require.NoError(t, err)
	claims, err := issuer.Parse(pair.Refresh, TypeRefresh)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, mr.TTL("test:refresh:"+claims.ID))
}

func TestRevoke(t *testing.T) {
	issuer, _ := setupIssuer(t)
	pair, err := issuer.IssuePair(context.Background(), testUser())
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(context.Background(), pair.Refresh))
	_, err = issuer.Consume(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrRevoked)
}
