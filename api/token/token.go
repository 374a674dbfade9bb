// Package token 簽發與驗證 EdDSA(Ed25519) 簽章的 access/refresh JWT
package token

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	redisAdapter "carlot/adapters/redis"
	"carlot/models"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("token is invalid or expired")
	ErrRevoked      = errors.New("token has been revoked")
)

// Claims 是 token 內容，Subject 為使用者 id、ID(jti) 用於撤銷 refresh token
type Claims struct {
	Username    string      `json:"username"`
	Role        models.Role `json:"role"`
	IsStaff     bool        `json:"is_staff"`
	IsSuperuser bool        `json:"is_superuser"`
	Type        string      `json:"token_type"`
	jwt.RegisteredClaims
}

// UserID 返回 Subject 代表的使用者 id
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Pair 是一組簽發給使用者的 token
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type options struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*options)

// WithIssuerName 設置 iss 欄位
func WithIssuerName(issuer string) Option {
	return func(o *options) {
		if issuer != "" {
			o.issuer = issuer
		}
	}
}

// WithAccessTTL 設置 access token 有效期間，非正數時沿用預設值
func WithAccessTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.accessTTL = d
		}
	}
}

// WithRefreshTTL 設置 refresh token 有效期間
func WithRefreshTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.refreshTTL = d
		}
	}
}

// WithClock 設置取得目前時間的函數
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

type Issuer struct {
	key     crypto.Signer
	store   redisAdapter.IStore
	options options
}

// NewIssuer 建立 Issuer，store 用來記錄尚未使用的 refresh token
func NewIssuer(key crypto.Signer, store redisAdapter.IStore, opts ...Option) *Issuer {
	o := options{
		issuer:     "carlot",
		accessTTL:  5 * time.Minute,
		refreshTTL: 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Issuer{key: key, store: store, options: o}
}

// IssuePair 為使用者簽發 access 與 refresh token
func (i *Issuer) IssuePair(ctx context.Context, u *models.User) (*Pair, error) {
	const op = "IssuePair"
	access, _, err := i.sign(u, TypeAccess, i.options.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to sign access token, err=%w", op, err)
	}
	refresh, jti, err := i.sign(u, TypeRefresh, i.options.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to sign refresh token, err=%w", op, err)
	}
	if err := i.store.Save(ctx, jti, map[string]string{"user": u.ID.String()}, i.options.refreshTTL); err != nil {
		return nil, fmt.Errorf("[%s] Fail to save refresh token, err=%w", op, err)
	}
	return &Pair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) sign(u *models.User, tokenType string, ttl time.Duration) (string, string, error) {
	now := i.options.now()
	jti := uuid.NewString()
	token := jwt.NewWithClaims(&jwt.SigningMethodEd25519{}, Claims{
		Username:    u.Username,
		Role:        u.Role,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		Type:        tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.options.issuer,
			Subject:   u.ID.String(),
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(i.key)
	return signed, jti, err
}

// Parse 驗證簽章、有效期間與 token 類型
func (i *Issuer) Parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.key.Public(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithIssuer(i.options.issuer),
		jwt.WithTimeFunc(i.options.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != tokenType {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}
	return claims, nil
}

// Consume 驗證 refresh token 並將它撤銷，同一個 refresh token 只能使用一次
func (i *Issuer) Consume(ctx context.Context, refresh string) (*Claims, error) {
	const op = "Consume"
	claims, err := i.Parse(refresh, TypeRefresh)
	if err != nil {
		return nil, err
	}
	data, err := i.store.Take(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to take refresh token, err=%w", op, err)
	}
	if data["user"] != claims.Subject {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke 撤銷尚未使用的 refresh token
func (i *Issuer) Revoke(ctx context.Context, refresh string) error {
	claims, err := i.Parse(refresh, TypeRefresh)
	if err != nil {
		return err
	}
	return i.store.Delete(ctx, claims.ID)
}
