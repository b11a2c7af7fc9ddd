package auth

import (
	"errors"
	"fmt"
	"time"

	"nutrition-api/internal/pkg/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "nutrition-api"

// 認證錯誤
var (
	ErrInvalidCredentials = common.ErrInvalidCredentials
	ErrInvalidToken       = common.ErrUnauthorized.WithMessage("Sessão inválida ou expirada.")
)

// Claims JWT 內容，sub 為使用者名稱
type Claims struct {
	jwt.RegisteredClaims
}

// Username 取出 sub
func (c *Claims) Username() string { return c.Subject }

// TokenManager HS256 簽發與驗證
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager ttl <= 0 時使用 30 天
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue 回傳 token 與到期時間
func (m *TokenManager) Issue(username string) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse 任何驗證失敗都回傳 ErrInvalidToken
func (m *TokenManager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken.Wrap(errors.New("token has no subject"))
	}
	return claims, nil
}
