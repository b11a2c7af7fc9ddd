package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"nutrition-api/internal/infrastructure/config"
	"nutrition-api/internal/infrastructure/persistence"
	"nutrition-api/internal/pkg/common"

	"go.uber.org/zap"
)

const minPasswordLength = 6

// UserStore 使用者儲存（persistence.Repository 實作）
type UserStore interface {
	CreateUser(ctx context.Context, user *persistence.User, allergenNames []string) error
	FindUserByUsername(ctx context.Context, username string) (*persistence.User, error)
}

// RegisterRequest 註冊資料
type RegisterRequest struct {
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Weight    float64  `json:"weight"`
	Height    float64  `json:"height"`
	Sex       string   `json:"sex"`
	Age       int      `json:"age"`
	Goal      string   `json:"goal"`
	Allergens []string `json:"allergens"`
}

// Token 登入回應
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service 註冊、登入與 token 驗證
type Service struct {
	store      UserStore
	tokens     *TokenManager
	bcryptCost int
}

// NewService 建立認證服務
func NewService(store UserStore, cfg config.AuthConfig) *Service {
	return &Service{
		store:      store,
		tokens:     NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		bcryptCost: cfg.BcryptCost,
	}
}

// Register 使用者名稱唯一，重複時回傳 persistence.ErrDuplicate
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*persistence.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || len(username) > 64 {
		return nil, common.ErrInvalidRequest.WithMessage("Nome de utilizador inválido.")
	}
	if len(req.Password) < minPasswordLength {
		return nil, common.ErrInvalidRequest.WithMessage("A palavra-passe deve ter pelo menos 6 caracteres.")
	}

	hashed, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}

	user := &persistence.User{
		Username:       username,
		HashedPassword: hashed,
		Weight:         req.Weight,
		Height:         req.Height,
		Sex:            strings.TrimSpace(req.Sex),
		Age:            req.Age,
		Goal:           strings.ToLower(strings.TrimSpace(req.Goal)),
	}
	if err := s.store.CreateUser(ctx, user, req.Allergens); err != nil {
		return nil, err
	}
	common.LogInfo("使用者已註冊", zap.String("username", username), zap.Int("allergens", len(user.Allergens)))
	return user, nil
}

// Login 使用者不存在與密碼錯誤回傳相同錯誤
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	user, err := s.store.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(user.HashedPassword, password) {
		common.LogWarn("登入失敗", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	signed, expires, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}
	return &Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: expires}, nil
}

// Authenticate 驗證 token 並載入使用者
func (s *Service) Authenticate(ctx context.Context, token string) (*persistence.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindUserByUsername(ctx, claims.Username())
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}
