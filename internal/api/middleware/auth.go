package middleware

import (
	"context"
	"strings"

	"nutrition-api/internal/infrastructure/persistence"
	"nutrition-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// gin context 中的使用者資訊
const (
	ContextUser     = "user"
	ContextUsername = "username"
)

// Authenticator 驗證 bearer token（auth.Service 實作）
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*persistence.User, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// RequireAuth 沒有合法 token 時回傳 401
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			abortWithError(c, common.ErrUnauthorized)
			return
		}

		user, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			common.LogInfo("Token validation failed",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
			)
			c.Header("WWW-Authenticate", "Bearer")
			abortWithError(c, common.AsCustomError(err))
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth 有合法 token 時載入使用者，否則以匿名身分繼續
func OptionalAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if user, err := a.Authenticate(c.Request.Context(), token); err == nil {
				setUser(c, user)
			} else {
				common.LogDebug("Optional token ignored", zap.Error(err))
			}
		}
		c.Next()
	}
}

func setUser(c *gin.Context, user *persistence.User) {
	c.Set(ContextUser, user)
	c.Set(ContextUsername, user.Username)
}

// CurrentUser 取出已驗證的使用者
func CurrentUser(c *gin.Context) (*persistence.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*persistence.User)
	return user, ok && user != nil
}
