package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carlot/api/token"
	"carlot/listing"
	"carlot/models"
)

const userKey = "user"

// authenticate 解析 Bearer token 並載入使用者
// 沒有提供 token 時視為匿名使用者，token 無效或使用者不存在時回應 401
func (impl *ServerImpl) authenticate(c *gin.Context) {
	const op = "authenticate"
	header := c.GetHeader("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		c.Next()
		return
	}
	claims, err := impl.issuer.Parse(strings.TrimSpace(tokenString), token.TypeAccess)
	if err != nil {
		impl.logger.Debug("Fail to parse access token", slog.String("op", op), slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailInvalidToken, "code": "token_not_valid"})
		return
	}
	userID, _ := claims.UserID()
	var user models.User
	if err := impl.db.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User not found", "code": "user_not_found"})
			return
		}
		impl.renderError(c, op, err)
		c.Abort()
		return
	}
	c.Set(userKey, &user)
	c.Next()
}

// requireUser 拒絕匿名使用者
func (impl *ServerImpl) requireUser(c *gin.Context) {
	if currentUser(c) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, detail(detailUnauthenticated))
		return
	}
	c.Next()
}

// requireStaff 只允許管理人員
func (impl *ServerImpl) requireStaff(c *gin.Context) {
	p := principal(c)
	if !p.Authenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, detail(detailUnauthenticated))
		return
	}
	if !p.IsModerator() {
		c.AbortWithStatusJSON(http.StatusForbidden, detail(detailPermissionDenied))
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

func principal(c *gin.Context) *listing.Principal {
	return listing.PrincipalOf(currentUser(c))
}
