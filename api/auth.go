package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"carlot/api/token"
	"carlot/models"
	"carlot/validation"
)

const msgUsernameTaken = "A user with that username already exists."

type registerRequest struct {
	Username string      `json:"username" validate:"required,max=150"`
	Password string      `json:"password" validate:"required,min=8,max=128"`
	Email    string      `json:"email" validate:"omitempty,email,max=254"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=buyer seller"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// bindAndValidate 解析 JSON 並檢查欄位，失敗時已寫入回應
func (impl *ServerImpl) bindAndValidate(c *gin.Context, op string, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		renderBindError(c, err)
		return false
	}
	errs, err := validation.Struct(req)
	if err != nil {
		impl.renderError(c, op, err)
		return false
	}
	if err := errs.Err(); err != nil {
		impl.renderError(c, op, err)
		return false
	}
	return true
}

// Register a new user
// (POST /auth/register)
func (impl *ServerImpl) Register(c *gin.Context) {
	const op = "Register"
	var req registerRequest
	if !impl.bindAndValidate(c, op, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleBuyer
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	user := models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	db := impl.db.WithContext(c.Request.Context())
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		impl.renderError(c, op, err)
		return
	}
	if count > 0 {
		impl.renderError(c, op, validation.Field("username", msgUsernameTaken))
		return
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = validation.Field("username", msgUsernameTaken)
		}
		impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(&user))
}

// Obtain a token pair
// (POST /auth/login)
func (impl *ServerImpl) Login(c *gin.Context) {
	const op = "Login"
	var req loginRequest
	if !impl.bindAndValidate(c, op, &req) {
		return
	}
	var user models.User
	if err := impl.db.WithContext(c.Request.Context()).First(&user, "username = ?", req.Username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, detail(detailBadCredentials))
			return
		}
		impl.renderError(c, op, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, detail(detailBadCredentials))
		return
	}
	pair, err := impl.issuer.IssuePair(c.Request.Context(), &user)
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Rotate a refresh token
// (POST /auth/refresh)
func (impl *ServerImpl) Refresh(c *gin.Context) {
	const op = "Refresh"
	var req refreshRequest
	if !impl.bindAndValidate(c, op, &req) {
		return
	}
	claims, err := impl.issuer.Consume(c.Request.Context(), req.Refresh)
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	// 重新載入使用者，讓新的 token 帶有最新的角色
	userID, _ := claims.UserID()
	var user models.User
	if err := impl.db.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = token.ErrInvalidToken
		}
		impl.renderError(c, op, err)
		return
	}
	pair, err := impl.issuer.IssuePair(c.Request.Context(), &user)
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Verify a token
// (POST /auth/verify)
func (impl *ServerImpl) Verify(c *gin.Context) {
	const op = "Verify"
	var req verifyRequest
	if !impl.bindAndValidate(c, op, &req) {
		return
	}
	if _, err := impl.issuer.Parse(req.Token, token.TypeAccess); err != nil {
		if _, err := impl.issuer.Parse(req.Token, token.TypeRefresh); err != nil {
			impl.renderError(c, op, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Get current user
// (GET /auth/me)
func (impl *ServerImpl) Me(c *gin.Context) {
	c.JSON(http.StatusOK, newUserResponse(currentUser(c)))
}
