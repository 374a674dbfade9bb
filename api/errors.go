package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"carlot/api/token"
	"carlot/catalog"
	"carlot/listing"
	"carlot/validation"
)

const (
	detailUnauthenticated  = "Authentication credentials were not provided."
	detailPermissionDenied = "You do not have permission to perform this action."
	detailNotFound         = "Not found."
	detailInvalidPage      = "Invalid page."
	detailInvalidToken     = "Token is invalid or expired"
	detailBadCredentials   = "No active account found with the given credentials"
	detailThrottled        = "Request was throttled."
	detailInternal         = "Internal server error."
	detailProtected        = "Cannot delete some instances of model because they are referenced through protected foreign keys."
)

// imageDetails 是上傳照片失敗時的訊息
var imageDetails = map[error]string{
	listing.ErrTooManyImages: "Max 15 images per listing.",
	listing.ErrNoImage:       "No image uploaded.",
	listing.ErrNotImage:      "Only image files allowed.",
	listing.ErrImageTooLarge: "Max image size is 8MB.",
}

func detail(message string) gin.H {
	return gin.H{"detail": message}
}

// renderError 將服務層錯誤對應成 HTTP 回應，未知的錯誤記錄後以 500 回應
func (impl *ServerImpl) renderError(c *gin.Context, op string, err error) {
	var fieldErr *validation.Error
	switch {
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusBadRequest, fieldErr.Fields)
	case errors.Is(err, listing.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, detail(detailUnauthenticated))
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrRevoked):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": detailInvalidToken, "code": "token_not_valid"})
	case errors.Is(err, listing.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, detail(detailPermissionDenied))
	case errors.Is(err, listing.ErrInvalidPage):
		c.JSON(http.StatusNotFound, detail(detailInvalidPage))
	case errors.Is(err, listing.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, detail(detailNotFound))
	case errors.Is(err, catalog.ErrProtected):
		c.JSON(http.StatusBadRequest, detail(detailProtected))
	default:
		for target, message := range imageDetails {
			if errors.Is(err, target) {
				c.JSON(http.StatusBadRequest, detail(message))
				return
			}
		}
		impl.logger.Error("Unexpected error", slog.String("op", op), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, detail(detailInternal))
	}
}

// renderBindError 回應無法解析的請求內容
func renderBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, detail("JSON parse error - "+err.Error()))
}
