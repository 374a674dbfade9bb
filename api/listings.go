package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carlot/listing"
)

// parseID 解析路徑上的 uuid，格式錯誤時視為不存在
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusNotFound, detail(detailNotFound))
		return uuid.Nil, false
	}
	return id, true
}

// List listings
// (GET /api/listings)
func (impl *ServerImpl) ListListings(c *gin.Context) {
	const op = "ListListings"
	filter, err := listing.ParseFilter(c.Request.URL.Query())
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	page, err := impl.listings.List(c.Request.Context(), principal(c), filter)
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newPageResponse(page))
}

// Create a listing
// (POST /api/listings)
func (impl *ServerImpl) CreateListing(c *gin.Context) {
	const op = "CreateListing"
	var in listing.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		renderBindError(c, err)
		return
	}
	l, err := impl.listings.Create(c.Request.Context(), principal(c), in)
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/listings/%s", l.ID))
	c.JSON(http.StatusCreated, newListingResponse(l))
}

// Get listing details
// (GET /api/listings/{id})
func (impl *ServerImpl) GetListing(c *gin.Context) {
	const op = "GetListing"
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	l, err := impl.listings.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(l))
}

// Replace a listing
// (PUT /api/listings/{id})
func (impl *ServerImpl) UpdateListing(c *gin.Context) {
	impl.updateListing(c, "UpdateListing", false)
}

// Update part of a listing
// (PATCH /api/listings/{id})
func (impl *ServerImpl) PartialUpdateListing(c *gin.Context) {
	impl.updateListing(c, "PartialUpdateListing", true)
}

func (impl *ServerImpl) updateListing(c *gin.Context, op string, partial bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in listing.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		renderBindError(c, err)
		return
	}
	l, err := impl.listings.Update(c.Request.Context(), principal(c), id, in, partial)
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(l))
}

// Delete a listing
// (DELETE /api/listings/{id})
func (impl *ServerImpl) DeleteListing(c *gin.Context) {
	const op = "DeleteListing"
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := impl.listings.Delete(c.Request.Context(), principal(c), id); err != nil {
		impl.renderError(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Upload a listing image
// (POST /api/listings/{id}/upload_image)
func (impl *ServerImpl) UploadListingImage(c *gin.Context) {
	const op = "UploadListingImage"
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	// 沒有檔案時交給服務層判斷，數量上限的檢查優先於缺少檔案
	var upload *listing.Upload
	header, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		c.JSON(http.StatusBadRequest, detail("Multipart form parse error - "+err.Error()))
		return
	default:
		file, err := header.Open()
		if err != nil {
			impl.renderError(c, op, err)
			return
		}
		defer file.Close()
		upload = &listing.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	}
	image, err := impl.listings.UploadImage(c.Request.Context(), principal(c), id, upload)
	if err != nil {
		impl.renderError(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, newImageResponse(*image))
}

// Delete a listing image
// (DELETE /api/listings/{id}/images/{image_id})
func (impl *ServerImpl) DeleteListingImage(c *gin.Context) {
	const op = "DeleteListingImage"
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "image_id")
	if !ok {
		return
	}
	if err := impl.listings.DeleteImage(c.Request.Context(), principal(c), id, imageID); err != nil {
		impl.renderError(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}
