package api

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"carlot/listing"
	"carlot/models"
)

type imageResponse struct {
	ID    uuid.UUID `json:"id"`
	Image string    `json:"image"`
	Order int       `json:"order"`
}

func newImageResponse(image models.ListingImage) imageResponse {
	return imageResponse{ID: image.ID, Image: image.URL, Order: image.Order}
}

// listingResponse 將金額與座標以十進位字串輸出
type listingResponse struct {
	*models.Listing
	Price     string          `json:"price"`
	Latitude  *string         `json:"latitude"`
	Longitude *string         `json:"longitude"`
	Images    []imageResponse `json:"images"`
}

func newListingResponse(l *models.Listing) listingResponse {
	return listingResponse{
		Listing:   l,
		Price:     strconv.FormatFloat(l.Price, 'f', 2, 64),
		Latitude:  formatCoordinate(l.Latitude),
		Longitude: formatCoordinate(l.Longitude),
		Images:    lo.Map(l.Images, func(image models.ListingImage, _ int) imageResponse { return newImageResponse(image) }),
	}
}

func formatCoordinate(v *float64) *string {
	if v == nil {
		return nil
	}
	return lo.ToPtr(strconv.FormatFloat(*v, 'f', 6, 64))
}

type pageResponse struct {
	Count    int64             `json:"count"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Results  []listingResponse `json:"results"`
}

func newPageResponse(page *listing.Page) pageResponse {
	results := make([]listingResponse, len(page.Results))
	for i := range page.Results {
		results[i] = newListingResponse(&page.Results[i])
	}
	return pageResponse{Count: page.Count, Page: page.Page, PageSize: page.PageSize, Results: results}
}

type userResponse struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	IsStaff     bool        `json:"is_staff"`
	IsSuperuser bool        `json:"is_superuser"`
	DateJoined  time.Time   `json:"date_joined"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		DateJoined:  u.CreatedAt,
	}
}
