package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListingStatus string

const (
	StatusPending  ListingStatus = "pending"
	StatusApproved ListingStatus = "approved"
	StatusRejected ListingStatus = "rejected"
	StatusExpired  ListingStatus = "expired"
)

// ListingStatuses 是所有合法的刊登狀態
var ListingStatuses = []ListingStatus{StatusPending, StatusApproved, StatusRejected, StatusExpired}

func (s ListingStatus) Valid() bool {
	for _, status := range ListingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ListingLifetime 是刊登建立後預設的有效期間
const ListingLifetime = 45 * 24 * time.Hour

// Listing 代表賣家刊登的一台待售車輛
// 包含車款、地點、價格、技術規格以及審核狀態
type Listing struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"seller"`
	CategoryID     uuid.UUID     `gorm:"type:uuid;not null" json:"category" validate:"required"`
	BrandID        uuid.UUID     `gorm:"type:uuid;not null;index:idx_listing_brand_model" json:"brand" validate:"required"`
	CarModelID     uuid.UUID     `gorm:"column:model_id;type:uuid;not null;index:idx_listing_brand_model" json:"model" validate:"required"`
	CityID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"city" validate:"required"`
	Title          string        `gorm:"type:varchar(120);not null" json:"title" validate:"required,max=120"`
	Description    string        `gorm:"type:text;not null" json:"description"`
	Price          float64       `gorm:"type:numeric(10,2);not null;index" json:"price" validate:"gt=0,lt=100000000"`
	Year           int           `gorm:"type:smallint;not null;index" json:"year"`
	Mileage        int           `gorm:"type:integer;not null" json:"mileage" validate:"gte=0"`
	FuelTypeID     uuid.UUID     `gorm:"type:uuid;not null" json:"fuel_type" validate:"required"`
	TransmissionID uuid.UUID     `gorm:"type:uuid;not null" json:"transmission" validate:"required"`
	BodyTypeID     *uuid.UUID    `gorm:"type:uuid" json:"body_type"`
	DriveTypeID    *uuid.UUID    `gorm:"type:uuid" json:"drive_type"`
	EngineCC       *int          `gorm:"type:integer" json:"engine_cc" validate:"omitempty,gte=0"`
	PowerHP        *int          `gorm:"type:integer" json:"power_hp" validate:"omitempty,gte=0"`
	Color          string        `gorm:"type:varchar(40);not null" json:"color" validate:"max=40"`
	EuroStandard   string        `gorm:"type:varchar(10);not null" json:"euro_standard" validate:"max=10"`
	VideoURL       string        `gorm:"type:varchar(200);not null" json:"video_url" validate:"omitempty,url,max=200"`
	Status         ListingStatus `gorm:"type:varchar(10);not null;index:idx_listing_status_active" json:"status"`
	IsActive       bool          `gorm:"not null;index:idx_listing_status_active" json:"is_active"`
	CreatedAt      time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	ExpiresAt      *time.Time    `json:"expires_at"`
	VIN            *string       `gorm:"column:vin;type:varchar(20);uniqueIndex" json:"vin" validate:"omitempty,vin"`
	Address        string        `gorm:"type:varchar(255);not null" json:"address" validate:"max=255"`
	Latitude       *float64      `gorm:"type:numeric(9,6);index:idx_listing_coordinates" json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64      `gorm:"type:numeric(9,6);index:idx_listing_coordinates" json:"longitude" validate:"omitempty,gte=-180,lte=180"`

	// 外鍵關聯
	Seller       *User             `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"-"`
	Category     *Category         `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Brand        *Brand            `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	CarModel     *CarModel         `gorm:"foreignKey:CarModelID;constraint:OnDelete:RESTRICT" json:"-"`
	City         *City             `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	FuelType     *FuelType         `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Transmission *TransmissionType `gorm:"foreignKey:TransmissionID;constraint:OnDelete:RESTRICT" json:"-"`
	BodyType     *BodyType         `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	DriveType    *DriveType        `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Images       []ListingImage    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	return assignID(&l.ID)
}

// Visible 回傳刊登是否對一般使用者公開
func (l *Listing) Visible() bool {
	return l.Status == StatusApproved && l.IsActive
}

// ListingImage 代表刊登的一張照片，依 Order 由小到大排列
type ListingImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ListingID uuid.UUID `gorm:"type:uuid;not null;index:idx_listing_image_order"`
	URL       string    `gorm:"column:image;type:text;not null"`
	Key       string    `gorm:"type:text;not null"`
	Order     int       `gorm:"column:sort_order;type:smallint;not null;index:idx_listing_image_order"`
	CreatedAt time.Time
}

func (i *ListingImage) BeforeCreate(tx *gorm.DB) error {
	return assignID(&i.ID)
}
