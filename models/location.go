package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Region 代表地區(州、省)
type Region struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name" validate:"required,max=100"`
}

func (r *Region) BeforeCreate(tx *gorm.DB) error { return assignID(&r.ID) }
func (r *Region) EntryID() uuid.UUID { return r.ID }
func (r *Region) SetEntryID(id uuid.UUID) { r.ID = id }
func (r *Region) Children() []Reference {
	return []Reference{{&City{}, "region_id"}}
}

// City 代表地區內的城市，經緯度用於地圖上的城市標記
type City struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RegionID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_city_region_name" json:"region" validate:"required"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_city_region_name" json:"name" validate:"required,max=100"`
	Latitude  *float64  `gorm:"type:numeric(9,6)" json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64  `gorm:"type:numeric(9,6)" json:"longitude" validate:"omitempty,gte=-180,lte=180"`

	Region *Region `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (c *City) BeforeCreate(tx *gorm.DB) error { return assignID(&c.ID) }
func (c *City) EntryID() uuid.UUID { return c.ID }
func (c *City) SetEntryID(id uuid.UUID) { c.ID = id }
func (c *City) ParentRef() (any, uuid.UUID, string) {
	return &Region{}, c.RegionID, "region"
}
func (c *City) ReferencedBy() []Reference {
	return []Reference{{&Listing{}, "city_id"}}
}
