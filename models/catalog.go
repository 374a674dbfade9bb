package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogEntry 由所有以名稱識別的參考資料實作(品牌、車型、燃料類型...)
type CatalogEntry interface {
	EntryID() uuid.UUID
	SetEntryID(id uuid.UUID)
}

// Parented 由隸屬於上層資料的項目實作，例如車型隸屬於品牌
type Parented interface {
	ParentRef() (parent any, id uuid.UUID, field string)
}

// Reference 描述一個引用參考資料的欄位
type Reference struct {
	Model  any
	Column string
}

// Protected 由被其他資料引用的項目實作；仍被引用時不能刪除
type Protected interface {
	ReferencedBy() []Reference
}

// Cascading 由擁有下層資料的項目實作；刪除時下層資料一併刪除
type Cascading interface {
	Children() []Reference
}

// Brand 代表車輛品牌
type Brand struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(80);not null;uniqueIndex" json:"name" validate:"required,max=80"`
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error { return assignID(&b.ID) }
func (b *Brand) EntryID() uuid.UUID { return b.ID }
func (b *Brand) SetEntryID(id uuid.UUID) { b.ID = id }
func (b *Brand) ReferencedBy() []Reference {
	return []Reference{{&Listing{}, "brand_id"}}
}
func (b *Brand) Children() []Reference {
	return []Reference{{&CarModel{}, "brand_id"}}
}

// CarModel 代表某個品牌底下的車型，同品牌內名稱唯一
type CarModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BrandID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_car_model_brand_name" json:"brand" validate:"required"`
	Name    string    `gorm:"type:varchar(80);not null;uniqueIndex:idx_car_model_brand_name" json:"name" validate:"required,max=80"`

	Brand *Brand `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (m *CarModel) BeforeCreate(tx *gorm.DB) error { return assignID(&m.ID) }
func (m *CarModel) EntryID() uuid.UUID { return m.ID }
func (m *CarModel) SetEntryID(id uuid.UUID) { m.ID = id }
func (m *CarModel) ParentRef() (any, uuid.UUID, string) {
	return &Brand{}, m.BrandID, "brand"
}
func (m *CarModel) ReferencedBy() []Reference {
	return []Reference{{&Listing{}, "model_id"}}
}

// Category 代表車輛大類，例如轎車、機車、貨車
type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"name" validate:"required,max=50"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error { return assignID(&c.ID) }
func (c *Category) EntryID() uuid.UUID { return c.ID }
func (c *Category) SetEntryID(id uuid.UUID) { c.ID = id }
func (c *Category) ReferencedBy() []Reference {
	return []Reference{{&Listing{}, "category_id"}}
}

type FuelType struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(40);not null;uniqueIndex" json:"name" validate:"required,max=40"`
}

func (f *FuelType) BeforeCreate(tx *gorm.DB) error { return assignID(&f.ID) }
func (f *FuelType) EntryID() uuid.UUID { return f.ID }
func (f *FuelType) SetEntryID(id uuid.UUID) { f.ID = id }
func (f *FuelType) ReferencedBy() []Reference {
	return []Reference{{&Listing{}, "fuel_type_id"}}
}

type TransmissionType struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(40);not null;uniqueIndex" json:"name" validate:"required,max=40"`
}

func (t *TransmissionType) BeforeCreate(tx *gorm.DB) error { return assignID(&t.ID) }
func (t *TransmissionType) EntryID() uuid.UUID { return t.ID }
func (t *TransmissionType) SetEntryID(id uuid.UUID) { t.ID = id }
func (t *TransmissionType) ReferencedBy() []Reference {
	return []Reference{{&Listing{}, "transmission_id"}}
}

type BodyType struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(40);not null;uniqueIndex" json:"name" validate:"required,max=40"`
}

func (b *BodyType) BeforeCreate(tx *gorm.DB) error { return assignID(&b.ID) }
func (b *BodyType) EntryID() uuid.UUID { return b.ID }
func (b *BodyType) SetEntryID(id uuid.UUID) { b.ID = id }
func (b *BodyType) ReferencedBy() []Reference {
	return []Reference{{&Listing{}, "body_type_id"}}
}

type DriveType struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"type:varchar(40);not null;uniqueIndex" json:"name" validate:"required,max=40"`
}

func (d *DriveType) BeforeCreate(tx *gorm.DB) error { return assignID(&d.ID) }
func (d *DriveType) EntryID() uuid.UUID { return d.ID }
func (d *DriveType) SetEntryID(id uuid.UUID) { d.ID = id }
func (d *DriveType) ReferencedBy() []Reference {
	return []Reference{{&Listing{}, "drive_type_id"}}
}
