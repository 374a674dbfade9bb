package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"carlot/models"
	"carlot/validation"
)

// Nullable 區分 JSON 中「未提供」、「null」與「有值」三種情況
// 解碼失敗時不中斷整個請求，而是標記 Invalid 由驗證階段回報
type Nullable[T any] struct {
	Set     bool
	Value   *T
	Invalid bool
}

// Some 建立有值的 Nullable
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null 建立明確為 null 的 Nullable
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	n.Value = nil
	n.Invalid = false
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	// 表單送出的空字串在關聯欄位上視為 null
	if _, isID := any(*new(T)).(uuid.UUID); isID && bytes.Equal(data, []byte(`""`)) {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		n.Invalid = true
		return nil
	}
	n.Value = &v
	return nil
}

// Decimal 接受 JSON 數字或數字字串，例如 12345 或 "12345.00"
type Decimal float64

func (d *Decimal) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid decimal %q", raw)
	}
	*d = Decimal(v)
	return nil
}

// Input 是建立或修改刊登時客戶端可寫入的欄位
// 唯讀欄位如 id、created_at、expires_at 會被忽略
type Input struct {
	Title        Nullable[string]               `json:"title"`
	Description  Nullable[string]               `json:"description"`
	Price        Nullable[Decimal]              `json:"price"`
	Year         Nullable[int]                  `json:"year"`
	Mileage      Nullable[int]                  `json:"mileage"`
	Category     Nullable[uuid.UUID]            `json:"category"`
	Brand        Nullable[uuid.UUID]            `json:"brand"`
	Model        Nullable[uuid.UUID]            `json:"model"`
	City         Nullable[uuid.UUID]            `json:"city"`
	FuelType     Nullable[uuid.UUID]            `json:"fuel_type"`
	Transmission Nullable[uuid.UUID]            `json:"transmission"`
	BodyType     Nullable[uuid.UUID]            `json:"body_type"`
	DriveType    Nullable[uuid.UUID]            `json:"drive_type"`
	EngineCC     Nullable[int]                  `json:"engine_cc"`
	PowerHP      Nullable[int]                  `json:"power_hp"`
	Color        Nullable[string]               `json:"color"`
	EuroStandard Nullable[string]               `json:"euro_standard"`
	VIN          Nullable[string]               `json:"vin"`
	VideoURL     Nullable[string]               `json:"video_url"`
	Address      Nullable[string]               `json:"address"`
	Latitude     Nullable[Decimal]              `json:"latitude"`
	Longitude    Nullable[Decimal]              `json:"longitude"`
	Status       Nullable[models.ListingStatus] `json:"status"`
	IsActive     Nullable[bool]                 `json:"is_active"`
	Seller       Nullable[uuid.UUID]            `json:"seller"`
}

// apply 將輸入套用到 l，required 為 true 時(建立或 PUT)必填欄位缺少會記錄錯誤
func (in *Input) apply(l *models.Listing, required bool, errs validation.Errors) {
	setValue(errs, "title", in.Title, required, &l.Title)
	setValue(errs, "description", in.Description, false, &l.Description)
	setDecimal(errs, "price", in.Price, required, &l.Price)
	setValue(errs, "year", in.Year, required, &l.Year)
	setValue(errs, "mileage", in.Mileage, false, &l.Mileage)
	setValue(errs, "category", in.Category, required, &l.CategoryID)
	setValue(errs, "brand", in.Brand, required, &l.BrandID)
	setValue(errs, "model", in.Model, required, &l.CarModelID)
	setValue(errs, "city", in.City, required, &l.CityID)
	setValue(errs, "fuel_type", in.FuelType, required, &l.FuelTypeID)
	setValue(errs, "transmission", in.Transmission, required, &l.TransmissionID)
	setPointer(errs, "body_type", in.BodyType, &l.BodyTypeID)
	setPointer(errs, "drive_type", in.DriveType, &l.DriveTypeID)
	setPointer(errs, "engine_cc", in.EngineCC, &l.EngineCC)
	setPointer(errs, "power_hp", in.PowerHP, &l.PowerHP)
	setValue(errs, "color", in.Color, false, &l.Color)
	setValue(errs, "euro_standard", in.EuroStandard, false, &l.EuroStandard)
	setPointer(errs, "vin", in.VIN, &l.VIN)
	setValue(errs, "video_url", in.VideoURL, false, &l.VideoURL)
	setValue(errs, "address", in.Address, false, &l.Address)
	setDecimalPointer(errs, "latitude", in.Latitude, &l.Latitude)
	setDecimalPointer(errs, "longitude", in.Longitude, &l.Longitude)
	setValue(errs, "is_active", in.IsActive, false, &l.IsActive)
	setValue(errs, "seller", in.Seller, false, &l.SellerID)

	// 狀態值不論請求者身分都要先檢查是否合法
	if in.Status.Set && in.Status.Value != nil && !in.Status.Value.Valid() {
		errs.Add("status", fmt.Sprintf("\"%s\" is not a valid choice.", *in.Status.Value))
		return
	}
	setValue(errs, "status", in.Status, false, &l.Status)
}

func setValue[T any](errs validation.Errors, field string, n Nullable[T], required bool, dst *T) {
	switch {
	case n.Invalid:
		errs.Add(field, invalidMessage[T]())
	case !n.Set:
		if required {
			errs.Add(field, validation.MsgRequired)
		}
	case n.Value == nil:
		errs.Add(field, validation.MsgNull)
	default:
		*dst = *n.Value
	}
}

func setPointer[T any](errs validation.Errors, field string, n Nullable[T], dst **T) {
	switch {
	case n.Invalid:
		errs.Add(field, invalidMessage[T]())
	case !n.Set:
	case n.Value == nil:
		*dst = nil
	default:
		v := *n.Value
		*dst = &v
	}
}

func setDecimal(errs validation.Errors, field string, n Nullable[Decimal], required bool, dst *float64) {
	d := Decimal(*dst)
	setValue(errs, field, n, required, &d)
	*dst = float64(d)
}

func setDecimalPointer(errs validation.Errors, field string, n Nullable[Decimal], dst **float64) {
	d := (*Decimal)(*dst)
	setPointer(errs, field, n, &d)
	*dst = (*float64)(d)
}

func invalidMessage[T any]() string {
	var zero T
	switch any(zero).(type) {
	case int:
		return "A valid integer is required."
	case Decimal:
		return "A valid number is required."
	case bool:
		return "Must be a valid boolean."
	case uuid.UUID:
		return "Must be a valid UUID."
	}
	return "Not a valid string."
}
