package listing

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carlot/models"
	"carlot/validation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// 可排序的欄位，key 為查詢參數中的名稱
var orderingFields = map[string]string{
	"created_at": "created_at",
	"price":      "price",
	"year":       "year",
	"mileage":    "mileage",
}

// 完全比對的外鍵篩選，key 為查詢參數名稱，value 為欄位名稱
var referenceFilters = []struct {
	param  string
	column string
}{
	{"category", "category_id"},
	{"brand", "brand_id"},
	{"model", "model_id"},
	{"city", "city_id"},
	{"fuel_type", "fuel_type_id"},
	{"transmission", "transmission_id"},
	{"body_type", "body_type_id"},
	{"drive_type", "drive_type_id"},
}

// OrderField 代表一個排序條件
type OrderField struct {
	Column string
	Desc   bool
}

// Filter 是刊登列表的篩選、搜尋、排序與分頁條件
type Filter struct {
	References map[string]uuid.UUID
	Year       *int
	Status     *models.ListingStatus
	IsActive   *bool
	PriceMin   *float64
	PriceMax   *float64
	YearMin    *int
	YearMax    *int
	MileageMax *int
	Search     string
	Ordering   []OrderField
	Page       int
	PageSize   int
}

// ParseFilter 解析查詢參數，空值視為未提供，格式錯誤時返回以參數名稱為 key 的 *ValidationError
func ParseFilter(query url.Values) (Filter, error) {
	f := Filter{
		References: map[string]uuid.UUID{},
		Page:       1,
		PageSize:   DefaultPageSize,
	}
	errs := validation.Errors{}

	for _, ref := range referenceFilters {
		raw := strings.TrimSpace(query.Get(ref.param))
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			errs.Add(ref.param, fmt.Sprintf("\"%s\" is not a valid UUID.", raw))
			continue
		}
		f.References[ref.column] = id
	}

	f.Year = parseInt(query, "year", errs)
	f.YearMin = parseInt(query, "year_min", errs)
	f.YearMax = parseInt(query, "year_max", errs)
	f.MileageMax = parseInt(query, "mileage_max", errs)
	f.PriceMin = parseNumber(query, "price_min", errs)
	f.PriceMax = parseNumber(query, "price_max", errs)

	if raw := query.Get("status"); raw != "" {
		status := models.ListingStatus(raw)
		if status.Valid() {
			f.Status = &status
		} else {
			errs.Add("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw))
		}
	}
	if raw := query.Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			errs.Add("is_active", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw))
		} else {
			f.IsActive = &active
		}
	}

	f.Search = strings.TrimSpace(query.Get("search"))
	f.Ordering = parseOrdering(query.Get("ordering"))

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return f, ErrInvalidPage
		}
		f.Page = page
	}
	// 不合法的 page_size 直接使用預設值
	if size, err := strconv.Atoi(query.Get("page_size")); err == nil && size > 0 {
		f.PageSize = min(size, MaxPageSize)
	}

	return f, errs.Err()
}

func parseInt(query url.Values, param string, errs validation.Errors) *int {
	raw := strings.TrimSpace(query.Get(param))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(param, "Enter a whole number.")
		return nil
	}
	return &v
}

func parseNumber(query url.Values, param string, errs validation.Errors) *float64 {
	raw := strings.TrimSpace(query.Get(param))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		errs.Add(param, "Enter a number.")
		return nil
	}
	return &v
}

// parseOrdering 解析以逗號分隔的排序欄位，忽略不支援的欄位
func parseOrdering(raw string) []OrderField {
	var fields []OrderField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		column, ok := orderingFields[strings.TrimPrefix(part, "-")]
		if !ok {
			continue
		}
		fields = append(fields, OrderField{Column: column, Desc: desc})
	}
	if len(fields) == 0 {
		return []OrderField{{Column: "created_at", Desc: true}}
	}
	return fields
}

// Scope 套用篩選與搜尋條件
func (f Filter) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, ref := range referenceFilters {
			if id, ok := f.References[ref.column]; ok {
				db = db.Where(ref.column+" = ?", id)
			}
		}
		if f.Year != nil {
			db = db.Where("year = ?", *f.Year)
		}
		if f.Status != nil {
			db = db.Where("status = ?", *f.Status)
		}
		if f.IsActive != nil {
			db = db.Where("is_active = ?", *f.IsActive)
		}
		if f.PriceMin != nil {
			db = db.Where("price >= ?", *f.PriceMin)
		}
		if f.PriceMax != nil {
			db = db.Where("price <= ?", *f.PriceMax)
		}
		if f.YearMin != nil {
			db = db.Where("year >= ?", *f.YearMin)
		}
		if f.YearMax != nil {
			db = db.Where("year <= ?", *f.YearMax)
		}
		if f.MileageMax != nil {
			db = db.Where("mileage <= ?", *f.MileageMax)
		}
		if f.Search != "" {
			pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
			db = db.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		return db
	}
}

// Order 套用排序條件，最後以 id 排序讓分頁結果穩定
func (f Filter) Order() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		ordering := f.Ordering
		if len(ordering) == 0 {
			ordering = parseOrdering("")
		}
		columns := make([]clause.OrderByColumn, 0, len(ordering)+1)
		for _, o := range ordering {
			columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
		}
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
		return db.Order(clause.OrderBy{Columns: columns})
	}
}

// Offset 回傳目前頁面的起始位置
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
