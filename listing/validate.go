package listing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"carlot/models"
	"carlot/validation"
)

// MinYear 是可刊登車輛的最早年份
const MinYear = 1950

// normalize 整理輸入值：清理描述中的 HTML、VIN 轉大寫、空 VIN 視為未提供
func (s *Service) normalize(l *models.Listing) {
	l.Title = strings.TrimSpace(l.Title)
	l.Description = s.sanitizer.Sanitize(l.Description)
	if l.VIN != nil {
		vin := validation.NormalizeVIN(*l.VIN)
		if vin == "" {
			l.VIN = nil
		} else {
			l.VIN = &vin
		}
	}
}

// validate 檢查刊登的欄位規則與資料庫中的關聯，errs 內已有的錯誤會一併返回
// 欄位錯誤以 *ValidationError 返回，其他錯誤代表查詢失敗
func (s *Service) validate(tx *gorm.DB, l *models.Listing, errs validation.Errors) error {
	const op = "validate"

	structErrs, err := validation.Struct(l)
	if err != nil {
		return fmt.Errorf("[%s] %w", op, err)
	}
	for field, messages := range structErrs {
		// 欄位已經因為缺少或型別錯誤被記錄時，不再重複回報零值的錯誤
		if errs.Has(field) {
			continue
		}
		for _, message := range messages {
			errs.Add(field, message)
		}
	}

	if !errs.Has("year") {
		maxYear := s.now().Year() + 1
		switch {
		case l.Year < MinYear:
			errs.Add("year", fmt.Sprintf("Ensure this value is greater than or equal to %d.", MinYear))
		case l.Year > maxYear:
			errs.Add("year", fmt.Sprintf("Ensure this value is less than or equal to %d.", maxYear))
		}
	}
	if !errs.Has("price") && !hasDecimalPlaces(l.Price, 2) {
		errs.Add("price", "Ensure that there are no more than 2 decimal places.")
	}
	for field, v := range map[string]*float64{"latitude": l.Latitude, "longitude": l.Longitude} {
		if v != nil && !errs.Has(field) && !hasDecimalPlaces(*v, 6) {
			errs.Add(field, "Ensure that there are no more than 6 decimal places.")
		}
	}

	// 有地址時必須同時有經緯度
	if l.Address != "" {
		if l.Latitude == nil {
			errs.Add("latitude", msgCoordsRequired)
		}
		if l.Longitude == nil {
			errs.Add("longitude", msgCoordsRequired)
		}
	}

	if err := checkReferences(tx, l, errs); err != nil {
		return fmt.Errorf("[%s] %w", op, err)
	}

	if l.VIN != nil && !errs.Has("vin") {
		var count int64
		if err := tx.Model(&models.Listing{}).Where("vin = ? AND id <> ?", *l.VIN, l.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("[%s] Fail to check vin, err=%w", op, err)
		}
		if count > 0 {
			errs.Add("vin", msgVINTaken)
		}
	}

	return errs.Err()
}

// checkReferences 檢查每個外鍵指向的資料是否存在，以及車型是否屬於所選品牌
func checkReferences(tx *gorm.DB, l *models.Listing, errs validation.Errors) error {
	refs := []struct {
		field string
		model any
		id    *uuid.UUID
	}{
		{"seller", &models.User{}, &l.SellerID},
		{"category", &models.Category{}, &l.CategoryID},
		{"brand", &models.Brand{}, &l.BrandID},
		{"city", &models.City{}, &l.CityID},
		{"fuel_type", &models.FuelType{}, &l.FuelTypeID},
		{"transmission", &models.TransmissionType{}, &l.TransmissionID},
		{"body_type", &models.BodyType{}, l.BodyTypeID},
		{"drive_type", &models.DriveType{}, l.DriveTypeID},
	}
	for _, ref := range refs {
		if ref.id == nil || *ref.id == uuid.Nil || errs.Has(ref.field) {
			continue
		}
		var count int64
		if err := tx.Model(ref.model).Where("id = ?", *ref.id).Count(&count).Error; err != nil {
			return fmt.Errorf("Fail to check %s, err=%w", ref.field, err)
		}
		if count == 0 {
			errs.Add(ref.field, invalidPK(*ref.id))
		}
	}

	if l.CarModelID == uuid.Nil || errs.Has("model") {
		return nil
	}
	var carModel models.CarModel
	if err := tx.Select("id", "brand_id").First(&carModel, "id = ?", l.CarModelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			errs.Add("model", invalidPK(l.CarModelID))
			return nil
		}
		return fmt.Errorf("Fail to check model, err=%w", err)
	}
	if !errs.Has("brand") && carModel.BrandID != l.BrandID {
		errs.Add("model", msgModelMismatch)
	}
	return nil
}

func invalidPK(id uuid.UUID) string {
	return fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", id)
}

// hasDecimalPlaces 檢查 v 的小數位數是否不超過 places
func hasDecimalPlaces(v float64, places int) bool {
	scaled := v * math.Pow10(places)
	return math.Abs(scaled-math.Round(scaled)) < 1e-3
}
