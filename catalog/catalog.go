// Package catalog 提供品牌、車型、燃料類型、地區等參考資料的查詢與維護
// 所有操作以泛型實作，T 為 models 中的參考資料型別
package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carlot/models"
	"carlot/validation"
)

var (
	ErrNotFound  = errors.New("catalog entry not found")
	ErrProtected = errors.New("catalog entry is still referenced")
)

// Entry 限制型別參數為參考資料的指標型別
type Entry[T any] interface {
	*T
	models.CatalogEntry
}

// ParentColumn 返回 T 隸屬上層資料的查詢參數與欄位名稱，沒有上層資料時返回空字串
func ParentColumn[T any, PT Entry[T]]() (param, column string) {
	entry := PT(new(T))
	parented, ok := any(entry).(models.Parented)
	if !ok {
		return "", ""
	}
	_, _, field := parented.ParentRef()
	return field, field + "_id"
}

// List 依名稱排序列出參考資料，parentID 不為 nil 時只列出隸屬該上層資料的項目
func List[T any, PT Entry[T]](ctx context.Context, db *gorm.DB, parentID *uuid.UUID) ([]T, error) {
	const op = "catalog.List"
	query := db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "name"}})
	if _, column := ParentColumn[T, PT](); column != "" && parentID != nil {
		query = query.Where(column+" = ?", *parentID)
	}
	entries := []T{}
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("[%s] Fail to list %s, err=%w", op, kindOf[T](), err)
	}
	return entries, nil
}

// Get 返回單筆參考資料
func Get[T any, PT Entry[T]](ctx context.Context, db *gorm.DB, id uuid.UUID) (*T, error) {
	return find[T, PT](db.WithContext(ctx), id)
}

func find[T any, PT Entry[T]](db *gorm.DB, id uuid.UUID) (*T, error) {
	const op = "catalog.find"
	var entry T
	if err := db.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("[%s] Fail to find %s, id=%s, err=%w", op, kindOf[T](), id, err)
	}
	return &entry, nil
}

// Create 驗證後新增參考資料，客戶端提供的 id 會被忽略
func Create[T any, PT Entry[T]](ctx context.Context, db *gorm.DB, entry PT) error {
	const op = "catalog.Create"
	entry.SetEntryID(uuid.Nil)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := check[T, PT](tx, entry); err != nil {
			return err
		}
		return translate[T](tx.Omit(clause.Associations).Create(entry).Error)
	})
	return wrap(op, err)
}

// Update 以 entry 的內容覆寫 id 指定的參考資料
func Update[T any, PT Entry[T]](ctx context.Context, db *gorm.DB, id uuid.UUID, entry PT) error {
	const op = "catalog.Update"
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := find[T, PT](tx, id); err != nil {
			return err
		}
		entry.SetEntryID(id)
		if err := check[T, PT](tx, entry); err != nil {
			return err
		}
		return translate[T](tx.Omit(clause.Associations).Save(entry).Error)
	})
	return wrap(op, err)
}

// Delete 刪除參考資料與它的下層資料，仍被刊登引用時返回 ErrProtected
func Delete[T any, PT Entry[T]](ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	const op = "catalog.Delete"
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := find[T, PT](tx, id); err != nil {
			return err
		}
		entry := PT(new(T))
		return deleteEntry(tx, entry, id)
	})
	return wrap(op, err)
}

func deleteEntry(tx *gorm.DB, entry any, id uuid.UUID) error {
	if cascading, ok := entry.(models.Cascading); ok {
		for _, child := range cascading.Children() {
			var childIDs []uuid.UUID
			if err := tx.Model(child.Model).Where(child.Column+" = ?", id).Pluck("id", &childIDs).Error; err != nil {
				return fmt.Errorf("Fail to find children, err=%w", err)
			}
			for _, childID := range childIDs {
				if err := deleteEntry(tx, child.Model, childID); err != nil {
					return err
				}
			}
		}
	}
	if protected, ok := entry.(models.Protected); ok {
		for _, ref := range protected.ReferencedBy() {
			var count int64
			if err := tx.Model(ref.Model).Where(ref.Column+" = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("Fail to count references, err=%w", err)
			}
			if count > 0 {
				return fmt.Errorf("%w: %s %s", ErrProtected, kindOfValue(entry), id)
			}
		}
	}
	if err := tx.Delete(entry, "id = ?", id).Error; err != nil {
		return fmt.Errorf("Fail to delete %s, err=%w", kindOfValue(entry), err)
	}
	return nil
}

// check 驗證欄位、上層資料是否存在以及名稱是否重複
func check[T any, PT Entry[T]](tx *gorm.DB, entry PT) error {
	trimName(entry)
	errs, err := validation.Struct(entry)
	if err != nil {
		return err
	}

	query := tx.Model(new(T)).Where("name = ? AND id <> ?", nameOf(entry), entry.EntryID())
	uniqueField, uniqueMessage := "name", fmt.Sprintf("%s with this name already exists.", kindOf[T]())
	if parented, ok := any(entry).(models.Parented); ok {
		parent, parentID, field := parented.ParentRef()
		if parentID != uuid.Nil && !errs.Has(field) {
			var count int64
			if err := tx.Model(parent).Where("id = ?", parentID).Count(&count).Error; err != nil {
				return fmt.Errorf("Fail to check %s, err=%w", field, err)
			}
			if count == 0 {
				errs.Add(field, fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", parentID))
			}
		}
		query = query.Where(field+"_id = ?", parentID)
		uniqueField, uniqueMessage = "non_field_errors", fmt.Sprintf("The fields %s, name must make a unique set.", field)
	}

	if !errs.Has("name") {
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return fmt.Errorf("Fail to check name, err=%w", err)
		}
		if count > 0 {
			errs.Add(uniqueField, uniqueMessage)
		}
	}
	return errs.Err()
}

// translate 將唯一約束錯誤轉換為欄位錯誤，處理檢查與寫入之間的競爭
func translate[T any](err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return validation.Field("name", fmt.Sprintf("%s with this name already exists.", kindOf[T]()))
	}
	return err
}

func wrap(op string, err error) error {
	var verr *validation.Error
	if err == nil || errors.As(err, &verr) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrProtected) {
		return err
	}
	return fmt.Errorf("[%s] %w", op, err)
}

func trimName(entry any) {
	v := reflect.Indirect(reflect.ValueOf(entry))
	if f := v.FieldByName("Name"); f.IsValid() && f.Kind() == reflect.String && f.CanSet() {
		f.SetString(strings.TrimSpace(f.String()))
	}
}

func nameOf(entry any) string {
	v := reflect.Indirect(reflect.ValueOf(entry))
	if f := v.FieldByName("Name"); f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return ""
}

var wordBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// kindOf 將型別名稱轉成可讀的名稱，例如 CarModel -> car model
func kindOf[T any]() string {
	return kindOfType(reflect.TypeOf((*T)(nil)).Elem())
}

func kindOfValue(v any) string {
	return kindOfType(reflect.Indirect(reflect.ValueOf(v)).Type())
}

func kindOfType(t reflect.Type) string {
	return strings.ToLower(wordBoundary.ReplaceAllString(t.Name(), "$1 $2"))
}
