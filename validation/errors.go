package validation

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Errors 以欄位名稱對應該欄位的錯誤訊息
type Errors map[string][]string

// Add 加入一則欄位錯誤，相同訊息只會保留一次
func (e Errors) Add(field, message string) {
	if slices.Contains(e[field], message) {
		return
	}
	e[field] = append(e[field], message)
}

// Merge 將 other 的錯誤併入 e
func (e Errors) Merge(other Errors) {
	for field, messages := range other {
		for _, message := range messages {
			e.Add(field, message)
		}
	}
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Err 沒有任何錯誤時返回 nil，否則返回 *Error
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return &Error{Fields: e}
}

// Error 代表一組欄位驗證錯誤，HTTP 層會將它輸出為 400
type Error struct {
	Fields Errors
}

func (e *Error) Error() string {
	fields := lo.Keys(e.Fields)
	slices.Sort(fields)
	return "invalid fields: " + strings.Join(fields, ", ")
}

// Field 建立只包含單一欄位錯誤的 *Error
func Field(field, message string) *Error {
	errs := Errors{}
	errs.Add(field, message)
	return &Error{Fields: errs}
}
