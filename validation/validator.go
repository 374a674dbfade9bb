package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// 17 碼 VIN，不含容易混淆的 I、O、Q
var vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator 返回共用的 validator，錯誤欄位以 json 名稱表示，並註冊了 vin 規則
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
		// 註冊失敗代表規則寫錯，屬於程式錯誤
		if err := v.RegisterValidation("vin", func(fl validator.FieldLevel) bool {
			return ValidVIN(fl.Field().String())
		}); err != nil {
			panic(err)
		}
		instance = v
	})
	return instance
}

// ValidVIN 檢查已正規化(大寫)的 VIN 格式
func ValidVIN(vin string) bool {
	return vinPattern.MatchString(vin)
}

// NormalizeVIN 去除空白並轉為大寫
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// Struct 驗證 v 的 validate 標籤並轉換成欄位錯誤
func Struct(v any) (Errors, error) {
	errs := Errors{}
	err := Validator().Struct(v)
	if err == nil {
		return errs, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("[validation.Struct] Fail to validate, err=%w", err)
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), Message(fe))
	}
	return errs, nil
}

// Message 將單一規則錯誤轉換為使用者可讀的訊息
func Message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		if isString {
			return MsgBlank
		}
		return MsgRequired
	case "max":
		if isString {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lt":
		return fmt.Sprintf("Ensure this value is less than %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "url":
		return "Enter a valid URL."
	case "email":
		return "Enter a valid email address."
	case "vin":
		return "Enter a valid VIN: 17 characters, letters I, O and Q are not allowed."
	case "oneof":
		return fmt.Sprintf("\"%v\" is not a valid choice.", fe.Value())
	}
	return "Invalid value."
}

const (
	MsgRequired = "This field is required."
	MsgBlank    = "This field may not be blank."
	MsgNull     = "This field may not be null."
)
