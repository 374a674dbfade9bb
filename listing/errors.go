package listing

import (
	"errors"

	"carlot/validation"
)

var (
	ErrNotFound         = errors.New("listing not found")
	ErrUnauthenticated  = errors.New("authentication credentials were not provided")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidPage      = errors.New("invalid page")

	// 上傳照片的錯誤，HTTP 層會以 detail 訊息回應
	ErrTooManyImages = errors.New("too many images")
	ErrNoImage       = errors.New("no image uploaded")
	ErrNotImage      = errors.New("only image files allowed")
	ErrImageTooLarge = errors.New("image too large")
)

// ValidationError 是欄位驗證失敗時返回的錯誤
type ValidationError = validation.Error

// MaxImages 是每筆刊登最多可上傳的照片數
const MaxImages = 15

const (
	msgVINTaken       = "listing with this vin already exists."
	msgModelMismatch  = "Selected model does not belong to the selected brand."
	msgCoordsRequired = "Latitude and longitude are required when an address is set."
)
