package s3

import (
	"mime"
	"strings"
)

// MaxImageSize 是單張刊登照片允許的最大位元組數
const MaxImageSize int64 = 8 << 20

// secureImageExtensions 列出不含腳本、可以安全公開的圖片類型與副檔名
var secureImageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/webp": "webp",
}

// CheckSecureImageAndGetExtension 檢查內容偵測出的 MIME 類型是否為允許的圖片類型，並返回副檔名
func CheckSecureImageAndGetExtension(mimeType string) (bool, string) {
	ext, ok := secureImageExtensions[mimeType]
	return ok, ext
}

// IsImageContentType 檢查客戶端宣告的 Content-Type 是否屬於 image/*
func IsImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}
