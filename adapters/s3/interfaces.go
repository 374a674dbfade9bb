//go:generate mockgen -package=s3 -destination=mock.go -source=interfaces.go

package s3

import "context"

// IBlobStore 定義了圖片等二進位檔案的儲存介面
type IBlobStore interface {
	Upload(ctx context.Context, key, contentType string, content []byte) (string, error)
	Delete(ctx context.Context, key string) error
}
