package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Operator struct {
	// client 是 S3 客戶端。
	Client *s3.Client
	// Bucket 是 S3 存儲桶的名稱。
	Bucket string
	// PublicEndpoint 是 S3 存儲桶的公開 Endpoint。
	PublicEndpoint *url.URL
}

func NewS3Operator(client *s3.Client, bucket, publicBaseURL string) (*S3Operator, error) {
	const op = "NewS3Operator"
	publicEndpoint, err := url.Parse(publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse public base URL, err=%w", op, err)
	}
	return &S3Operator{Client: client, Bucket: bucket, PublicEndpoint: publicEndpoint}, nil
}

// Upload 將檔案上傳到 S3，並返回可公開存取的 URL
func (s *S3Operator) Upload(ctx context.Context, key, contentType string, content []byte) (string, error) {
	const op = "Upload"
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to upload file to S3, key=%s, err=%w", op, key, err)
	}
	return PublicURL(s.PublicEndpoint, key), nil
}

// Delete 從 S3 刪除檔案
func (s *S3Operator) Delete(ctx context.Context, key string) error {
	const op = "Delete"
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("[%s] Fail to delete file from S3, key=%s, err=%w", op, key, err)
	}
	return nil
}

// PublicURL 將物件的 key 接在公開 Endpoint 的路徑後面
func PublicURL(endpoint *url.URL, key string) string {
	uri := *endpoint
	uri.Path = path.Join("/", uri.Path, key)
	return uri.String()
}
