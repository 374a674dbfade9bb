package redis

import (
	"context"
	"time"
)

// IStore 定義了以 Redis hash 儲存短期資料(例如 refresh token)的介面
type IStore interface {
	Load(ctx context.Context, name string) (map[string]string, error)
	Save(ctx context.Context, name string, data map[string]string, ttl time.Duration) error
	Take(ctx context.Context, name string) (map[string]string, error)
	Delete(ctx context.Context, name string) error
}

// IProducer 定義了 Producer 的操作介面
type IProducer[T any] interface {
	Start()
	Publish(data T) error
	Close()
}

// IAutoRenewMutex 定義了 AutoRenewMutex 的操作介面
type IAutoRenewMutex interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
	Valid() bool
}
