package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store 實現了 IStore 介面，提供基於 Redis hash 並帶有過期時間的資料儲存
type Store struct {
	client  redis.UniversalClient
	options StoreOptions
}

// StoreOptions 定義了 Store 的配置選項
type StoreOptions struct {
	Prefix string
}

type StoreOption func(*StoreOptions)

// WithStorePrefix 設定 Store 的 key 前綴
func WithStorePrefix(prefix string) StoreOption {
	return func(o *StoreOptions) {
		o.Prefix = prefix
	}
}

// NewStore 建立一個新的 Store 實例
func NewStore(client redis.UniversalClient, opts ...StoreOption) *Store {
	options := StoreOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return &Store{client: client, options: options}
}

// Load 從 Redis 中載入指定名稱的資料，不存在時返回空的 map
func (s *Store) Load(ctx context.Context, name string) (map[string]string, error) {
	const op = "redis.Store.Load"
	result, err := s.client.HGetAll(ctx, s.options.Prefix+name).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get hash: %w", op, err)
	}
	return result, nil
}

// saveScript 原子性地覆寫 hash 並設定過期時間
//
//	KEYS[1] - hash 的 key
//	ARGV[1] - 過期時間(毫秒)，0 代表不過期
//	ARGV[2:] - 欄位與值
var saveScript = redis.NewScript(`
local key = KEYS[1]
redis.call('DEL', key)
if #ARGV > 1 then
    redis.call('HSET', key, unpack(ARGV, 2))
    local ttl = tonumber(ARGV[1])
    if ttl > 0 then
        redis.call('PEXPIRE', key, ttl)
    end
end
return 1
`)

// Save 將資料儲存到 Redis 中
// NOTE: 會先刪除舊的資料再設定新的資料，整個過程是原子性的
func (s *Store) Save(ctx context.Context, name string, data map[string]string, ttl time.Duration) error {
	const op = "redis.Store.Save"
	args := make([]any, 0, len(data)*2+1)
	args = append(args, ttl.Milliseconds())
	for k, v := range data {
		args = append(args, k, v)
	}
	if err := saveScript.Run(ctx, s.client, []string{s.options.Prefix + name}, args...).Err(); err != nil {
		return fmt.Errorf("%s: failed to execute save script: %w", op, err)
	}
	return nil
}

// takeScript 讀取 hash 後立即刪除，保證同一份資料只會被取出一次
var takeScript = redis.NewScript(`
local key = KEYS[1]
local data = redis.call('HGETALL', key)
redis.call('DEL', key)
return data
`)

// Take 取出並刪除指定名稱的資料，不存在時返回空的 map
func (s *Store) Take(ctx context.Context, name string) (map[string]string, error) {
	const op = "redis.Store.Take"
	values, err := takeScript.Run(ctx, s.client, []string{s.options.Prefix + name}).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to execute take script: %w", op, err)
	}
	result := make(map[string]string, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		result[values[i]] = values[i+1]
	}
	return result, nil
}

// Delete 刪除指定名稱的資料
func (s *Store) Delete(ctx context.Context, name string) error {
	const op = "redis.Store.Delete"
	if err := s.client.Del(ctx, s.options.Prefix+name).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete hash: %w", op, err)
	}
	return nil
}
