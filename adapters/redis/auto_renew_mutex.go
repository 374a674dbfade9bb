package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

type autoRenewMutexOptions struct {
	prefix        string
	renewInterval time.Duration
	retryDelay    time.Duration
	expiry        time.Duration
	skipLockError bool
}

type AutoRenewMutexOption func(*autoRenewMutexOptions)

// WithAutoRenewMutexPrefix 設置鎖的 key 前綴
func WithAutoRenewMutexPrefix(prefix string) AutoRenewMutexOption {
	return func(o *autoRenewMutexOptions) {
		o.prefix = prefix
	}
}

// WithAutoRenewMutexRenewInterval 設置自動續期間隔
func WithAutoRenewMutexRenewInterval(d time.Duration) AutoRenewMutexOption {
	return func(o *autoRenewMutexOptions) {
		o.renewInterval = d
	}
}

// WithAutoRenewMutexRetryDelay 設置重試延遲
func WithAutoRenewMutexRetryDelay(d time.Duration) AutoRenewMutexOption {
	return func(o *autoRenewMutexOptions) {
		o.retryDelay = d
	}
}

// WithAutoRenewMutexExpiry 設置鎖過期時間
func WithAutoRenewMutexExpiry(d time.Duration) AutoRenewMutexOption {
	return func(o *autoRenewMutexOptions) {
		o.expiry = d
	}
}

// WithAutoRenewMutexSkipLockError 設置是否忽略 Redis 通訊錯誤並持續重試
func WithAutoRenewMutexSkipLockError(skip bool) AutoRenewMutexOption {
	return func(o *autoRenewMutexOptions) {
		o.skipLockError = skip
	}
}

// Locker 共用一個 redsync 實例，用來建立多把以 key 區分的自動續期鎖
type Locker struct {
	rs      *redsync.Redsync
	options autoRenewMutexOptions
}

// NewLocker 建立 Locker，所有由它建立的鎖都使用相同的選項
func NewLocker(client redis.UniversalClient, opts ...AutoRenewMutexOption) *Locker {
	options := autoRenewMutexOptions{
		expiry:     8 * time.Second,
		retryDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}
	// 未設置續期間隔時使用過期時間的1/3
	if options.renewInterval <= 0 {
		options.renewInterval = options.expiry / 3
	}
	return &Locker{
		rs:      redsync.New(goredis.NewPool(client)),
		options: options,
	}
}

// NewMutex 建立指定 key 的鎖，尚未鎖定
func (l *Locker) NewMutex(key string) IAutoRenewMutex {
	mutex := l.rs.NewMutex(
		l.options.prefix+key,
		redsync.WithExpiry(l.options.expiry),
		redsync.WithTries(1),
		redsync.WithRetryDelay(l.options.retryDelay),
	)
	return &AutoRenewMutex{Mutex: mutex, options: l.options}
}

type AutoRenewMutex struct {
	*redsync.Mutex
	cancel   context.CancelFunc
	renewing bool
	mu       sync.Mutex
	wg       sync.WaitGroup
	options  autoRenewMutexOptions
}

// Lock 持續嘗試獲取鎖直到成功或 ctx 結束，成功後啟動自動續期
// 返回的 context 會在解鎖或續期失敗時被取消
func (m *AutoRenewMutex) Lock(ctx context.Context) (context.Context, error) {
	timer := time.NewTimer(1)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			err := m.Mutex.LockContext(ctx)
			if err == nil {
				lockCtx, cancel := context.WithCancel(ctx)
				m.mu.Lock()
				m.cancel = cancel
				m.mu.Unlock()
				m.startAutoRenew(lockCtx)
				return lockCtx, nil
			}
			// 鎖被佔用時重試；Redis 通訊錯誤只有在 skipLockError 時才重試
			var commErr *redsync.RedisError
			if !m.options.skipLockError && errors.As(err, &commErr) {
				return nil, fmt.Errorf("failed to acquire lock %s: %w", m.Mutex.Name(), err)
			}
			timer.Reset(m.options.retryDelay)
		}
	}
}

// Unlock 停止自動續期並釋放鎖
func (m *AutoRenewMutex) Unlock() (bool, error) {
	m.stopAutoRenew()
	m.wg.Wait()
	return m.Mutex.Unlock()
}

// Valid 檢查鎖是否仍在持有與續期中
func (m *AutoRenewMutex) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renewing && time.Now().Before(m.Mutex.Until())
}

func (m *AutoRenewMutex) startAutoRenew(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renewing {
		return
	}
	m.renewing = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.options.renewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ok, err := m.Mutex.ExtendContext(ctx); err != nil || !ok {
					m.stopAutoRenew()
					return
				}
			}
		}
	}()
}

func (m *AutoRenewMutex) stopAutoRenew() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.renewing {
		return
	}
	m.renewing = false
	if m.cancel != nil {
		m.cancel()
	}
}
