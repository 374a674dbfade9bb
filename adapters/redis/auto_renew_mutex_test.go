package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocker_Options(t *testing.T) {
	_, client := setupMiniredis(t)

	locker := NewLocker(client)
	assert.Equal(t, 8*time.Second, locker.options.expiry)
	assert.Equal(t, locker.options.expiry/3, locker.options.renewInterval)

	locker = NewLocker(client,
		WithAutoRenewMutexPrefix("lock:"),
		WithAutoRenewMutexExpiry(3*time.Second),
		WithAutoRenewMutexRenewInterval(time.Second),
		WithAutoRenewMutexRetryDelay(10*time.Millisecond),
		WithAutoRenewMutexSkipLockError(true),
	)
	assert.Equal(t, "lock:", locker.options.prefix)
	assert.Equal(t, time.Second, locker.options.renewInterval)
	assert.True(t, locker.options.skipLockError)
}

func TestAutoRenewMutex_LockUnlock(t *testing.T) {
	mr, client := setupMiniredis(t)
	locker := NewLocker(client, WithAutoRenewMutexPrefix("lock:"))

	mutex := locker.NewMutex("listing-1")
	lockCtx, err := mutex.Lock(context.Background())
	require.NoError(t, err)
	require.NotNil(t, lockCtx)
	assert.True(t, mr.Exists("lock:listing-1"))
	assert.True(t, mutex.Valid())

	ok, err := mutex.Unlock()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("lock:listing-1"))
	assert.False(t, mutex.Valid())

	select {
	case <-lockCtx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Error("lock context was not cancelled after unlock")
	}
}

func TestAutoRenewMutex_ContextCancelled(t *testing.T) {
	_, client := setupMiniredis(t)
	mutex := NewLocker(client).NewMutex("k")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lockCtx, err := mutex.Lock(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, lockCtx)
}

func TestAutoRenewMutex_WaitsForHolder(t *testing.T) {
	_, client := setupMiniredis(t)
	locker := NewLocker(client, WithAutoRenewMutexRetryDelay(10*time.Millisecond))

	first := locker.NewMutex("shared")
	_, err := first.Lock(context.Background())
	require.NoError(t, err)

	// 第二把鎖在第一把釋放前應一直等待
	second := locker.NewMutex("shared")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan error, 1)
	go func() {
		_, err := second.Lock(context.Background())
		acquired <- err
	}()

	time.Sleep(50 * time.Millisecond)
	_, err = first.Unlock()
	require.NoError(t, err)

	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second mutex was not acquired after release")
	}
	_, err = second.Unlock()
	assert.NoError(t, err)
}

func TestAutoRenewMutex_RenewKeepsLock(t *testing.T) {
	mr, client := setupMiniredis(t)
	locker := NewLocker(client,
		WithAutoRenewMutexExpiry(time.Second),
		WithAutoRenewMutexRenewInterval(50*time.Millisecond),
	)

	mutex := locker.NewMutex("renew")
	_, err := mutex.Lock(context.Background())
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	assert.True(t, mutex.Valid())
	assert.True(t, mr.TTL("renew") > 0)

	ok, err := mutex.Unlock()
	assert.NoError(t, err)
	assert.True(t, ok)
}
