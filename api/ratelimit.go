package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter 以 Redis 計數器實現固定時間窗口的限流
type RateLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

// NewRateLimiter 建立 RateLimiter，limit 小於等於 0 時不限制
func NewRateLimiter(client redis.UniversalClient, prefix string, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow 將 key 的計數加一，並回傳是否仍在限制內
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "RateLimiter.Allow"
	if r.limit <= 0 {
		return true, nil
	}
	key = r.prefix + key
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("[%s] Fail to increase counter, err=%w", op, err)
	}
	// 第一次計數時設置窗口的過期時間
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, fmt.Errorf("[%s] Fail to set counter expiry, err=%w", op, err)
		}
	}
	return count <= r.limit, nil
}

// rateLimit 依照 scope 與客戶端 IP 限流，Redis 無法使用時放行
func (impl *ServerImpl) rateLimit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := impl.limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			impl.logger.Warn("Rate limiter unavailable", slog.String("scope", scope), slog.Any("error", err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, detail(detailThrottled))
			return
		}
		c.Next()
	}
}
