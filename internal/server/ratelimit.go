package server

import (
	"context"
	"math"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"golang.org/x/time/rate"
)

const RateLimited = "RATE_LIMIT"

// 令牌桶，容量为两秒的配额
type tokenBucket struct {
	limiter *rate.Limiter
	now     func() time.Time
}

func newTokenBucket(rps float64) *tokenBucket {
	if rps <= 0 {
		rps = 1
	}
	burst := int(math.Max(1, math.Floor(rps*2)))
	return &tokenBucket{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		now:     time.Now,
	}
}

func (b *tokenBucket) allow() bool {
	return b.limiter.AllowN(b.now(), 1)
}

// limiterMiddleware rejects requests with 429 once the bucket is empty.
func limiterMiddleware(b *tokenBucket) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			if !b.allow() {
				return nil, errors.New(429, RateLimited, "rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
