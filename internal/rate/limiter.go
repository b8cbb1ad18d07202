// Package rate limita intentos de connect por tenant. Amortigua loops de
// redirect del provider y scripts que martillan el callback; no reemplaza la
// protección de borde.
package rate

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es el veredicto de un chequeo de límite.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter decide si un intento identificado por key puede proceder.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// AttemptKey arma la key de límite de un intento de connect.
func AttemptKey(tenantID string) string { return "connect:" + tenantID }

// RedisLimiter: ventana fija INCR+EXPIRE. Suficiente para el volumen de
// callbacks OAuth; no necesitamos sliding window acá.
type RedisLimiter struct {
	client *rdb.Client
	prefix string
	max    int64
	window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, prefix: prefix, max: int64(max), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := l.prefix + key

	hits, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, err
	}
	if hits == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, err
		}
	}

	if hits > l.max {
		ttl, _ := l.client.TTL(ctx, redisKey).Result()
		if ttl < 0 {
			ttl = l.window
		}
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}
	return Result{Allowed: true, Remaining: l.max - hits}, nil
}
