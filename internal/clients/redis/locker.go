// Package redis provides the per-user scan lock. Two overlapping scan runs
// must never process the same user concurrently; a SET NX lease per user
// gives that guarantee across instances.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mverrett/ascend-backend/internal/pkg/envutil"
	"github.com/mverrett/ascend-backend/internal/platform/logger"
)

type Locker interface {
	// TryLock acquires the named lock for ttl. ok=false means another
	// holder owns it right now. The release func is safe to call once.
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
	Close() error
}

type locker struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewLocker(log *logger.Logger) (Locker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.Str("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := envutil.Str("REDIS_LOCK_PREFIX", "ascend:scanlock:")

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &locker{
		log:    log.With("client", "RedisLocker"),
		rdb:    rdb,
		prefix: strings.TrimSpace(prefix),
	}, nil
}

func (l *locker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Compare-and-delete so an expired lease never deletes a successor's
		// lock.
		const script = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`
		if err := l.rdb.Eval(context.Background(), script, []string{key}, token).Err(); err != nil {
			l.log.Warn("lock release failed", "key", key, "error", err)
		}
	}
	return release, true, nil
}

func (l *locker) Close() error { return l.rdb.Close() }
