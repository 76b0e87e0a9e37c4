package locks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when another submission already holds the key.
var ErrBusy = errors.New("a submission for this delivery order is already in progress")

// Guard serialises submissions per key. Acquire never blocks: it either
// grants the key or returns ErrBusy.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, ErrBusy
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// RedisGuard shares held keys across processes through redislock.
type RedisGuard struct {
	locker *redislock.Client
	prefix string
	ttl    time.Duration
}

// NewRedisGuard connects to addr and verifies the connection. ttl bounds
// how long a crashed holder can keep a key.
func NewRedisGuard(ctx context.Context, addr string, ttl time.Duration) (*RedisGuard, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisGuard{locker: redislock.New(rdb), prefix: "dockout:lock", ttl: ttl}, nil
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := fmt.Sprintf("%s:%s", g.prefix, key)
	lock, err := g.locker.Obtain(ctx, lockKey, g.ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrBusy
	} else if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", lockKey, err)
	}
	return func() {
		// The submission context may already be done.
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			slog.Warn("release redis lock", slog.String("key", lockKey), slog.Any("err", err))
		}
	}, nil
}

// New returns a RedisGuard when redisAddr is set, else a MemoryGuard.
func New(ctx context.Context, redisAddr string, ttl time.Duration) (Guard, error) {
	if redisAddr == "" {
		return NewMemoryGuard(), nil
	}
	return NewRedisGuard(ctx, redisAddr, ttl)
}
