package indexsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another run already holds the reindex lock.
var ErrLocked = errors.New("reindex already running")

// Lock guarantees at most one reindex run per index.
type Lock interface {
	// TryAcquire takes the lock without waiting. It returns ErrLocked when
	// the lock is held elsewhere. release must be called exactly once.
	TryAcquire(ctx context.Context) (release func(), err error)
}

// LocalLock is a Lock held within a single process.
type LocalLock struct {
	mu   sync.Mutex
	held bool
}

// NewLocalLock creates an unheld LocalLock.
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// TryAcquire implements Lock.
func (l *LocalLock) TryAcquire(context.Context) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, ErrLocked
	}
	l.held = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}, nil
}

// redisLocker is the subset of *redis.Client used by RedisLock.
type redisLocker interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// releaseScript deletes the key only if it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RedisLock is a Lock shared by every process using the same Redis. The key
// expires after ttl so a crashed holder cannot block reindexing forever.
type RedisLock struct {
	client redisLocker
	key    string
	ttl    time.Duration
}

// NewRedisLock creates a RedisLock on key.
func NewRedisLock(client redisLocker, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, key: key, ttl: ttl}
}

// TryAcquire implements Lock.
func (l *RedisLock) TryAcquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire reindex lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err()
		})
	}, nil
}
