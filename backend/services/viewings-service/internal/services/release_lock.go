package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

// SweepLocker keeps two sweeps from running at once.
type SweepLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// LocalSweepLocker only guards the current process.
type LocalSweepLocker struct {
	mu sync.Mutex
}

func NewLocalSweepLocker() *LocalSweepLocker {
	return &LocalSweepLocker{}
}

func (l *LocalSweepLocker) TryLock(_ context.Context, _ string, _ time.Duration) (func(), bool, error) {
	if !l.mu.TryLock() {
		return func() {}, false, nil
	}
	return l.mu.Unlock, true, nil
}

// Deletes the key only if it still holds our token.
var redisUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSweepLocker is a SETNX lease shared by every replica. The TTL bounds
// how long a crashed holder blocks the others.
type RedisSweepLocker struct {
	client *redis.Client
	local  LocalSweepLocker
}

func NewRedisSweepLocker(client *redis.Client) *RedisSweepLocker {
	return &RedisSweepLocker{client: client}
}

func (l *RedisSweepLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	unlockLocal, ok, _ := l.local.TryLock(ctx, key, ttl)
	if !ok {
		return func() {}, false, nil
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		unlockLocal()
		return func() {}, false, err
	}

	return func() {
		defer unlockLocal()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisUnlockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			utils.Logger.WithError(err).Warnf("Failed to release redis lock %s; it expires in %s", key, ttl)
		}
	}, true, nil
}
