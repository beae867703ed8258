package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "session:lock:%d"
	lockRetryInterval  = 25 * time.Millisecond
)

// ErrStateLocked indicates the distributed lock could not be taken before the context ended.
var ErrStateLocked = errors.New("session is locked, try again later")

// keyedMutex serialises work per user id and forgets idle keys.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*keyedEntry)}
}

// Lock blocks until the key is free or ctx is done.
func (k *keyedMutex) Lock(ctx context.Context, key int64) error {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, entry)
		return ctx.Err()
	}
}

func (k *keyedMutex) Unlock(key int64) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		return
	}

	<-entry.ch
	k.release(key, entry)
}

func (k *keyedMutex) release(key int64, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// redisLock is a SetNX lock that only its owner can release.
type redisLock struct {
	client *redis.Client
	ttl    time.Duration
}

// acquire polls SetNX until it wins or ctx ends, and returns the owner token.
func (l *redisLock) acquire(ctx context.Context, userID int64) (string, error) {
	key := fmt.Sprintf(userLockKeyPattern, userID)
	owner := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("%w: %w", ErrStateLocked, ctxErr)
			}
			return "", fmt.Errorf("acquire session lock: %w", err)
		}
		if acquired {
			return owner, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrStateLocked, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *redisLock) release(ctx context.Context, userID int64, owner string) error {
	key := fmt.Sprintf(userLockKeyPattern, userID)
	return unlockScript.Run(ctx, l.client, []string{key}, owner).Err()
}
