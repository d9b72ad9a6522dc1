package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

// unlockLua deletes a lock key only if its value matches the caller's unique
// token, so an expired holder can never release a successor's lock.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// ItemLock implements bidding.ItemLocker with Redis SETNX plus a TTL and a
// Lua-based conditional unlock.
type ItemLock struct {
	rdb      *redis.Client
	unlockSc *redis.Script
}

// NewItemLock creates an ItemLock backed by the given Client.
func NewItemLock(c *Client) *ItemLock {
	return &ItemLock{
		rdb:      c.Underlying(),
		unlockSc: redis.NewScript(unlockLua),
	}
}

func lockKey(key string) string {
	return "lock:" + key
}

// Acquire attempts to take the lock for key with the given TTL. On success it
// returns an unlock function, safe to call more than once. It returns
// bidding.ErrLockHeld when another submission holds the lock.
func (l *ItemLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := lockKey(key)

	ok, err := l.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, bidding.ErrLockHeld
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true

		// Release must succeed even when the caller's context is done.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = l.unlockSc.Run(unlockCtx, l.rdb, []string{lk}, token).Err()
	}

	return unlock, nil
}

var _ bidding.ItemLocker = (*ItemLock)(nil)
