package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davidleathers/benefit-auction-backend/internal/infrastructure/config"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

func newTestLock(t *testing.T) (*ItemLock, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client, err := NewClient(&config.RedisConfig{URL: srv.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewItemLock(client), srv
}

func TestItemLock_AcquireAndRelease(t *testing.T) {
	lock, _ := newTestLock(t)
	ctx := context.Background()

	unlock, err := lock.Acquire(ctx, "auction:item:a", time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, "auction:item:a", time.Minute)
	assert.ErrorIs(t, err, bidding.ErrLockHeld)

	// A different item is never blocked.
	other, err := lock.Acquire(ctx, "auction:item:b", time.Minute)
	require.NoError(t, err)
	other()

	unlock()
	unlock() // idempotent

	again, err := lock.Acquire(ctx, "auction:item:a", time.Minute)
	require.NoError(t, err)
	again()
}

func TestItemLock_ExpiryFreesTheKey(t *testing.T) {
	lock, srv := newTestLock(t)
	ctx := context.Background()

	_, err := lock.Acquire(ctx, "auction:item:a", time.Second)
	require.NoError(t, err)

	srv.FastForward(2 * time.Second)

	unlock, err := lock.Acquire(ctx, "auction:item:a", time.Second)
	require.NoError(t, err)
	unlock()
}

func TestItemLock_StaleUnlockKeepsSuccessorLock(t *testing.T) {
	lock, srv := newTestLock(t)
	ctx := context.Background()

	staleUnlock, err := lock.Acquire(ctx, "auction:item:a", time.Second)
	require.NoError(t, err)

	srv.FastForward(2 * time.Second)

	_, err = lock.Acquire(ctx, "auction:item:a", time.Minute)
	require.NoError(t, err)

	// The expired holder's unlock must not release the new holder's lock.
	staleUnlock()

	_, err = lock.Acquire(ctx, "auction:item:a", time.Minute)
	assert.ErrorIs(t, err, bidding.ErrLockHeld)
}
