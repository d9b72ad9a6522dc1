package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"log/slog"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
)

type captureSender struct {
	mu     sync.Mutex
	outbid []uuid.UUID
	won    []uuid.UUID
}

func (s *captureSender) SendOutbid(ctx context.Context, bidderID, itemID uuid.UUID, newMinimumBid values.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbid = append(s.outbid, bidderID)
	return nil
}

func (s *captureSender) SendWon(ctx context.Context, bidderID, itemID uuid.UUID, finalPrice values.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.won = append(s.won, bidderID)
	return nil
}

func TestDispatcher_DeliversQueuedNotices(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender, slog.New(slog.DiscardHandler), 16, 2)
	d.Start(context.Background())

	amount := values.MustNewMoneyFromInt(100, values.USD)
	itemID := uuid.New()
	loser := uuid.New()
	winner := uuid.New()

	d.EnqueueOutbidNotice(context.Background(), loser, itemID, amount)
	d.EnqueueWonNotice(context.Background(), winner, itemID, amount)
	d.Close()

	require.Len(t, sender.outbid, 1)
	assert.Equal(t, loser, sender.outbid[0])
	require.Len(t, sender.won, 1)
	assert.Equal(t, winner, sender.won[0])
}

func TestDispatcher_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	sender := &captureSender{}
	// No workers started: the queue only fills.
	d := NewDispatcher(sender, slog.New(slog.DiscardHandler), 1, 1)

	amount := values.MustNewMoneyFromInt(100, values.USD)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			d.EnqueueOutbidNotice(context.Background(), uuid.New(), uuid.New(), amount)
		}
	}()
	<-done

	d.Start(context.Background())
	d.Close()

	assert.Len(t, sender.outbid, 1, "only the buffered notice survives")
}
