// Package testutil provides in-memory collaborators for service-level tests:
// stores, a single-process item locker, a fake clock, and recording doubles
// for the notification and metrics ports.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/auction"
	"github.com/davidleathers/benefit-auction-backend/internal/domain/errors"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

// MemoryItemStore is an in-memory ItemStore with version-checked saves.
type MemoryItemStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]auction.Item

	// SaveHook, when set, runs before each save under the store lock. Tests
	// use it to inject version conflicts.
	SaveHook func(item *auction.Item) error
}

func NewMemoryItemStore() *MemoryItemStore {
	return &MemoryItemStore{items: make(map[uuid.UUID]auction.Item)}
}

func (s *MemoryItemStore) Create(ctx context.Context, item *auction.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = *item
	return nil
}

func (s *MemoryItemStore) GetByID(ctx context.Context, id uuid.UUID) (*auction.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, errors.ErrItemNotFound
	}
	copied := item
	return &copied, nil
}

func (s *MemoryItemStore) Save(ctx context.Context, item *auction.Item, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveHook != nil {
		if err := s.SaveHook(item); err != nil {
			return err
		}
	}

	stored, ok := s.items[item.ID]
	if !ok {
		return errors.ErrItemNotFound
	}
	if stored.Version != expectedVersion {
		return errors.NewVersionConflictError()
	}

	item.Version = expectedVersion + 1
	item.UpdatedAt = time.Now().UTC()
	s.items[item.ID] = *item
	return nil
}

func (s *MemoryItemStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for id, item := range s.items {
		if item.Status == auction.StatusOpen && !now.Before(item.ClosesAt) {
			ids = append(ids, id)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

var _ bidding.ItemStore = (*MemoryItemStore)(nil)

// MemoryBidHistory is an in-memory append-only BidHistoryStore.
type MemoryBidHistory struct {
	mu   sync.RWMutex
	bids []*auction.Bid
}

func NewMemoryBidHistory() *MemoryBidHistory {
	return &MemoryBidHistory{}
}

func (s *MemoryBidHistory) Append(ctx context.Context, b *auction.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *b
	s.bids = append(s.bids, &copied)
	return nil
}

func (s *MemoryBidHistory) MarkOutbid(ctx context.Context, bidID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bids {
		if b.ID == bidID {
			b.MarkOutbid()
			return nil
		}
	}
	return errors.ErrBidNotFound
}

func (s *MemoryBidHistory) LatestWinning(ctx context.Context, itemID, bidderID uuid.UUID) (*auction.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.bids) - 1; i >= 0; i-- {
		b := s.bids[i]
		if b.ItemID == itemID && b.BidderID == bidderID && b.Status == auction.BidStatusWinning {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryBidHistory) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*auction.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*auction.Bid
	for _, b := range s.bids {
		if b.ItemID == itemID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

var _ bidding.BidHistoryStore = (*MemoryBidHistory)(nil)

// MemoryLocker is a single-process ItemLocker: one holder per key, others get
// bidding.ErrLockHeld and back off the way they would against redis.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, bidding.ErrLockHeld
	}
	l.held[key] = true

	released := false
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if !released {
			released = true
			delete(l.held, key)
		}
	}, nil
}

var _ bidding.ItemLocker = (*MemoryLocker)(nil)
