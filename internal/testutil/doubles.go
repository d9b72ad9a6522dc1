package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
	"github.com/davidleathers/benefit-auction-backend/internal/service/bidding"
)

// FakeClock is a settable Clock for deterministic timing tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ bidding.Clock = (*FakeClock)(nil)

// Notice is one recorded notification.
type Notice struct {
	Kind     string // "outbid" or "won"
	BidderID uuid.UUID
	ItemID   uuid.UUID
	Amount   values.Money
}

// RecordingDispatcher captures notifications for assertions.
type RecordingDispatcher struct {
	mu      sync.Mutex
	notices []Notice
}

func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{}
}

func (d *RecordingDispatcher) EnqueueOutbidNotice(ctx context.Context, bidderID, itemID uuid.UUID, newMinimumBid values.Money) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, Notice{Kind: "outbid", BidderID: bidderID, ItemID: itemID, Amount: newMinimumBid})
}

func (d *RecordingDispatcher) EnqueueWonNotice(ctx context.Context, bidderID, itemID uuid.UUID, finalPrice values.Money) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, Notice{Kind: "won", BidderID: bidderID, ItemID: itemID, Amount: finalPrice})
}

func (d *RecordingDispatcher) Notices() []Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Notice, len(d.notices))
	copy(out, d.notices)
	return out
}

var _ bidding.NotificationDispatcher = (*RecordingDispatcher)(nil)

// RecordingMetrics counts engine events for assertions.
type RecordingMetrics struct {
	mu             sync.Mutex
	Accepted       int
	Rejected       map[string]int
	BuyNows        int
	Extensions     int
	ConflictRetry  int
	DurationsTaken int
}

func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{Rejected: make(map[string]int)}
}

func (m *RecordingMetrics) RecordBidAccepted(ctx context.Context, itemID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accepted++
}

func (m *RecordingMetrics) RecordBidRejected(ctx context.Context, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected[code]++
}

func (m *RecordingMetrics) RecordBuyNow(ctx context.Context, itemID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BuyNows++
}

func (m *RecordingMetrics) RecordExtension(ctx context.Context, itemID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Extensions++
}

func (m *RecordingMetrics) RecordConflictRetry(ctx context.Context, itemID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConflictRetry++
}

func (m *RecordingMetrics) RecordBidProcessingDuration(ctx context.Context, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DurationsTaken++
}

var _ bidding.MetricsCollector = (*RecordingMetrics)(nil)
