package rest

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// BidderLimiter throttles submissions per bidder. Idle entries are evicted so
// the map does not grow with every bidder the process has ever seen.
type BidderLimiter struct {
	mu       sync.Mutex
	limiters map[uuid.UUID]*limiterEntry
	rps      rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewBidderLimiter creates a per-bidder rate limiter. A non-positive rps
// disables limiting and returns nil.
func NewBidderLimiter(requestsPerSecond, burst int) *BidderLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = requestsPerSecond
	}
	l := &BidderLimiter{
		limiters: make(map[uuid.UUID]*limiterEntry),
		rps:      rate.Limit(requestsPerSecond),
		burst:    burst,
	}
	go l.evictLoop()
	return l
}

func (l *BidderLimiter) allow(bidderID uuid.UUID) bool {
	l.mu.Lock()
	entry, ok := l.limiters[bidderID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[bidderID] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

func (l *BidderLimiter) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		l.mu.Lock()
		for id, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, id)
			}
		}
		l.mu.Unlock()
	}
}
