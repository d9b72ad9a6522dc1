package auction

import "time"

// ExtendForBid applies the anti-sniping policy after a bid (not buy-now) has
// been durably accepted: a bid landing inside the configured window before
// close pushes the close time out to acceptedAt plus the window. The close
// time never moves backward.
//
// MaxExtensions caps how many times one item may extend; zero means no cap.
// Returns true when the close time was pushed.
func ExtendForBid(item *Item, acceptedAt time.Time) bool {
	if item.AntiSnipingWindow <= 0 {
		return false
	}
	if item.MaxExtensions > 0 && item.Extensions >= item.MaxExtensions {
		return false
	}
	if acceptedAt.Before(item.ClosesAt.Add(-item.AntiSnipingWindow)) {
		return false
	}

	extended := acceptedAt.Add(item.AntiSnipingWindow)
	if !extended.After(item.ClosesAt) {
		return false
	}

	item.ClosesAt = extended
	item.Extensions++
	return true
}
