package auction

import (
	"fmt"
	"sort"

	"github.com/davidleathers/benefit-auction-backend/internal/domain/values"
)

// BidIncrementRule maps a price ceiling to the minimum step to the next valid
// bid. A nil Ceiling denotes the unbounded top tier.
type BidIncrementRule struct {
	Ceiling   *values.Money `json:"ceiling,omitempty"`
	Increment values.Money  `json:"increment"`
}

// DefaultIncrementRules returns the standard tiered schedule used when an item
// has no override configured. Amounts are in whole units of the given currency.
func DefaultIncrementRules(currency string) []BidIncrementRule {
	tier := func(ceiling, increment int64) BidIncrementRule {
		c := values.MustNewMoneyFromInt(ceiling, currency)
		return BidIncrementRule{Ceiling: &c, Increment: values.MustNewMoneyFromInt(increment, currency)}
	}
	return []BidIncrementRule{
		tier(99, 5),
		tier(499, 10),
		tier(999, 25),
		tier(2499, 50),
		tier(4999, 100),
		{Increment: values.MustNewMoneyFromInt(250, currency)},
	}
}

// sortRules returns a copy of rules ordered ascending by ceiling, with the
// unbounded tier (nil ceiling) last. The copy keeps callers' slices intact and
// makes IncrementFor invariant to input ordering.
func sortRules(rules []BidIncrementRule) []BidIncrementRule {
	sorted := make([]BidIncrementRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		switch {
		case sorted[i].Ceiling == nil:
			return false
		case sorted[j].Ceiling == nil:
			return true
		default:
			return sorted[i].Ceiling.LessThan(*sorted[j].Ceiling)
		}
	})
	return sorted
}

// IncrementFor returns the minimum increment to the next valid bid at the
// given current price. Rules are defensively sorted before the scan; the last
// rule's increment is the fallback if no ceiling matches.
func IncrementFor(current values.Money, rules []BidIncrementRule) values.Money {
	if len(rules) == 0 {
		// Guarded against by ValidateIncrementRules at item creation.
		return values.Zero(current.Currency())
	}

	sorted := sortRules(rules)
	for _, r := range sorted {
		if r.Ceiling == nil || current.Compare(*r.Ceiling) <= 0 {
			return r.Increment
		}
	}
	return sorted[len(sorted)-1].Increment
}

// ValidateIncrementRules rejects malformed schedules eagerly, at item setup
// time rather than bid time.
func ValidateIncrementRules(rules []BidIncrementRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("increment schedule must contain at least one rule")
	}

	unbounded := 0
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if !r.Increment.IsPositive() {
			return fmt.Errorf("rule %d: increment must be positive", i)
		}
		if r.Ceiling == nil {
			unbounded++
			continue
		}
		if !r.Ceiling.IsPositive() {
			return fmt.Errorf("rule %d: ceiling must be positive", i)
		}
		key := r.Ceiling.Amount().String()
		if seen[key] {
			return fmt.Errorf("rule %d: duplicate ceiling %s", i, r.Ceiling)
		}
		seen[key] = true
	}
	if unbounded > 1 {
		return fmt.Errorf("increment schedule may contain at most one unbounded tier")
	}

	return nil
}
