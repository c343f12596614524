package book

import (
	"sort"
	"sync"

	"github.com/luxfi/tradefabric/pkg/decimal"
)

// AggregatedLevel is a price/quantity level attributed to the venue it came
// from. Levels at the same price from different venues are never merged.
type AggregatedLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Venue    string
}

// Aggregated merges per-venue book snapshots into a cross-venue top-of-book
// and depth ladder for one symbol. AddOrderbook replaces any prior snapshot
// recorded for that venue.
type Aggregated struct {
	mu     sync.RWMutex
	symbol string
	books  map[string]Snapshot // keyed by venue name
}

// NewAggregated creates an empty aggregator for symbol.
func NewAggregated(symbol string) *Aggregated {
	return &Aggregated{symbol: symbol, books: make(map[string]Snapshot)}
}

// AddOrderbook records or replaces the snapshot for book's venue.
func (a *Aggregated) AddOrderbook(b *Book) {
	snap := b.Snapshot()
	a.mu.Lock()
	a.books[snap.Venue] = snap
	a.mu.Unlock()
}

// BestBid returns the (price, venue, qty) with globally maximal bid price,
// ties broken by venue name lexicographically ascending.
func (a *Aggregated) BestBid() (AggregatedLevel, bool) {
	return a.best(true)
}

// BestAsk returns the (price, venue, qty) with globally minimal ask price,
// ties broken by venue name lexicographically ascending.
func (a *Aggregated) BestAsk() (AggregatedLevel, bool) {
	return a.best(false)
}

func (a *Aggregated) best(bidSide bool) (AggregatedLevel, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result AggregatedLevel
	found := false
	for venue, snap := range a.books {
		levels := snap.Asks
		if bidSide {
			levels = snap.Bids
		}
		if len(levels) == 0 {
			continue
		}
		top := levels[0]
		for _, lvl := range levels[1:] {
			if bidSide && lvl.Price.GreaterThan(top.Price) {
				top = lvl
			}
			if !bidSide && lvl.Price.LessThan(top.Price) {
				top = lvl
			}
		}

		cand := AggregatedLevel{Price: top.Price, Quantity: top.Quantity, Venue: venue}
		switch {
		case !found:
			result, found = cand, true
		case bidSide && cand.Price.GreaterThan(result.Price):
			result = cand
		case !bidSide && cand.Price.LessThan(result.Price):
			result = cand
		case cand.Price.Equal(result.Price) && cand.Venue < result.Venue:
			result = cand
		}
	}
	return result, found
}

// AggregatedBids returns every venue's bid levels, globally sorted
// descending by price (ties broken by venue name for determinism).
func (a *Aggregated) AggregatedBids() []AggregatedLevel {
	return a.aggregatedSide(true)
}

// AggregatedAsks returns every venue's ask levels, globally sorted
// ascending by price.
func (a *Aggregated) AggregatedAsks() []AggregatedLevel {
	return a.aggregatedSide(false)
}

func (a *Aggregated) aggregatedSide(bidSide bool) []AggregatedLevel {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []AggregatedLevel
	for venue, snap := range a.books {
		levels := snap.Asks
		if bidSide {
			levels = snap.Bids
		}
		for _, lvl := range levels {
			out = append(out, AggregatedLevel{Price: lvl.Price, Quantity: lvl.Quantity, Venue: venue})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Price.Equal(out[j].Price) {
			if bidSide {
				return out[i].Price.GreaterThan(out[j].Price)
			}
			return out[i].Price.LessThan(out[j].Price)
		}
		return out[i].Venue < out[j].Venue
	})
	return out
}

// BestVenueBuy scans aggregated asks ascending price and returns the first
// venue whose own cumulative ask depth (not cross-venue) supplies at least
// qty, along with the price reached walking that venue's book alone. This
// mirrors the source behavior of checking a single venue's depth per leg
// rather than pooling liquidity across venues (see DESIGN.md).
func (a *Aggregated) BestVenueBuy(qty decimal.Decimal) (venue string, price decimal.Decimal, ok bool) {
	return a.bestVenueFill(qty, false)
}

// BestVenueSell is the mirror of BestVenueBuy over bids.
func (a *Aggregated) BestVenueSell(qty decimal.Decimal) (venue string, price decimal.Decimal, ok bool) {
	return a.bestVenueFill(qty, true)
}

func (a *Aggregated) bestVenueFill(qty decimal.Decimal, bidSide bool) (string, decimal.Decimal, bool) {
	levels := a.aggregatedSide(bidSide)

	byVenue := make(map[string][]AggregatedLevel)
	for _, lvl := range levels {
		byVenue[lvl.Venue] = append(byVenue[lvl.Venue], lvl)
	}

	// levels is already price-sorted globally; the first venue encountered
	// whose own levels can satisfy qty wins, scanned in that global order.
	seen := make(map[string]bool)
	for _, lvl := range levels {
		if seen[lvl.Venue] {
			continue
		}
		seen[lvl.Venue] = true

		remaining := qty
		var reached decimal.Decimal
		for _, vl := range byVenue[lvl.Venue] {
			if !remaining.IsPositive() {
				break
			}
			consumed := decimal.Min(vl.Quantity, remaining)
			remaining = remaining.Sub(consumed)
			reached = vl.Price
		}
		if !remaining.IsPositive() {
			return lvl.Venue, reached, true
		}
	}
	return "", decimal.Zero, false
}
