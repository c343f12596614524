// Package book maintains per-venue order books and their cross-venue
// aggregation. A Book mirrors one (symbol, venue) pair: concurrent writers
// append levels from the owning adapter's stream, Sort coalesces and orders
// them, and readers take point-in-time Snapshots for routing and arbitrage
// decisions.
package book

import (
	"sort"
	"sync"
	"time"

	"github.com/luxfi/tradefabric/pkg/decimal"
)

// Level is a single price/quantity pair on one side of a book.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Book is a concurrency-safe per-venue order book for a single symbol.
// Writers call AddBid/AddAsk to append levels without ordering; Sort is the
// distinguished operation that orders and coalesces both sides. Readers
// calling Bids/Asks/Snapshot during a concurrent Sort see either the
// pre-sort or post-sort state, never an intermediate permutation, because
// Sort builds the new slices before swapping them in under the write lock.
type Book struct {
	mu        sync.RWMutex
	symbol    string
	venue     string
	bids      []Level
	asks      []Level
	timestamp time.Time
}

// New creates an empty book for symbol on venue.
func New(symbol, venue string) *Book {
	return &Book{symbol: symbol, venue: venue}
}

// Symbol returns the book's symbol.
func (b *Book) Symbol() string { return b.symbol }

// Venue returns the book's venue name.
func (b *Book) Venue() string { return b.venue }

// AddBid appends a bid level. Levels with non-positive price or quantity
// are rejected (silently dropped, matching the "level is rejected" edge
// case — there is no malformed-book error to surface).
func (b *Book) AddBid(price, qty decimal.Decimal) {
	if !valid(price, qty) {
		return
	}
	b.mu.Lock()
	b.bids = append(b.bids, Level{Price: price, Quantity: qty})
	b.timestamp = time.Now()
	b.mu.Unlock()
}

// AddAsk appends an ask level. Same validity rule as AddBid.
func (b *Book) AddAsk(price, qty decimal.Decimal) {
	if !valid(price, qty) {
		return
	}
	b.mu.Lock()
	b.asks = append(b.asks, Level{Price: price, Quantity: qty})
	b.timestamp = time.Now()
	b.mu.Unlock()
}

func valid(price, qty decimal.Decimal) bool {
	return price.IsPositive() && qty.IsPositive()
}

// Sort reorders bids strictly descending by price and asks strictly
// ascending, coalescing levels that share a price by summing their
// quantities. A level whose coalesced quantity is zero is removed (it
// cannot occur today since AddBid/AddAsk reject non-positive quantities,
// but coalescing is written to tolerate it regardless).
func (b *Book) Sort() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = coalesce(b.bids, true)
	b.asks = coalesce(b.asks, false)
}

func coalesce(levels []Level, descending bool) []Level {
	byPrice := make(map[string]decimal.Decimal, len(levels))
	order := make([]decimal.Decimal, 0, len(levels))
	for _, lvl := range levels {
		key := lvl.Price.String()
		if existing, ok := byPrice[key]; ok {
			byPrice[key] = existing.Add(lvl.Quantity)
		} else {
			byPrice[key] = lvl.Quantity
			order = append(order, lvl.Price)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if descending {
			return order[i].GreaterThan(order[j])
		}
		return order[i].LessThan(order[j])
	})

	out := make([]Level, 0, len(order))
	for _, price := range order {
		qty := byPrice[price.String()]
		if qty.IsZero() {
			continue
		}
		out = append(out, Level{Price: price, Quantity: qty})
	}
	return out
}

// Bids returns a copy of the current bid levels in whatever order they are
// presently stored (sorted if Sort has run since the last write, append
// order otherwise).
func (b *Book) Bids() []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Level(nil), b.bids...)
}

// Asks returns a copy of the current ask levels.
func (b *Book) Asks() []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Level(nil), b.asks...)
}

// BestBid returns the first bid level. Call after Sort for the true best;
// ok is false on an empty book.
func (b *Book) BestBid() (Level, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 {
		return Level{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the first ask level. ok is false on an empty book.
func (b *Book) BestAsk() (Level, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.asks) == 0 {
		return Level{}, false
	}
	return b.asks[0], true
}

// MidPrice returns (bestBid+bestAsk)/2. ok is false if either side is empty.
func (b *Book) MidPrice() (decimal.Decimal, bool) {
	bid, ok := b.BestBid()
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := b.BestAsk()
	if !ok {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.FromInt(2)), true
}

// Spread returns bestAsk-bestBid. ok is false if either side is empty.
func (b *Book) Spread() (decimal.Decimal, bool) {
	bid, ok := b.BestBid()
	if !ok {
		return decimal.Zero, false
	}
	ask, ok := b.BestAsk()
	if !ok {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price), true
}

// SpreadPercent returns Spread as a percentage of the best ask price.
func (b *Book) SpreadPercent() (decimal.Decimal, bool) {
	spread, ok := b.Spread()
	if !ok {
		return decimal.Zero, false
	}
	ask, _ := b.BestAsk()
	if ask.Price.IsZero() {
		return decimal.Zero, false
	}
	return spread.Div(ask.Price).Mul(decimal.FromInt(100)), true
}

// BidDepth returns up to n best bid levels.
func (b *Book) BidDepth(n int) []Level {
	return depth(b.Bids(), n)
}

// AskDepth returns up to n best ask levels.
func (b *Book) AskDepth(n int) []Level {
	return depth(b.Asks(), n)
}

func depth(levels []Level, n int) []Level {
	if n < 0 || n > len(levels) {
		n = len(levels)
	}
	return levels[:n]
}

// BidLiquidity sums quantity across every bid level.
func (b *Book) BidLiquidity() decimal.Decimal {
	return sumQty(b.Bids())
}

// AskLiquidity sums quantity across every ask level.
func (b *Book) AskLiquidity() decimal.Decimal {
	return sumQty(b.Asks())
}

func sumQty(levels []Level) decimal.Decimal {
	total := decimal.Zero
	for _, lvl := range levels {
		total = total.Add(lvl.Quantity)
	}
	return total
}

// VWAPBuy walks asks ascending, consuming the lesser of each level's
// quantity and the remaining demand, and returns the quantity-weighted
// average price paid for qty units. ok is false if total ask liquidity is
// insufficient to fill qty (insufficient-liquidity, not an error).
func (b *Book) VWAPBuy(qty decimal.Decimal) (decimal.Decimal, bool) {
	return vwap(b.Asks(), qty)
}

// VWAPSell is the mirror of VWAPBuy over bids descending.
func (b *Book) VWAPSell(qty decimal.Decimal) (decimal.Decimal, bool) {
	return vwap(b.Bids(), qty)
}

func vwap(levels []Level, qty decimal.Decimal) (decimal.Decimal, bool) {
	if !qty.IsPositive() {
		return decimal.Zero, false
	}
	remaining := qty
	spent := decimal.Zero
	for _, lvl := range levels {
		if !remaining.IsPositive() {
			break
		}
		consumed := decimal.Min(lvl.Quantity, remaining)
		spent = spent.Add(lvl.Price.Mul(consumed))
		remaining = remaining.Sub(consumed)
	}
	if remaining.IsPositive() {
		return decimal.Zero, false
	}
	return spent.Div(qty), true
}

// HasLiquidity reports whether side can fill qty without running past the
// last known level.
func (b *Book) HasLiquidity(side string, qty decimal.Decimal) bool {
	var levels []Level
	if side == "buy" {
		levels = b.Asks()
	} else {
		levels = b.Bids()
	}
	return sumQty(levels).GreaterThanOrEqual(qty)
}

// Snapshot is an immutable, independently owned view of a book at a point
// in time: no pointers into the book's internal slices, so callbacks and
// aggregators that hold one never observe a later mutation.
type Snapshot struct {
	Symbol    string
	Venue     string
	Bids      []Level
	Asks      []Level
	Timestamp time.Time
}

// Snapshot copies out a value-type view of the book suitable for handing to
// the aggregator or an arbitrage callback.
func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		Symbol:    b.symbol,
		Venue:     b.venue,
		Bids:      append([]Level(nil), b.bids...),
		Asks:      append([]Level(nil), b.asks...),
		Timestamp: b.timestamp,
	}
}
