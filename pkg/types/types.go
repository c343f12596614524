// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the fabric — pairs, sides,
// order lifecycle records, tickers, and balances exchanged between
// adapters, the risk manager, the trading client, and both arbitrage
// engines. It has no dependencies on internal packages, so it can be
// imported by any layer.
package types

import (
	"strings"
	"time"

	"github.com/luxfi/tradefabric/pkg/decimal"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: buy or sell.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) String() string { return string(s) }

// OrderType enumerates the supported order lifecycles.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

func (t OrderType) String() string { return string(t) }

// TimeInForce controls how long an order rests before it is cancelled.
type TimeInForce string

const (
	TIFGTC      TimeInForce = "GTC"
	TIFIOC      TimeInForce = "IOC"
	TIFFOK      TimeInForce = "FOK"
	TIFPostOnly TimeInForce = "PostOnly"
)

func (t TimeInForce) String() string { return string(t) }

// OrderStatus is the venue-reported lifecycle state of a placed order.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

func (s OrderStatus) String() string { return string(s) }

// VenueType classifies an adapter's underlying venue model.
type VenueType string

const (
	VenueNative     VenueType = "native"
	VenueCcxt       VenueType = "ccxt"
	VenueHummingbot VenueType = "hummingbot"
)

func (v VenueType) String() string { return string(v) }

// ————————————————————————————————————————————————————————————————————————
// Trading pair
// ————————————————————————————————————————————————————————————————————————

// MaxAssetLen is the maximum length, in bytes, of a base or quote asset
// token.
const MaxAssetLen = 15

// TradingPair is a parsed base/quote symbol. Both legs are ASCII tokens of
// at most MaxAssetLen bytes.
type TradingPair struct {
	Base  string
	Quote string
}

// ParsePair parses a symbol using any of the accepted separators: '-', '/',
// '_'. Returns false if no separator is found, either leg is empty,
// either leg exceeds MaxAssetLen, or either leg contains a non-ASCII byte.
func ParsePair(symbol string) (TradingPair, bool) {
	for _, sep := range []byte{'-', '/', '_'} {
		if idx := strings.IndexByte(symbol, sep); idx >= 0 {
			base, quote := symbol[:idx], symbol[idx+1:]
			if base == "" || quote == "" || len(base) > MaxAssetLen || len(quote) > MaxAssetLen {
				return TradingPair{}, false
			}
			for i := 0; i < len(symbol); i++ {
				if symbol[i] >= 0x80 {
					return TradingPair{}, false
				}
			}
			return TradingPair{Base: base, Quote: quote}, true
		}
	}
	return TradingPair{}, false
}

// Hummingbot renders the pair in hummingbot form: "BASE-QUOTE".
func (p TradingPair) Hummingbot() string {
	return p.Base + "-" + p.Quote
}

// Ccxt renders the pair in ccxt form: "BASE/QUOTE".
func (p TradingPair) Ccxt() string {
	return p.Base + "/" + p.Quote
}

func (p TradingPair) String() string { return p.Hummingbot() }

// ————————————————————————————————————————————————————————————————————————
// Orders
// ————————————————————————————————————————————————————————————————————————

// OrderRequest is a side-effect-free value describing an order to place.
type OrderRequest struct {
	Symbol        string
	Side          Side
	OrderType     OrderType
	Quantity      decimal.Decimal
	Price         *decimal.Decimal
	TimeInForce   TimeInForce
	Venue         string // explicit target venue, empty lets the client route
	ClientOrderID string
	PostOnly      bool
}

// Market builds an IOC market order.
func Market(symbol string, side Side, qty decimal.Decimal) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Side:        side,
		OrderType:   OrderTypeMarket,
		Quantity:    qty,
		TimeInForce: TIFIOC,
	}
}

// Limit builds a GTC limit order.
func Limit(symbol string, side Side, qty, price decimal.Decimal) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Side:        side,
		OrderType:   OrderTypeLimit,
		Quantity:    qty,
		Price:       &price,
		TimeInForce: TIFGTC,
	}
}

// WithVenue attaches an explicit target venue and returns the updated value.
func (r OrderRequest) WithVenue(venue string) OrderRequest {
	r.Venue = venue
	return r
}

// WithPostOnly marks the request post-only, which also forces TimeInForce
// to PostOnly.
func (r OrderRequest) WithPostOnly() OrderRequest {
	r.PostOnly = true
	r.TimeInForce = TIFPostOnly
	return r
}

// WithClientOrderID attaches a caller-supplied idempotency id.
func (r OrderRequest) WithClientOrderID(id string) OrderRequest {
	r.ClientOrderID = id
	return r
}

// Fee is a single fee line item charged against a fill.
type Fee struct {
	Asset  string
	Amount decimal.Decimal
}

// Order is a request plus everything the venue assigned: id, status, fill
// progress, and fee entries. Invariant: Filled+Remaining == Quantity at
// every observed state, and Filled is monotonically non-decreasing for a
// given OrderID.
type Order struct {
	OrderRequest
	OrderID          string
	Status           OrderStatus
	Filled           decimal.Decimal
	Remaining        decimal.Decimal
	AverageFillPrice *decimal.Decimal
	Fees             []Fee
	Venue            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsOpen reports whether the order can still receive fills or be cancelled.
func (o Order) IsOpen() bool {
	switch o.Status {
	case OrderStatusNew, OrderStatusOpen, OrderStatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// IsDone reports whether the order has reached a terminal state.
func (o Order) IsDone() bool {
	return !o.IsOpen()
}

// FillPercent returns the percentage (0-100) of Quantity that has filled.
// Returns Zero if Quantity is zero.
func (o Order) FillPercent() decimal.Decimal {
	if o.Quantity.IsZero() {
		return decimal.Zero
	}
	return o.Filled.Div(o.Quantity).Mul(decimal.FromInt(100))
}

// ————————————————————————————————————————————————————————————————————————
// Market data
// ————————————————————————————————————————————————————————————————————————

// Ticker is a point-in-time best bid/ask/last-trade summary.
type Ticker struct {
	Symbol    string
	Venue     string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Last      decimal.Decimal
	Timestamp time.Time
}

// MidPrice returns (bid+ask)/2. ok is false when either side is zero.
func (t Ticker) MidPrice() (mid decimal.Decimal, ok bool) {
	if t.Bid.IsZero() || t.Ask.IsZero() {
		return decimal.Zero, false
	}
	return t.Bid.Add(t.Ask).Div(decimal.FromInt(2)), true
}

// Spread returns ask-bid. ok is false when either side is zero.
func (t Ticker) Spread() (spread decimal.Decimal, ok bool) {
	if t.Bid.IsZero() || t.Ask.IsZero() {
		return decimal.Zero, false
	}
	return t.Ask.Sub(t.Bid), true
}

// SpreadPercent returns the spread as a percentage of mid price.
func (t Ticker) SpreadPercent() (pct decimal.Decimal, ok bool) {
	spread, ok := t.Spread()
	if !ok {
		return decimal.Zero, false
	}
	mid, ok := t.MidPrice()
	if !ok || mid.IsZero() {
		return decimal.Zero, false
	}
	return spread.Div(mid).Mul(decimal.FromInt(100)), true
}

// Trade is a single executed trade reported by a venue.
type Trade struct {
	ID        string
	Symbol    string
	Venue     string
	Side      Side
	Price     decimal.Decimal
	Size      decimal.Decimal
	Timestamp time.Time
}

// MarketInfo describes a tradeable market as listed by a venue.
type MarketInfo struct {
	Symbol   string
	Venue    string
	Base     string
	Quote    string
	Active   bool
	MinSize  decimal.Decimal
	TickSize decimal.Decimal
}

// ————————————————————————————————————————————————————————————————————————
// Balances
// ————————————————————————————————————————————————————————————————————————

// Balance is a per-venue free/locked pair for one asset.
type Balance struct {
	Asset  string
	Venue  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// Total returns Free+Locked.
func (b Balance) Total() decimal.Decimal {
	return b.Free.Add(b.Locked)
}

// AggregatedBalance sums a single asset's balance across every venue that
// reported one.
type AggregatedBalance struct {
	Asset    string
	PerVenue []Balance
}

// Total sums Free+Locked across every venue.
func (a AggregatedBalance) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range a.PerVenue {
		total = total.Add(b.Total())
	}
	return total
}
