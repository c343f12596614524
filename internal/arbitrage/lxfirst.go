// Package arbitrage implements the two opportunity-detection engines
// described in spec.md §4.8-4.9: a latency-arbitrage detector that reacts
// synchronously to an oracle feed, and a scanner/executor pair that trades
// cross-venue spreads against the aggregated book.
package arbitrage

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/tradefabric/pkg/decimal"
)

// LxOpportunityKind distinguishes which side of the stale venue is mispriced
// relative to the oracle.
type LxOpportunityKind string

const (
	BuyOnStale  LxOpportunityKind = "buy_on_stale"
	SellOnStale LxOpportunityKind = "sell_on_stale"
)

// LxOpportunity is one detected divergence between the oracle (LX) price and
// a lagging venue's quote.
type LxOpportunity struct {
	Symbol         string
	Venue          string
	Kind           LxOpportunityKind
	LxMid          decimal.Decimal
	VenuePrice     decimal.Decimal
	DivergenceBps  decimal.Decimal
	StalenessMs    int64
	ExpectedProfit decimal.Decimal
	Confidence     decimal.Decimal
	Timestamp      time.Time
}

// LxCallback is invoked synchronously, on the oracle-update goroutine, for
// every opportunity that clears both the divergence and profit thresholds.
// Implementations must not block.
type LxCallback func(LxOpportunity)

// LxConfig parameterizes the detector's thresholds.
type LxConfig struct {
	MaxStalenessMs   int64
	MinDivergenceBps decimal.Decimal
	MaxPositionSize  decimal.Decimal
	MinProfit        decimal.Decimal
}

type venuePrice struct {
	venue     string
	bid       decimal.Decimal
	ask       decimal.Decimal
	timestamp time.Time
}

// LxDetector holds the oracle price and per-venue quotes for every tracked
// symbol. The oracle map and the venue-quote map each sit behind their own
// lock (shared across symbols); an oracle update copies the venue quotes
// under a read lock and evaluates them after releasing it.
type LxDetector struct {
	cfg LxConfig

	lxMu sync.RWMutex
	lx   map[string]lxPrice // symbol -> latest oracle price

	venuesMu sync.RWMutex
	venues   map[string][]venuePrice // symbol -> latest price per venue

	callbacksMu sync.Mutex
	callbacks   []LxCallback

	stopped atomic.Bool
}

type lxPrice struct {
	mid       decimal.Decimal
	timestamp time.Time
}

// NewLxDetector builds a detector with the given thresholds.
func NewLxDetector(cfg LxConfig) *LxDetector {
	return &LxDetector{
		cfg:    cfg,
		lx:     make(map[string]lxPrice),
		venues: make(map[string][]venuePrice),
	}
}

// OnCallback registers cb to be invoked for every emitted opportunity.
func (d *LxDetector) OnCallback(cb LxCallback) {
	d.callbacksMu.Lock()
	d.callbacks = append(d.callbacks, cb)
	d.callbacksMu.Unlock()
}

// Stop marks the detector stopped; subsequent oracle updates are recorded
// but no longer emit opportunities. Cooperative, not preemptive: an update
// already past the stopped check still completes.
func (d *LxDetector) Stop() {
	d.stopped.Store(true)
}

// UpdateVenuePrice records venue's latest bid/ask for symbol, overwriting
// any prior quote for that (symbol, venue) pair.
func (d *LxDetector) UpdateVenuePrice(symbol, venue string, bid, ask decimal.Decimal, at time.Time) {
	d.venuesMu.Lock()
	defer d.venuesMu.Unlock()

	quotes := d.venues[symbol]
	for i := range quotes {
		if quotes[i].venue == venue {
			quotes[i].bid, quotes[i].ask, quotes[i].timestamp = bid, ask, at
			return
		}
	}
	d.venues[symbol] = append(quotes, venuePrice{venue: venue, bid: bid, ask: ask, timestamp: at})
}

// UpdateOraclePrice records the latest LX mid price for symbol and scans
// every tracked venue quote for that symbol, emitting an opportunity per
// qualifying divergence. Callbacks fire synchronously, outside the
// detector's locks, in venue-scan order.
func (d *LxDetector) UpdateOraclePrice(symbol string, mid decimal.Decimal, at time.Time) {
	d.lxMu.Lock()
	d.lx[symbol] = lxPrice{mid: mid, timestamp: at}
	d.lxMu.Unlock()

	if d.stopped.Load() {
		return
	}

	d.venuesMu.RLock()
	quotes := append([]venuePrice(nil), d.venues[symbol]...)
	d.venuesMu.RUnlock()

	for _, vp := range quotes {
		opp, ok := d.evaluate(symbol, mid, vp, at)
		if !ok {
			continue
		}
		d.emit(opp)
	}
}

func (d *LxDetector) evaluate(symbol string, lxMid decimal.Decimal, vp venuePrice, now time.Time) (LxOpportunity, bool) {
	stalenessMs := now.Sub(vp.timestamp).Milliseconds()
	if stalenessMs > d.cfg.MaxStalenessMs {
		return LxOpportunity{}, false
	}
	if lxMid.IsZero() {
		return LxOpportunity{}, false
	}

	var kind LxOpportunityKind
	var divergence decimal.Decimal
	var venuePx decimal.Decimal
	switch {
	case vp.ask.IsPositive() && vp.ask.LessThan(lxMid):
		kind = BuyOnStale
		divergence = lxMid.Sub(vp.ask)
		venuePx = vp.ask
	case vp.bid.IsPositive() && vp.bid.GreaterThan(lxMid):
		kind = SellOnStale
		divergence = vp.bid.Sub(lxMid)
		venuePx = vp.bid
	default:
		return LxOpportunity{}, false
	}

	bps := divergence.Div(lxMid).Mul(decimal.FromInt(10000))
	if bps.LessThan(d.cfg.MinDivergenceBps) {
		return LxOpportunity{}, false
	}

	expectedProfit := divergence.Mul(d.cfg.MaxPositionSize)
	if expectedProfit.LessThan(d.cfg.MinProfit) {
		return LxOpportunity{}, false
	}

	stalenessScore := decimal.Max(decimal.Zero, decimal.One.Sub(decimal.FromInt(stalenessMs).Div(decimal.FromInt(5000))))
	divergenceScore := decimal.Min(decimal.One, bps.Div(decimal.FromInt(100)))
	confidence := stalenessScore.Mul(decimal.FromFloat(0.5)).Add(divergenceScore.Mul(decimal.FromFloat(0.5)))

	return LxOpportunity{
		Symbol:         symbol,
		Venue:          vp.venue,
		Kind:           kind,
		LxMid:          lxMid,
		VenuePrice:     venuePx,
		DivergenceBps:  bps,
		StalenessMs:    stalenessMs,
		ExpectedProfit: expectedProfit,
		Confidence:     confidence,
		Timestamp:      now,
	}, true
}

func (d *LxDetector) emit(opp LxOpportunity) {
	d.callbacksMu.Lock()
	defer d.callbacksMu.Unlock()
	for _, cb := range d.callbacks {
		cb(opp)
	}
}
