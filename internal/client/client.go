// Package client is the trading fabric's single entry point for the rest
// of the system: a map of venue adapters keyed by name, fanned-out
// connect/disconnect, cross-venue market-data aggregation, smart order
// routing, and risk-gated order dispatch.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/luxfi/tradefabric/internal/book"
	"github.com/luxfi/tradefabric/internal/config"
	"github.com/luxfi/tradefabric/internal/risk"
	"github.com/luxfi/tradefabric/internal/venue"
	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

// ErrNoVenues is returned when an operation needs a default venue but none
// has connected successfully yet.
var ErrNoVenues = errors.New("client: no connected venues")

// ErrUnknownVenue is returned when an operation names a venue the client
// was not configured with.
var ErrUnknownVenue = errors.New("client: unknown venue")

// Client owns every configured adapter and dispatches market-data and
// order operations across them.
type Client struct {
	cfg    config.GeneralConfig
	risk   *risk.Manager
	logger *slog.Logger

	adaptersMu sync.RWMutex
	adapters   map[string]venue.Adapter
	connected  map[string]bool
	defaultVn  string

	trackersMu sync.Mutex
	trackers   map[string]*risk.OrderTracker // orderID -> open-order tracker
}

// New builds a Client over the given adapter set. adapters is copied so the
// caller's map can be discarded.
func New(cfg config.GeneralConfig, adapters map[string]venue.Adapter, riskMgr *risk.Manager, logger *slog.Logger) *Client {
	cp := make(map[string]venue.Adapter, len(adapters))
	for name, a := range adapters {
		cp[name] = a
	}
	return &Client{
		cfg:       cfg,
		risk:      riskMgr,
		logger:    logger.With("component", "client"),
		adapters:  cp,
		connected: make(map[string]bool),
		trackers:  make(map[string]*risk.OrderTracker),
	}
}

// connectResult carries one adapter's outcome back to Connect's fan-in.
type connectResult struct {
	name string
	err  error
}

// Connect fans out Connect to every configured adapter concurrently.
// A failing adapter does not prevent the others from connecting; all
// failures are joined into the returned error. The first adapter to finish
// connecting successfully becomes the default venue if one is not already
// set.
func (c *Client) Connect(ctx context.Context) error {
	c.adaptersMu.RLock()
	names := make([]string, 0, len(c.adapters))
	for name := range c.adapters {
		names = append(names, name)
	}
	adapters := c.adapters
	c.adaptersMu.RUnlock()

	results := make(chan connectResult, len(names))
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string, a venue.Adapter) {
			defer wg.Done()
			err := a.Connect(ctx)
			results <- connectResult{name: name, err: err}
		}(name, adapters[name])
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	for res := range results {
		if res.err != nil {
			c.logger.Error("venue connect failed", "venue", res.name, "error", res.err)
			errs = append(errs, fmt.Errorf("%s: %w", res.name, res.err))
			continue
		}
		c.logger.Info("venue connected", "venue", res.name)
		c.adaptersMu.Lock()
		c.connected[res.name] = true
		if c.defaultVn == "" {
			c.defaultVn = res.name
		}
		c.adaptersMu.Unlock()
	}

	if len(errs) > 0 {
		return fmt.Errorf("client: %d venue(s) failed to connect: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Disconnect fans out Disconnect to every adapter, same partial-failure
// semantics as Connect.
func (c *Client) Disconnect(ctx context.Context) error {
	c.adaptersMu.RLock()
	adapters := make(map[string]venue.Adapter, len(c.adapters))
	for name, a := range c.adapters {
		adapters[name] = a
	}
	c.adaptersMu.RUnlock()

	results := make(chan connectResult, len(adapters))
	var wg sync.WaitGroup
	for name, a := range adapters {
		wg.Add(1)
		go func(name string, a venue.Adapter) {
			defer wg.Done()
			results <- connectResult{name: name, err: a.Disconnect(ctx)}
		}(name, a)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	for res := range results {
		c.adaptersMu.Lock()
		c.connected[res.name] = false
		c.adaptersMu.Unlock()
		if res.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.name, res.err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("client: %d venue(s) failed to disconnect: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// DefaultVenue returns the current default venue name, empty if none has
// connected yet.
func (c *Client) DefaultVenue() string {
	c.adaptersMu.RLock()
	defer c.adaptersMu.RUnlock()
	return c.defaultVn
}

// Adapter returns the named adapter, or ErrUnknownVenue.
func (c *Client) Adapter(name string) (venue.Adapter, error) {
	c.adaptersMu.RLock()
	defer c.adaptersMu.RUnlock()
	a, ok := c.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVenue, name)
	}
	return a, nil
}

func (c *Client) isConnected(name string) bool {
	c.adaptersMu.RLock()
	defer c.adaptersMu.RUnlock()
	return c.connected[name]
}

func (c *Client) connectedAdapters() map[string]venue.Adapter {
	c.adaptersMu.RLock()
	defer c.adaptersMu.RUnlock()
	out := make(map[string]venue.Adapter, len(c.connected))
	for name, ok := range c.connected {
		if ok {
			out[name] = c.adapters[name]
		}
	}
	return out
}

// resolveVenue picks which venue to use for a market-data read: the named
// venue if given, else the default venue.
func (c *Client) resolveVenue(requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if v := c.DefaultVenue(); v != "" {
		return v, nil
	}
	return "", ErrNoVenues
}

// Ticker fetches a ticker from venue, or the default venue if venue is
// empty.
func (c *Client) Ticker(ctx context.Context, symbol, venueName string) (types.Ticker, error) {
	v, err := c.resolveVenue(venueName)
	if err != nil {
		return types.Ticker{}, err
	}
	a, err := c.Adapter(v)
	if err != nil {
		return types.Ticker{}, err
	}
	return a.Ticker(ctx, symbol)
}

// AggregatedBook queries every connected adapter's orderbook for symbol and
// merges the results into a fresh cross-venue view. Adapters that error are
// logged and skipped rather than failing the whole aggregation.
func (c *Client) AggregatedBook(ctx context.Context, symbol string) (*book.Aggregated, error) {
	adapters := c.connectedAdapters()
	if len(adapters) == 0 {
		return nil, ErrNoVenues
	}

	agg := book.NewAggregated(symbol)
	for name, a := range adapters {
		if !a.Capabilities().Orderbook {
			continue
		}
		b, err := a.Orderbook(ctx, symbol, 0)
		if err != nil {
			c.logger.Warn("orderbook fetch failed", "venue", name, "symbol", symbol, "error", err)
			continue
		}
		agg.AddOrderbook(b)
	}
	return agg, nil
}

// Balances aggregates balances for asset across every connected venue.
func (c *Client) Balances(ctx context.Context, asset string) (types.AggregatedBalance, error) {
	adapters := c.connectedAdapters()
	agg := types.AggregatedBalance{Asset: asset}
	for name, a := range adapters {
		bal, err := a.Balance(ctx, asset)
		if err != nil {
			c.logger.Warn("balance fetch failed", "venue", name, "asset", asset, "error", err)
			continue
		}
		agg.PerVenue = append(agg.PerVenue, bal)
	}
	return agg, nil
}

// PlaceOrder validates req against the risk manager, resolves the venue
// (explicit, smart-routed, or default), dispatches, and tracks the open
// order for risk accounting. The open-order slot is released at once if the
// order is already terminal when placed, and otherwise only by CancelOrder;
// a later fill reported by the venue does not release it.
func (c *Client) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := c.risk.Validate(req); err != nil {
		return types.Order{}, fmt.Errorf("client: risk check failed: %w", err)
	}

	venueName, err := c.selectVenue(ctx, req)
	if err != nil {
		return types.Order{}, err
	}
	a, err := c.Adapter(venueName)
	if err != nil {
		return types.Order{}, err
	}

	tracker := risk.NewOrderTracker(c.risk, req.Symbol)
	order, err := a.PlaceOrder(ctx, req.WithVenue(venueName))
	if err != nil {
		tracker.Release()
		return types.Order{}, fmt.Errorf("client: place order on %s: %w", venueName, err)
	}
	order.Venue = venueName

	if order.IsDone() {
		tracker.Release()
	} else {
		c.trackersMu.Lock()
		c.trackers[order.OrderID] = tracker
		c.trackersMu.Unlock()
	}
	return order, nil
}

// CancelOrder cancels orderID on venueName and releases its open-order
// tracking slot.
func (c *Client) CancelOrder(ctx context.Context, venueName, orderID, symbol string) (types.Order, error) {
	a, err := c.Adapter(venueName)
	if err != nil {
		return types.Order{}, err
	}
	order, err := a.CancelOrder(ctx, orderID, symbol)
	if err != nil {
		return types.Order{}, fmt.Errorf("client: cancel order on %s: %w", venueName, err)
	}
	c.releaseTracker(orderID)
	return order, nil
}

func (c *Client) releaseTracker(orderID string) {
	c.trackersMu.Lock()
	tracker, ok := c.trackers[orderID]
	delete(c.trackers, orderID)
	c.trackersMu.Unlock()
	if ok {
		tracker.Release()
	}
}

// selectVenue implements §4.7's smart routing: an explicit request venue
// always wins; otherwise, when smart routing is enabled, the venue with the
// best fillable price for the requested quantity is chosen over the
// default venue only if it improves execution by at least
// min_improvement_bps (avoiding flapping between near-identical prices).
func (c *Client) selectVenue(ctx context.Context, req types.OrderRequest) (string, error) {
	if req.Venue != "" {
		return req.Venue, nil
	}

	defaultVenue, err := c.resolveVenue("")
	if err != nil {
		return "", err
	}
	if !c.cfg.SmartRouting {
		return defaultVenue, nil
	}

	agg, err := c.AggregatedBook(ctx, req.Symbol)
	if err != nil {
		return defaultVenue, nil
	}

	var levels []book.AggregatedLevel
	if req.Side == types.Buy {
		levels = agg.AggregatedAsks()
	} else {
		levels = agg.AggregatedBids()
	}
	if len(levels) == 0 {
		return defaultVenue, nil
	}

	byVenue := make(map[string][]book.AggregatedLevel, len(levels))
	for _, lvl := range levels {
		byVenue[lvl.Venue] = append(byVenue[lvl.Venue], lvl)
	}
	fill := func(venueName string) (decimal.Decimal, bool) {
		remaining := req.Quantity
		var reached decimal.Decimal
		for _, lvl := range byVenue[venueName] {
			if !remaining.IsPositive() {
				break
			}
			consumed := decimal.Min(lvl.Quantity, remaining)
			remaining = remaining.Sub(consumed)
			reached = lvl.Price
		}
		return reached, !remaining.IsPositive()
	}

	defaultPrice, defaultFillable := fill(defaultVenue)

	seen := make(map[string]bool, len(byVenue))
	var bestVenue string
	var bestPrice decimal.Decimal
	bestFound := false
	for _, lvl := range levels {
		if seen[lvl.Venue] {
			continue
		}
		seen[lvl.Venue] = true
		if !c.eligible(lvl.Venue, req) {
			continue
		}
		price, ok := fill(lvl.Venue)
		if !ok {
			continue
		}
		switch {
		case !bestFound:
			bestVenue, bestPrice, bestFound = lvl.Venue, price, true
		case req.Side == types.Buy && price.LessThan(bestPrice):
			bestVenue, bestPrice = lvl.Venue, price
		case req.Side == types.Sell && price.GreaterThan(bestPrice):
			bestVenue, bestPrice = lvl.Venue, price
		}
	}

	if !bestFound || bestVenue == defaultVenue {
		return defaultVenue, nil
	}
	if !defaultFillable {
		return bestVenue, nil
	}
	if defaultPrice.IsZero() {
		return defaultVenue, nil
	}

	var improvementBps decimal.Decimal
	if req.Side == types.Buy {
		improvementBps = defaultPrice.Sub(bestPrice).Div(defaultPrice).Mul(decimal.FromInt(10000))
	} else {
		improvementBps = bestPrice.Sub(defaultPrice).Div(defaultPrice).Mul(decimal.FromInt(10000))
	}
	if improvementBps.GreaterThanOrEqual(decimal.FromInt(int64(c.cfg.MinImprovementBps))) {
		return bestVenue, nil
	}
	return defaultVenue, nil
}

// eligible reports whether venueName is connected and advertises support
// for req's order type.
func (c *Client) eligible(venueName string, req types.OrderRequest) bool {
	if !c.isConnected(venueName) {
		return false
	}
	a, err := c.Adapter(venueName)
	if err != nil {
		return false
	}
	caps := a.Capabilities()
	switch req.OrderType {
	case types.OrderTypeMarket:
		return caps.MarketOrders
	case types.OrderTypeLimit:
		return caps.LimitOrders
	case types.OrderTypeStop, types.OrderTypeStopLimit:
		return caps.StopOrders
	default:
		return false
	}
}
