package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/luxfi/tradefabric/internal/book"
	"github.com/luxfi/tradefabric/internal/config"
	"github.com/luxfi/tradefabric/internal/risk"
	"github.com/luxfi/tradefabric/internal/venue"
	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

// fakeAdapter is a minimal in-memory venue.Adapter stand-in for exercising
// the client's routing and dispatch logic without a real network venue.
type fakeAdapter struct {
	venue.UnsupportedAMM

	name       string
	connectErr error
	caps       venue.Capabilities
	book       *book.Book
	placeOrder func(types.OrderRequest) (types.Order, error)
}

func newFakeAdapter(name string) *fakeAdapter {
	return &fakeAdapter{
		name: name,
		caps: venue.CLOBCapabilities(),
		book: book.New("BTC-USDC", name),
	}
}

func (f *fakeAdapter) Name() string                    { return f.name }
func (f *fakeAdapter) Type() types.VenueType            { return types.VenueNative }
func (f *fakeAdapter) Capabilities() venue.Capabilities { return f.caps }
func (f *fakeAdapter) IsConnected() bool                { return f.connectErr == nil }
func (f *fakeAdapter) LatencyMs() (int, bool)           { return 0, false }
func (f *fakeAdapter) Info() venue.Info                 { return venue.Info{Name: f.name} }

func (f *fakeAdapter) Connect(context.Context) error    { return f.connectErr }
func (f *fakeAdapter) Disconnect(context.Context) error { return nil }

func (f *fakeAdapter) Markets(context.Context) ([]types.MarketInfo, error) { return nil, nil }
func (f *fakeAdapter) Ticker(context.Context, string) (types.Ticker, error) {
	return types.Ticker{Venue: f.name}, nil
}
func (f *fakeAdapter) Orderbook(context.Context, string, int) (*book.Book, error) {
	return f.book, nil
}
func (f *fakeAdapter) Trades(context.Context, string, int) ([]types.Trade, error) { return nil, nil }

func (f *fakeAdapter) Balances(context.Context) ([]types.Balance, error) { return nil, nil }
func (f *fakeAdapter) Balance(context.Context, string) (types.Balance, error) {
	return types.Balance{Asset: "BTC", Venue: f.name}, nil
}
func (f *fakeAdapter) OpenOrders(context.Context, string) ([]types.Order, error) { return nil, nil }

func (f *fakeAdapter) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if f.placeOrder != nil {
		return f.placeOrder(req)
	}
	return types.Order{OrderRequest: req, OrderID: "1", Status: types.OrderStatusFilled, Filled: req.Quantity}, nil
}
func (f *fakeAdapter) CancelOrder(context.Context, string, string) (types.Order, error) {
	return types.Order{OrderID: "1", Status: types.OrderStatusCancelled}, nil
}
func (f *fakeAdapter) CancelAllOrders(context.Context, string) ([]types.Order, error) { return nil, nil }

func (f *fakeAdapter) SubscribeTicker(string, venue.TickerCallback) error       { return nil }
func (f *fakeAdapter) SubscribeTrades(string, venue.TradeCallback) error        { return nil }
func (f *fakeAdapter) SubscribeOrderbook(string, venue.OrderbookCallback) error { return nil }
func (f *fakeAdapter) SubscribeOrders(venue.OrderCallback) error                { return nil }
func (f *fakeAdapter) UnsubscribeAll()                                         {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRiskManager() *risk.Manager {
	return risk.NewManager(config.RiskConfig{}, discardLogger())
}

func TestConnectSetsDefaultVenueToFirstSuccess(t *testing.T) {
	t.Parallel()
	a := newFakeAdapter("alpha")
	c := New(config.GeneralConfig{}, map[string]venue.Adapter{"alpha": a}, testRiskManager(), discardLogger())

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if c.DefaultVenue() != "alpha" {
		t.Errorf("DefaultVenue = %q, want alpha", c.DefaultVenue())
	}
}

func TestConnectReportsPartialFailureWithoutUndoingSuccesses(t *testing.T) {
	t.Parallel()
	good := newFakeAdapter("alpha")
	bad := newFakeAdapter("beta")
	bad.connectErr = errors.New("boom")

	c := New(config.GeneralConfig{}, map[string]venue.Adapter{"alpha": good, "beta": bad}, testRiskManager(), discardLogger())

	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("expected Connect to report the beta failure")
	}
	if !c.isConnected("alpha") {
		t.Error("expected alpha to remain connected despite beta's failure")
	}
	if c.isConnected("beta") {
		t.Error("expected beta to be reported as not connected")
	}
}

func TestPlaceOrderFailsRiskCheckBeforeDispatch(t *testing.T) {
	t.Parallel()
	a := newFakeAdapter("alpha")
	dispatched := false
	a.placeOrder = func(req types.OrderRequest) (types.Order, error) {
		dispatched = true
		return types.Order{OrderRequest: req, Status: types.OrderStatusFilled}, nil
	}

	riskMgr := risk.NewManager(config.RiskConfig{Enabled: true, MaxOrderSize: 1}, discardLogger())
	c := New(config.GeneralConfig{}, map[string]venue.Adapter{"alpha": a}, riskMgr, discardLogger())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	_, err := c.PlaceOrder(context.Background(), types.Market("BTC-USDC", types.Buy, decimal.FromInt(100)))
	if err == nil {
		t.Fatal("expected PlaceOrder to fail the risk check")
	}
	if dispatched {
		t.Error("expected the adapter to never be called once risk rejected the order")
	}
}

func TestPlaceOrderUsesDefaultVenueWhenUnspecified(t *testing.T) {
	t.Parallel()
	a := newFakeAdapter("alpha")
	c := New(config.GeneralConfig{}, map[string]venue.Adapter{"alpha": a}, testRiskManager(), discardLogger())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	order, err := c.PlaceOrder(context.Background(), types.Market("BTC-USDC", types.Buy, decimal.One))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Venue != "alpha" {
		t.Errorf("order.Venue = %q, want alpha", order.Venue)
	}
}

func TestPlaceOrderTracksOpenOrderUntilTerminal(t *testing.T) {
	t.Parallel()
	a := newFakeAdapter("alpha")
	a.placeOrder = func(req types.OrderRequest) (types.Order, error) {
		return types.Order{OrderRequest: req, OrderID: "open-1", Status: types.OrderStatusOpen}, nil
	}
	riskMgr := risk.NewManager(config.RiskConfig{Enabled: true, MaxOpenOrders: 1}, discardLogger())
	c := New(config.GeneralConfig{}, map[string]venue.Adapter{"alpha": a}, riskMgr, discardLogger())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	order, err := c.PlaceOrder(context.Background(), types.Market("BTC-USDC", types.Buy, decimal.One))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if riskMgr.OpenOrders("BTC-USDC") != 1 {
		t.Fatalf("expected the open order to be tracked, count = %d", riskMgr.OpenOrders("BTC-USDC"))
	}

	if _, err := c.CancelOrder(context.Background(), "alpha", order.OrderID, "BTC-USDC"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if riskMgr.OpenOrders("BTC-USDC") != 0 {
		t.Errorf("expected cancel to release the tracker, count = %d", riskMgr.OpenOrders("BTC-USDC"))
	}
}

func TestSmartRoutingPrefersBetterPriceAboveThreshold(t *testing.T) {
	t.Parallel()
	alpha := newFakeAdapter("alpha")
	alpha.book.AddAsk(decimal.FromInt(100), decimal.FromInt(10))
	alpha.book.Sort()

	beta := newFakeAdapter("beta")
	beta.book = book.New("BTC-USDC", "beta")
	beta.book.AddAsk(decimal.FromFloat(95), decimal.FromInt(10))
	beta.book.Sort()

	cfg := config.GeneralConfig{SmartRouting: true, MinImprovementBps: 100}
	c := New(cfg, map[string]venue.Adapter{"alpha": alpha, "beta": beta}, testRiskManager(), discardLogger())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	// alpha connected first in map iteration isn't guaranteed; force default explicitly.
	c.defaultVn = "alpha"

	order, err := c.PlaceOrder(context.Background(), types.Market("BTC-USDC", types.Buy, decimal.FromInt(5)))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Venue != "beta" {
		t.Errorf("expected smart routing to pick beta's better price, got %s", order.Venue)
	}
}

func TestSmartRoutingStaysOnDefaultWhenImprovementTooSmall(t *testing.T) {
	t.Parallel()
	alpha := newFakeAdapter("alpha")
	alpha.book.AddAsk(decimal.FromInt(100), decimal.FromInt(10))
	alpha.book.Sort()

	beta := newFakeAdapter("beta")
	beta.book = book.New("BTC-USDC", "beta")
	beta.book.AddAsk(decimal.FromFloat(99.99), decimal.FromInt(10))
	beta.book.Sort()

	cfg := config.GeneralConfig{SmartRouting: true, MinImprovementBps: 50}
	c := New(cfg, map[string]venue.Adapter{"alpha": alpha, "beta": beta}, testRiskManager(), discardLogger())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	c.defaultVn = "alpha"

	order, err := c.PlaceOrder(context.Background(), types.Market("BTC-USDC", types.Buy, decimal.FromInt(5)))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Venue != "alpha" {
		t.Errorf("expected routing to stick with default venue, got %s", order.Venue)
	}
}
