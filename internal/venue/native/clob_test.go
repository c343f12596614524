package native

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAdapter(t *testing.T, handler http.Handler) (*CLOBAdapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a, err := New(Config{Name: "testnative", RestURL: srv.URL}, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, srv
}

func TestMarketsParsesResponse(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]wireMarket{
			{Symbol: "BTC-USDC", Base: "BTC", Quote: "USDC", Active: true, MinSize: decimal.FromString("0.001"), TickSize: decimal.FromString("0.01")},
		})
	})
	a, _ := newTestAdapter(t, mux)

	markets, err := a.Markets(context.Background())
	if err != nil {
		t.Fatalf("Markets: %v", err)
	}
	if len(markets) != 1 || markets[0].Symbol != "BTC-USDC" || markets[0].Venue != "testnative" {
		t.Errorf("unexpected markets: %+v", markets)
	}
}

func TestConnectSetsLatencyAndConnectedState(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]wireMarket{})
	})
	a, _ := newTestAdapter(t, mux)

	if a.IsConnected() {
		t.Fatal("should not be connected before Connect")
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !a.IsConnected() {
		t.Error("expected IsConnected true after Connect")
	}
	if _, ok := a.LatencyMs(); !ok {
		t.Error("expected latency to be set after Connect")
	}
	a.Disconnect(context.Background())
	if a.IsConnected() {
		t.Error("expected IsConnected false after Disconnect")
	}
}

func TestOrderbookBuildsSortedBook(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/orderbook/BTC-USDC", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireOrderbook{
			Symbol: "BTC-USDC",
			Bids: []wireLevel{
				{Price: decimal.FromString("99"), Quantity: decimal.FromString("1")},
				{Price: decimal.FromString("100"), Quantity: decimal.FromString("2")},
			},
			Asks: []wireLevel{
				{Price: decimal.FromString("101"), Quantity: decimal.FromString("3")},
			},
		})
	})
	a, _ := newTestAdapter(t, mux)

	book, err := a.Orderbook(context.Background(), "BTC-USDC", 0)
	if err != nil {
		t.Fatalf("Orderbook: %v", err)
	}
	best, ok := book.BestBid()
	if !ok || best.Price.String() != "100" {
		t.Errorf("expected best bid 100, got %+v ok=%v", best, ok)
	}
}

func TestPlaceOrderRoundTrips(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(wireOrder{
			OrderID:  "abc123",
			Symbol:   "BTC-USDC",
			Side:     "buy",
			Type:     "limit",
			Status:   "open",
			Quantity: decimal.FromString("1"),
			Filled:   decimal.Zero,
		})
	})
	a, _ := newTestAdapter(t, mux)

	price := decimal.FromString("100")
	req := types.Limit("BTC-USDC", types.Buy, decimal.FromString("1"), price)
	order, err := a.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.OrderID != "abc123" || order.Status != types.OrderStatusOpen {
		t.Errorf("unexpected order: %+v", order)
	}
}

func TestAMMMethodsReturnNotSupportedOnCLOB(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	a, _ := newTestAdapter(t, mux)

	if _, err := a.SwapQuote(context.Background(), "BTC", "USDC", decimal.One, true); err == nil {
		t.Error("expected SwapQuote to be unsupported on a CLOB adapter")
	}
}
