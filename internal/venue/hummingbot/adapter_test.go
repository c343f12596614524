package hummingbot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/luxfi/tradefabric/pkg/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}
	a, err := New(Config{Name: "uniswap", Host: u.Hostname(), Port: port, Connector: "uniswap", Chain: "ethereum", Network: "mainnet"}, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestCapabilitiesHaveNoStreamingAndSingleBatch(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, http.NewServeMux())
	caps := a.Capabilities()
	if caps.Streaming {
		t.Error("gateway adapter must not advertise streaming")
	}
	if caps.MaxBatchSize != 1 {
		t.Errorf("MaxBatchSize = %d, want 1", caps.MaxBatchSize)
	}
}

func TestOpenOrdersAlwaysEmpty(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, http.NewServeMux())
	orders, err := a.OpenOrders(context.Background(), "")
	if err != nil || orders != nil {
		t.Errorf("expected nil, nil, got %v, %v", orders, err)
	}
}

func TestCancelOrderAlwaysFails(t *testing.T) {
	t.Parallel()

	a := newTestAdapter(t, http.NewServeMux())
	if _, err := a.CancelOrder(context.Background(), "any", "BTC-USDC"); err == nil {
		t.Error("expected CancelOrder to fail: gateway swaps settle atomically")
	}
}

func TestMarketsQueriesConnectorTriple(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/amm/markets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("connector") != "uniswap" {
			t.Errorf("expected connector=uniswap, got %s", r.URL.Query().Get("connector"))
		}
		json.NewEncoder(w).Encode([]wireMarket{
			{Symbol: "ETH-USDC", Base: "ETH", Quote: "USDC", Active: true, MinSize: decimal.FromString("0.01"), TickSize: decimal.FromString("0.01")},
		})
	})
	a := newTestAdapter(t, mux)

	markets, err := a.Markets(context.Background())
	if err != nil {
		t.Fatalf("Markets: %v", err)
	}
	if len(markets) != 1 || markets[0].Symbol != "ETH-USDC" {
		t.Errorf("unexpected markets: %+v", markets)
	}
}
