package native

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

func newTestAMM(t *testing.T, handler http.Handler) *AMMAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a, err := NewAMM(Config{Name: "testamm", RestURL: srv.URL}, discardLogger())
	if err != nil {
		t.Fatalf("NewAMM: %v", err)
	}
	return a
}

func TestSwapQuoteParsesResponse(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireSwapQuote{
			BaseToken:  "BTC",
			QuoteToken: "USDC",
			Amount:     decimal.FromString("1"),
			Price:      decimal.FromString("50000"),
		})
	})
	a := newTestAMM(t, mux)

	quote, err := a.SwapQuote(context.Background(), "BTC", "USDC", decimal.One, true)
	if err != nil {
		t.Fatalf("SwapQuote: %v", err)
	}
	if quote.Price.String() != "50000" || !quote.IsBuy {
		t.Errorf("unexpected quote: %+v", quote)
	}
}

func TestPoolInfoNormalizesAddress(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/pool", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wirePoolInfo{
			Address:      "0x0000000000000000000000000000000000000001",
			BaseToken:    "BTC",
			QuoteToken:   "USDC",
			BaseReserve:  decimal.FromString("10"),
			QuoteReserve: decimal.FromString("500000"),
			FeeBps:       30,
		})
	})
	a := newTestAMM(t, mux)

	info, err := a.PoolInfo(context.Background(), "BTC", "USDC")
	if err != nil {
		t.Fatalf("PoolInfo: %v", err)
	}
	if info.FeeBps != 30 || info.Address == "" {
		t.Errorf("unexpected pool info: %+v", info)
	}
}

func TestPlaceOrderUnsupportedOnAMM(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	a := newTestAMM(t, mux)

	req := types.Market("BTC-USDC", types.Buy, decimal.One)
	if _, err := a.PlaceOrder(context.Background(), req); err == nil {
		t.Error("expected PlaceOrder to fail on an AMM adapter")
	}
}
