package types

import (
	"testing"

	"github.com/luxfi/tradefabric/pkg/decimal"
)

func TestParsePairSeparators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		symbol    string
		wantBase  string
		wantQuote string
	}{
		{"BTC-USDC", "BTC", "USDC"},
		{"ETH/USD", "ETH", "USD"},
		{"LUX_USDT", "LUX", "USDT"},
	}

	for _, tt := range tests {
		pair, ok := ParsePair(tt.symbol)
		if !ok {
			t.Fatalf("ParsePair(%q) failed to parse", tt.symbol)
		}
		if pair.Base != tt.wantBase || pair.Quote != tt.wantQuote {
			t.Errorf("ParsePair(%q) = %+v, want base=%s quote=%s", tt.symbol, pair, tt.wantBase, tt.wantQuote)
		}
	}
}

func TestParsePairInvalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"INVALID", "", "-USDC", "BTC-", "TOOLONGASSETNAME-USD"} {
		if _, ok := ParsePair(s); ok {
			t.Errorf("ParsePair(%q) should fail", s)
		}
	}
}

func TestPairFormatConversions(t *testing.T) {
	t.Parallel()

	pair, ok := ParsePair("BTC-USDC")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if got := pair.Hummingbot(); got != "BTC-USDC" {
		t.Errorf("Hummingbot() = %q, want BTC-USDC", got)
	}
	if got := pair.Ccxt(); got != "BTC/USDC" {
		t.Errorf("Ccxt() = %q, want BTC/USDC", got)
	}
}

func TestOrderRequestFactories(t *testing.T) {
	t.Parallel()

	req := Market("BTC-USDC", Buy, decimal.FromString("1.5"))
	if req.Symbol != "BTC-USDC" || req.Side != Buy || req.OrderType != OrderTypeMarket {
		t.Errorf("Market() built wrong request: %+v", req)
	}
	if req.TimeInForce != TIFIOC {
		t.Errorf("Market() TimeInForce = %s, want IOC", req.TimeInForce)
	}

	limit := Limit("ETH-USDC", Sell, decimal.FromString("10"), decimal.FromString("2000"))
	if limit.OrderType != OrderTypeLimit || limit.TimeInForce != TIFGTC {
		t.Errorf("Limit() built wrong request: %+v", limit)
	}
	if limit.Price == nil || !limit.Price.Equal(decimal.FromString("2000")) {
		t.Errorf("Limit() price = %v, want 2000", limit.Price)
	}
}

func TestOrderRequestBuilders(t *testing.T) {
	t.Parallel()

	req := Market("BTC-USDC", Buy, decimal.FromInt(1)).
		WithVenue("lx_dex").
		WithPostOnly().
		WithClientOrderID("my-order-123")

	if req.Venue != "lx_dex" {
		t.Errorf("WithVenue did not set Venue")
	}
	if !req.PostOnly {
		t.Error("WithPostOnly should set PostOnly")
	}
	if req.TimeInForce != TIFPostOnly {
		t.Errorf("WithPostOnly should force TimeInForce=PostOnly, got %s", req.TimeInForce)
	}
	if req.ClientOrderID != "my-order-123" {
		t.Errorf("WithClientOrderID did not set id")
	}
}

func TestOrderStatusChecks(t *testing.T) {
	t.Parallel()

	o := Order{
		OrderRequest: OrderRequest{Quantity: decimal.FromInt(100)},
		Filled:       decimal.FromInt(50),
	}

	o.Status = OrderStatusPartiallyFilled
	if !o.IsOpen() || o.IsDone() {
		t.Error("partially filled order should be open, not done")
	}
	if got := o.FillPercent().String(); got != "50" {
		t.Errorf("FillPercent() = %s, want 50", got)
	}

	o.Status = OrderStatusFilled
	if o.IsOpen() || !o.IsDone() {
		t.Error("filled order should be done, not open")
	}

	o.Status = OrderStatusCancelled
	if o.IsOpen() || !o.IsDone() {
		t.Error("cancelled order should be done, not open")
	}
}

func TestTickerCalculations(t *testing.T) {
	t.Parallel()

	ticker := Ticker{Bid: decimal.FromString("100"), Ask: decimal.FromString("101")}

	mid, ok := ticker.MidPrice()
	if !ok || mid.String() != "100.5" {
		t.Errorf("MidPrice() = %s, ok=%v, want 100.5", mid, ok)
	}

	spread, ok := ticker.Spread()
	if !ok || spread.String() != "1" {
		t.Errorf("Spread() = %s, ok=%v, want 1", spread, ok)
	}

	pct, ok := ticker.SpreadPercent()
	if !ok {
		t.Fatal("SpreadPercent() should be ok")
	}
	if pct.Float64() < 0.99 || pct.Float64() > 1.0 {
		t.Errorf("SpreadPercent() = %s, want ~1.0", pct)
	}
}

func TestTickerZeroSidesYieldNotOK(t *testing.T) {
	t.Parallel()

	ticker := Ticker{Bid: decimal.Zero, Ask: decimal.FromString("101")}
	if _, ok := ticker.MidPrice(); ok {
		t.Error("MidPrice() with zero bid should not be ok")
	}
}

func TestEnumStrings(t *testing.T) {
	t.Parallel()

	if Buy.String() != "buy" || Sell.String() != "sell" {
		t.Error("Side.String() mismatch")
	}
	if OrderTypeMarket.String() != "market" || OrderTypeLimit.String() != "limit" {
		t.Error("OrderType.String() mismatch")
	}
	if TIFGTC.String() != "GTC" {
		t.Error("TimeInForce.String() mismatch")
	}
	if OrderStatusFilled.String() != "filled" {
		t.Error("OrderStatus.String() mismatch")
	}
}

func TestBalanceAndAggregation(t *testing.T) {
	t.Parallel()

	b := Balance{Asset: "USDC", Venue: "native", Free: decimal.FromInt(100), Locked: decimal.FromInt(50)}
	if got := b.Total().String(); got != "150" {
		t.Errorf("Balance.Total() = %s, want 150", got)
	}

	agg := AggregatedBalance{
		Asset: "USDC",
		PerVenue: []Balance{
			{Asset: "USDC", Venue: "native", Free: decimal.FromInt(100)},
			{Asset: "USDC", Venue: "ccxt", Free: decimal.FromInt(25)},
		},
	}
	if got := agg.Total().String(); got != "125" {
		t.Errorf("AggregatedBalance.Total() = %s, want 125", got)
	}
}
