// Package native implements adapters for the native trading fabric venue:
// a central-limit order book (CLOBAdapter) and an EVM-compatible AMM
// (AMMAdapter), both speaking the REST/WS surface described in SPEC §6.1.
package native

import (
	"time"

	"github.com/luxfi/tradefabric/pkg/decimal"
)

// wireMarket is one entry of GET /markets.
type wireMarket struct {
	Symbol   string          `json:"symbol"`
	Base     string          `json:"base"`
	Quote    string          `json:"quote"`
	Active   bool            `json:"active"`
	MinSize  decimal.Decimal `json:"min_size"`
	TickSize decimal.Decimal `json:"tick_size"`
}

// wireTicker is the response body of GET /ticker/{symbol}.
type wireTicker struct {
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Last      decimal.Decimal `json:"last"`
	Timestamp int64           `json:"timestamp_ms"`
}

func (w wireTicker) time() time.Time {
	return time.UnixMilli(w.Timestamp)
}

// wireLevel is one [price, quantity] book entry.
type wireLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// wireOrderbook is the response body of GET /orderbook/{symbol}.
type wireOrderbook struct {
	Symbol string      `json:"symbol"`
	Bids   []wireLevel `json:"bids"`
	Asks   []wireLevel `json:"asks"`
}

// wireTrade is one entry of GET /trades/{symbol}.
type wireTrade struct {
	ID        string          `json:"id"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Timestamp int64           `json:"timestamp_ms"`
}

func (w wireTrade) time() time.Time {
	return time.UnixMilli(w.Timestamp)
}

// wireBalance is one entry of GET /balances.
type wireBalance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

// wireOrderRequest is the body posted to POST /orders.
type wireOrderRequest struct {
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         *string         `json:"price,omitempty"`
	TimeInForce   string          `json:"time_in_force"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
	PostOnly      bool            `json:"post_only,omitempty"`
}

// wireFee is one fee line item on a wireOrder.
type wireFee struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

// wireOrder is the response body for order placement, lookups, and cancels.
type wireOrder struct {
	OrderID          string          `json:"order_id"`
	Symbol           string          `json:"symbol"`
	Side             string          `json:"side"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	Quantity         decimal.Decimal `json:"quantity"`
	Filled           decimal.Decimal `json:"filled"`
	Remaining        decimal.Decimal `json:"remaining"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	AverageFillPrice *decimal.Decimal `json:"average_fill_price,omitempty"`
	Fees             []wireFee       `json:"fees,omitempty"`
	ClientOrderID    string          `json:"client_order_id,omitempty"`
	CreatedAtMs      int64           `json:"created_at_ms"`
	UpdatedAtMs      int64           `json:"updated_at_ms"`
}
