// Package ccxt implements an Adapter bridging to a co-located ccxt proxy
// process (a lightweight REST shim that fronts ccxt's Python/JS exchange
// clients), so the fabric treats any ccxt-supported exchange as one more
// venue behind the same Adapter contract.
package ccxt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	internalbook "github.com/luxfi/tradefabric/internal/book"
	"github.com/luxfi/tradefabric/internal/venue"
	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

// Config configures an Adapter's connection to the ccxt proxy.
type Config struct {
	Name    string // this venue's name within the fabric, e.g. "binance"
	BaseURL string // ccxt proxy base URL, default http://localhost:3000
	APIKey  string
	Secret  string
}

// Adapter bridges one ccxt-supported exchange through the co-located proxy.
// The proxy is polled over REST; there is no push feed, so capabilities
// advertise no streaming and every Subscribe* method returns an error.
type Adapter struct {
	venue.UnsupportedAMM

	name    string
	apiKey  string
	secret  string
	http    *resty.Client
	rl      *venue.RateLimiter

	connected atomic.Bool
	latencyMs atomic.Int64

	logger *slog.Logger
}

// New creates a ccxt-bridged Adapter. Connect must be called before trading.
func New(cfg Config, logger *slog.Logger) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	a := &Adapter{
		name:   cfg.Name,
		apiKey: cfg.APIKey,
		secret: cfg.Secret,
		http:   httpClient,
		rl:     venue.NewRateLimiter(),
		logger: logger.With("component", "ccxt", "venue", cfg.Name),
	}
	a.latencyMs.Store(-1)
	return a
}

func (a *Adapter) Name() string          { return a.name }
func (a *Adapter) Type() types.VenueType { return types.VenueCcxt }

// Capabilities returns CLOB shape minus streaming: the proxy is polled, not
// pushed.
func (a *Adapter) Capabilities() venue.Capabilities {
	caps := venue.CLOBCapabilities()
	caps.Streaming = false
	return caps
}

func (a *Adapter) IsConnected() bool { return a.connected.Load() }

func (a *Adapter) LatencyMs() (int, bool) {
	ms := a.latencyMs.Load()
	if ms < 0 {
		return 0, false
	}
	return int(ms), true
}

func (a *Adapter) Info() venue.Info {
	info := venue.Info{Name: a.name, Type: types.VenueCcxt, Connected: a.IsConnected(), Capabilities: a.Capabilities()}
	if ms, ok := a.LatencyMs(); ok {
		info.LatencyMs = &ms
	}
	return info
}

type wireMarket struct {
	Symbol   string          `json:"symbol"`
	Base     string          `json:"base"`
	Quote    string          `json:"quote"`
	Active   bool            `json:"active"`
	MinSize  decimal.Decimal `json:"min_size"`
	TickSize decimal.Decimal `json:"tick_size"`
}

func (a *Adapter) Connect(ctx context.Context) error {
	start := time.Now()
	if _, err := a.Markets(ctx); err != nil {
		return fmt.Errorf("ccxt connect: %w", err)
	}
	a.latencyMs.Store(time.Since(start).Milliseconds())
	a.connected.Store(true)
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	a.connected.Store(false)
	return nil
}

func (a *Adapter) exchangeHeaders() map[string]string {
	if a.apiKey == "" {
		return nil
	}
	return map[string]string{
		"X-CCXT-API-KEY": a.apiKey,
		"X-CCXT-SECRET":  a.secret,
	}
}

func (a *Adapter) Markets(ctx context.Context) ([]types.MarketInfo, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	var result []wireMarket
	resp, err := a.http.R().SetContext(ctx).SetResult(&result).Get("/exchanges/" + a.name + "/markets")
	if err != nil {
		return nil, fmt.Errorf("markets: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("markets: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make([]types.MarketInfo, 0, len(result))
	for _, m := range result {
		out = append(out, types.MarketInfo{Symbol: m.Symbol, Venue: a.name, Base: m.Base, Quote: m.Quote, Active: m.Active, MinSize: m.MinSize, TickSize: m.TickSize})
	}
	return out, nil
}

type wireTicker struct {
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Last      decimal.Decimal `json:"last"`
	Timestamp int64           `json:"timestamp_ms"`
}

func (a *Adapter) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return types.Ticker{}, err
	}
	var result wireTicker
	resp, err := a.http.R().SetContext(ctx).SetResult(&result).Get("/exchanges/" + a.name + "/ticker/" + symbol)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("ticker: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Ticker{}, fmt.Errorf("ticker: status %d: %s", resp.StatusCode(), resp.String())
	}
	return types.Ticker{Symbol: symbol, Venue: a.name, Bid: result.Bid, Ask: result.Ask, Last: result.Last, Timestamp: time.UnixMilli(result.Timestamp)}, nil
}

type wireLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type wireOrderbook struct {
	Bids []wireLevel `json:"bids"`
	Asks []wireLevel `json:"asks"`
}

func (a *Adapter) Orderbook(ctx context.Context, symbol string, depth int) (*internalbook.Book, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	req := a.http.R().SetContext(ctx)
	if depth > 0 {
		req = req.SetQueryParam("depth", fmt.Sprintf("%d", depth))
	}
	var result wireOrderbook
	resp, err := req.SetResult(&result).Get("/exchanges/" + a.name + "/orderbook/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("orderbook: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("orderbook: status %d: %s", resp.StatusCode(), resp.String())
	}
	b := internalbook.New(symbol, a.name)
	for _, lvl := range result.Bids {
		b.AddBid(lvl.Price, lvl.Quantity)
	}
	for _, lvl := range result.Asks {
		b.AddAsk(lvl.Price, lvl.Quantity)
	}
	b.Sort()
	return b, nil
}

type wireTrade struct {
	ID        string          `json:"id"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Timestamp int64           `json:"timestamp_ms"`
}

func (a *Adapter) Trades(ctx context.Context, symbol string, limit int) ([]types.Trade, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	req := a.http.R().SetContext(ctx)
	if limit > 0 {
		req = req.SetQueryParam("limit", fmt.Sprintf("%d", limit))
	}
	var result []wireTrade
	resp, err := req.SetResult(&result).Get("/exchanges/" + a.name + "/trades/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("trades: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make([]types.Trade, 0, len(result))
	for _, t := range result {
		out = append(out, types.Trade{ID: t.ID, Symbol: symbol, Venue: a.name, Side: types.Side(t.Side), Price: t.Price, Size: t.Size, Timestamp: time.UnixMilli(t.Timestamp)})
	}
	return out, nil
}

type wireBalance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

func (a *Adapter) Balances(ctx context.Context) ([]types.Balance, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	var result []wireBalance
	resp, err := a.http.R().SetContext(ctx).SetHeaders(a.exchangeHeaders()).SetResult(&result).Get("/exchanges/" + a.name + "/balances")
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("balances: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make([]types.Balance, 0, len(result))
	for _, b := range result {
		out = append(out, types.Balance{Asset: b.Asset, Venue: a.name, Free: b.Free, Locked: b.Locked})
	}
	return out, nil
}

func (a *Adapter) Balance(ctx context.Context, asset string) (types.Balance, error) {
	balances, err := a.Balances(ctx)
	if err != nil {
		return types.Balance{}, err
	}
	for _, b := range balances {
		if b.Asset == asset {
			return b, nil
		}
	}
	return types.Balance{Asset: asset, Venue: a.name}, nil
}

type wireOrder struct {
	OrderID          string           `json:"order_id"`
	Symbol           string           `json:"symbol"`
	Side             string           `json:"side"`
	Type             string           `json:"type"`
	Status           string           `json:"status"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Filled           decimal.Decimal  `json:"filled"`
	Remaining        decimal.Decimal  `json:"remaining"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	AverageFillPrice *decimal.Decimal `json:"average_fill_price,omitempty"`
	CreatedAtMs      int64            `json:"created_at_ms"`
	UpdatedAtMs      int64            `json:"updated_at_ms"`
}

func toOrder(w wireOrder, venueName string) types.Order {
	return types.Order{
		OrderRequest: types.OrderRequest{
			Symbol:    w.Symbol,
			Side:      types.Side(w.Side),
			OrderType: types.OrderType(w.Type),
			Quantity:  w.Quantity,
			Price:     w.Price,
			Venue:     venueName,
		},
		OrderID:          w.OrderID,
		Status:           types.OrderStatus(w.Status),
		Filled:           w.Filled,
		Remaining:        w.Remaining,
		AverageFillPrice: w.AverageFillPrice,
		Venue:            venueName,
		CreatedAt:        time.UnixMilli(w.CreatedAtMs),
		UpdatedAt:        time.UnixMilli(w.UpdatedAtMs),
	}
}

func (a *Adapter) OpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	req := a.http.R().SetContext(ctx).SetHeaders(a.exchangeHeaders())
	if symbol != "" {
		req = req.SetQueryParam("symbol", symbol)
	}
	var result []wireOrder
	resp, err := req.SetResult(&result).Get("/exchanges/" + a.name + "/orders")
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("open orders: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make([]types.Order, 0, len(result))
	for _, o := range result {
		out = append(out, toOrder(o, a.name))
	}
	return out, nil
}

type wireOrderRequest struct {
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       *string         `json:"price,omitempty"`
	TimeInForce string          `json:"time_in_force"`
}

func (a *Adapter) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := a.rl.Order.Wait(ctx); err != nil {
		return types.Order{}, err
	}
	wireReq := wireOrderRequest{
		Symbol:      req.Symbol,
		Side:        req.Side.String(),
		Type:        req.OrderType.String(),
		Quantity:    req.Quantity,
		TimeInForce: req.TimeInForce.String(),
	}
	if req.Price != nil {
		priceStr := req.Price.String()
		wireReq.Price = &priceStr
	}
	var result wireOrder
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeaders(a.exchangeHeaders()).
		SetBody(wireReq).
		SetResult(&result).
		Post("/exchanges/" + a.name + "/orders")
	if err != nil {
		return types.Order{}, fmt.Errorf("place order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return types.Order{}, fmt.Errorf("place order: status %d: %s", resp.StatusCode(), resp.String())
	}
	order := toOrder(result, a.name)
	order.OrderRequest = req
	return order, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID, symbol string) (types.Order, error) {
	if err := a.rl.Cancel.Wait(ctx); err != nil {
		return types.Order{}, err
	}
	var result wireOrder
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeaders(a.exchangeHeaders()).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Delete("/exchanges/" + a.name + "/orders/" + orderID)
	if err != nil {
		return types.Order{}, fmt.Errorf("cancel order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Order{}, fmt.Errorf("cancel order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return toOrder(result, a.name), nil
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	if err := a.rl.Cancel.Wait(ctx); err != nil {
		return nil, err
	}
	req := a.http.R().SetContext(ctx).SetHeaders(a.exchangeHeaders())
	if symbol != "" {
		req = req.SetQueryParam("symbol", symbol)
	}
	var result []wireOrder
	resp, err := req.SetResult(&result).Delete("/exchanges/" + a.name + "/orders")
	if err != nil {
		return nil, fmt.Errorf("cancel all orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("cancel all orders: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make([]types.Order, 0, len(result))
	for _, o := range result {
		out = append(out, toOrder(o, a.name))
	}
	return out, nil
}

// SubscribeTicker, SubscribeTrades, SubscribeOrderbook and SubscribeOrders
// all fail: the ccxt proxy is polled, not pushed, so streaming is not
// advertised in Capabilities and callers must not reach these.
func (a *Adapter) SubscribeTicker(symbol string, cb venue.TickerCallback) error {
	return fmt.Errorf("ccxt: %w: streaming is not available through the proxy", venue.ErrNotSupported)
}

func (a *Adapter) SubscribeTrades(symbol string, cb venue.TradeCallback) error {
	return fmt.Errorf("ccxt: %w: streaming is not available through the proxy", venue.ErrNotSupported)
}

func (a *Adapter) SubscribeOrderbook(symbol string, cb venue.OrderbookCallback) error {
	return fmt.Errorf("ccxt: %w: streaming is not available through the proxy", venue.ErrNotSupported)
}

func (a *Adapter) SubscribeOrders(cb venue.OrderCallback) error {
	return fmt.Errorf("ccxt: %w: streaming is not available through the proxy", venue.ErrNotSupported)
}

func (a *Adapter) UnsubscribeAll() {}
