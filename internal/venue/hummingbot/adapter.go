// Package hummingbot implements an Adapter for a Hummingbot Gateway
// connector, doubling as the fabric's DEX-gateway venue family: Gateway
// fronts a connector+chain+network triple (e.g. uniswap/ethereum/mainnet)
// over a local HTTP(S) REST surface.
package hummingbot

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

// Config configures a connection to one Hummingbot Gateway connector.
type Config struct {
	Name       string // venue name within the fabric
	Host       string
	Port       int
	UseHTTPS   bool
	Connector  string // e.g. "uniswap"
	Chain      string // e.g. "ethereum"
	Network    string // e.g. "mainnet"
	PrivateKey string // hex-encoded wallet key for signed requests
}

func (c Config) baseURL() string {
	scheme := "http"
	if c.UseHTTPS {
		scheme = "https"
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 15888
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Adapter bridges one Hummingbot Gateway connector. It embeds
// venue.UnsupportedAMM: although Gateway itself fronts AMMs, this
// adapter's contract surface here is the Gateway's CLOB-shaped trading API
// (Gateway abstracts the AMM mechanics away); a venue wanting the native
// AMM swap/liquidity surface uses internal/venue/native's AMMAdapter
// instead.
type Adapter struct {
	venue.UnsupportedAMM

	name      string
	connector string
	chain     string
	network   string
	http      *resty.Client
	auth      *venue.SignedTimestampAuth
	rl        *venue.RateLimiter

	connected atomic.Bool
	latencyMs atomic.Int64

	logger *slog.Logger
}

// New creates a Hummingbot Gateway Adapter. Connect must be called before
// trading.
func New(cfg Config, logger *slog.Logger) (*Adapter, error) {
	httpClient := resty.New().
		SetBaseURL(cfg.baseURL()).
		SetTimeout(15 * time.Second).
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

	var auth *venue.SignedTimestampAuth
	if cfg.PrivateKey != "" {
		var err error
		auth, err = venue.NewSignedTimestampAuth(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("hummingbot auth: %w", err)
		}
	}

	a := &Adapter{
		name:      cfg.Name,
		connector: cfg.Connector,
		chain:     cfg.Chain,
		network:   cfg.Network,
		http:      httpClient,
		auth:      auth,
		rl:        venue.NewRateLimiter(),
		logger:    logger.With("component", "hummingbot", "venue", cfg.Name, "connector", cfg.Connector),
	}
	a.latencyMs.Store(-1)
	return a, nil
}

func (a *Adapter) Name() string          { return a.name }
func (a *Adapter) Type() types.VenueType { return types.VenueHummingbot }

// Capabilities returns CLOB shape minus streaming: Gateway is polled over
// REST, it has no push feed.
func (a *Adapter) Capabilities() venue.Capabilities {
	caps := venue.CLOBCapabilities()
	caps.Streaming = false
	caps.MaxBatchSize = 1 // Gateway accepts one order per call
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
	info := venue.Info{Name: a.name, Type: types.VenueHummingbot, Connected: a.IsConnected(), Capabilities: a.Capabilities()}
	if ms, ok := a.LatencyMs(); ok {
		info.LatencyMs = &ms
	}
	return info
}

func (a *Adapter) walletIdentity() map[string]string {
	if a.auth == nil {
		return nil
	}
	return map[string]string{"X-WALLET-ADDRESS": a.auth.Address().Hex()}
}

func (a *Adapter) authHeaders(method, path, body string) map[string]string {
	if a.auth == nil {
		return nil
	}
	return a.auth.Headers(method, path, body)
}

func (a *Adapter) Connect(ctx context.Context) error {
	start := time.Now()
	if err := a.rl.Read.Wait(ctx); err != nil {
		return err
	}
	resp, err := a.http.R().SetContext(ctx).Get("/network/status")
	if err != nil {
		return fmt.Errorf("hummingbot connect: %w", err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("hummingbot connect: status %d", resp.StatusCode())
	}
	a.latencyMs.Store(time.Since(start).Milliseconds())
	a.connected.Store(true)
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	a.connected.Store(false)
	return nil
}

func (a *Adapter) connectorParams() map[string]string {
	return map[string]string{"connector": a.connector, "chain": a.chain, "network": a.network}
}

type wireMarket struct {
	Symbol   string          `json:"symbol"`
	Base     string          `json:"base"`
	Quote    string          `json:"quote"`
	Active   bool            `json:"active"`
	MinSize  decimal.Decimal `json:"min_size"`
	TickSize decimal.Decimal `json:"tick_size"`
}

func (a *Adapter) Markets(ctx context.Context) ([]types.MarketInfo, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	var result []wireMarket
	resp, err := a.http.R().SetContext(ctx).SetQueryParams(a.connectorParams()).SetResult(&result).Get("/amm/markets")
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
	params := a.connectorParams()
	params["symbol"] = symbol
	var result wireTicker
	resp, err := a.http.R().SetContext(ctx).SetQueryParams(params).SetResult(&result).Get("/amm/price")
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
	params := a.connectorParams()
	params["symbol"] = symbol
	if depth > 0 {
		params["depth"] = fmt.Sprintf("%d", depth)
	}
	var result wireOrderbook
	resp, err := a.http.R().SetContext(ctx).SetQueryParams(params).SetResult(&result).Get("/amm/orderbook")
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
	params := a.connectorParams()
	params["symbol"] = symbol
	if limit > 0 {
		params["limit"] = fmt.Sprintf("%d", limit)
	}
	var result []wireTrade
	resp, err := a.http.R().SetContext(ctx).SetQueryParams(params).SetResult(&result).Get("/amm/trades")
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
	params := a.connectorParams()
	headers := a.walletIdentity()
	var result []wireBalance
	resp, err := a.http.R().SetContext(ctx).SetQueryParams(params).SetHeaders(headers).SetResult(&result).Get("/wallet/balances")
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

// OpenOrders always returns empty: Gateway-mediated AMM swaps settle
// atomically on-chain, there is no resting-order concept to list.
func (a *Adapter) OpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	return nil, nil
}

type wireSwapRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Amount   string `json:"amount"`
	Slippage string `json:"slippage,omitempty"`
}

type wireOrder struct {
	OrderID     string          `json:"order_id"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Status      string          `json:"status"`
	Quantity    decimal.Decimal `json:"quantity"`
	Filled      decimal.Decimal `json:"filled"`
	Price       decimal.Decimal `json:"price"`
	CreatedAtMs int64           `json:"created_at_ms"`
	UpdatedAtMs int64           `json:"updated_at_ms"`
}

// PlaceOrder submits a swap through Gateway. Gateway settles swaps
// atomically, so the returned Order is always immediately terminal
// (filled or rejected) — there is no partial-fill lifecycle to poll.
func (a *Adapter) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := a.rl.Order.Wait(ctx); err != nil {
		return types.Order{}, err
	}
	wireReq := wireSwapRequest{Symbol: req.Symbol, Side: req.Side.String(), Amount: req.Quantity.String()}
	headers := a.authHeaders("POST", "/amm/trade", "")

	var result wireOrder
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(a.connectorParams()).
		SetHeaders(headers).
		SetBody(wireReq).
		SetResult(&result).
		Post("/amm/trade")
	if err != nil {
		return types.Order{}, fmt.Errorf("place order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Order{}, fmt.Errorf("place order: status %d: %s", resp.StatusCode(), resp.String())
	}

	order := types.Order{
		OrderRequest: req,
		OrderID:      result.OrderID,
		Status:       types.OrderStatus(result.Status),
		Filled:       result.Filled,
		Remaining:    req.Quantity.Sub(result.Filled),
		Venue:        a.name,
		CreatedAt:    time.UnixMilli(result.CreatedAtMs),
		UpdatedAt:    time.UnixMilli(result.UpdatedAtMs),
	}
	return order, nil
}

// CancelOrder always fails: a Gateway swap settles atomically in the same
// call that placed it, so there is nothing left open to cancel.
func (a *Adapter) CancelOrder(ctx context.Context, orderID, symbol string) (types.Order, error) {
	return types.Order{}, fmt.Errorf("hummingbot: %w: swaps settle atomically, nothing to cancel", venue.ErrNotSupported)
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	return nil, nil
}

// SubscribeTicker, SubscribeTrades, SubscribeOrderbook and SubscribeOrders
// all fail: Gateway has no push feed.
func (a *Adapter) SubscribeTicker(symbol string, cb venue.TickerCallback) error {
	return fmt.Errorf("hummingbot: %w: gateway has no push feed", venue.ErrNotSupported)
}

func (a *Adapter) SubscribeTrades(symbol string, cb venue.TradeCallback) error {
	return fmt.Errorf("hummingbot: %w: gateway has no push feed", venue.ErrNotSupported)
}

func (a *Adapter) SubscribeOrderbook(symbol string, cb venue.OrderbookCallback) error {
	return fmt.Errorf("hummingbot: %w: gateway has no push feed", venue.ErrNotSupported)
}

func (a *Adapter) SubscribeOrders(cb venue.OrderCallback) error {
	return fmt.Errorf("hummingbot: %w: gateway has no push feed", venue.ErrNotSupported)
}

func (a *Adapter) UnsubscribeAll() {}
