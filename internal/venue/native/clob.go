package native

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	internalbook "github.com/luxfi/tradefabric/internal/book"
	"github.com/luxfi/tradefabric/internal/venue"
	"github.com/luxfi/tradefabric/pkg/types"
)

// CLOBAdapter speaks the native central-limit order book REST/WS surface.
// It embeds venue.UnsupportedAMM: none of the six AMM methods apply here.
type CLOBAdapter struct {
	venue.UnsupportedAMM

	name string
	http *resty.Client
	auth *venue.SignedTimestampAuth
	rl   *venue.RateLimiter

	connected atomic.Bool
	latencyMs atomic.Int64 // negative means "unset"

	streams   *streamSet
	logger    *slog.Logger
}

// Config configures a CLOBAdapter connection.
type Config struct {
	Name       string
	RestURL    string
	WSURL      string
	PrivateKey string // hex-encoded ECDSA key, optional for read-only usage
}

// New creates a CLOBAdapter. Connect must be called before trading.
func New(cfg Config, logger *slog.Logger) (*CLOBAdapter, error) {
	httpClient := resty.New().
		SetBaseURL(cfg.RestURL).
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

	var auth *venue.SignedTimestampAuth
	if cfg.PrivateKey != "" {
		var err error
		auth, err = venue.NewSignedTimestampAuth(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("native clob auth: %w", err)
		}
	}

	a := &CLOBAdapter{
		name:   cfg.Name,
		http:   httpClient,
		auth:   auth,
		rl:     venue.NewRateLimiter(),
		logger: logger.With("component", "native_clob", "venue", cfg.Name),
	}
	a.latencyMs.Store(-1)
	a.streams = newStreamSet(cfg.WSURL, auth, a.logger)
	return a, nil
}

func (a *CLOBAdapter) Name() string            { return a.name }
func (a *CLOBAdapter) Type() types.VenueType   { return types.VenueNative }
func (a *CLOBAdapter) Capabilities() venue.Capabilities { return venue.CLOBCapabilities() }
func (a *CLOBAdapter) IsConnected() bool       { return a.connected.Load() }

func (a *CLOBAdapter) LatencyMs() (int, bool) {
	ms := a.latencyMs.Load()
	if ms < 0 {
		return 0, false
	}
	return int(ms), true
}

func (a *CLOBAdapter) Info() venue.Info {
	info := venue.Info{
		Name:         a.name,
		Type:         types.VenueNative,
		Connected:    a.IsConnected(),
		Capabilities: a.Capabilities(),
	}
	if ms, ok := a.LatencyMs(); ok {
		info.LatencyMs = &ms
	}
	return info
}

// Connect verifies connectivity by fetching the market list once and starts
// the background streaming connection.
func (a *CLOBAdapter) Connect(ctx context.Context) error {
	start := time.Now()
	if _, err := a.Markets(ctx); err != nil {
		return fmt.Errorf("native clob connect: %w", err)
	}
	a.latencyMs.Store(time.Since(start).Milliseconds())
	a.connected.Store(true)
	a.streams.start(ctx)
	return nil
}

func (a *CLOBAdapter) Disconnect(ctx context.Context) error {
	a.streams.stop()
	a.connected.Store(false)
	return nil
}

func (a *CLOBAdapter) authHeaders(method, path, body string) map[string]string {
	if a.auth == nil {
		return nil
	}
	return a.auth.Headers(method, path, body)
}

func (a *CLOBAdapter) Markets(ctx context.Context) ([]types.MarketInfo, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	var result []wireMarket
	resp, err := a.http.R().SetContext(ctx).SetResult(&result).Get("/markets")
	if err != nil {
		return nil, fmt.Errorf("markets: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("markets: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make([]types.MarketInfo, 0, len(result))
	for _, m := range result {
		out = append(out, types.MarketInfo{
			Symbol:   m.Symbol,
			Venue:    a.name,
			Base:     m.Base,
			Quote:    m.Quote,
			Active:   m.Active,
			MinSize:  m.MinSize,
			TickSize: m.TickSize,
		})
	}
	return out, nil
}

func (a *CLOBAdapter) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return types.Ticker{}, err
	}
	var result wireTicker
	path := "/ticker/" + symbol
	resp, err := a.http.R().SetContext(ctx).SetResult(&result).Get(path)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("ticker: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Ticker{}, fmt.Errorf("ticker: status %d: %s", resp.StatusCode(), resp.String())
	}
	return types.Ticker{
		Symbol:    symbol,
		Venue:     a.name,
		Bid:       result.Bid,
		Ask:       result.Ask,
		Last:      result.Last,
		Timestamp: result.time(),
	}, nil
}

// Orderbook fetches a fresh book snapshot and returns a populated *book.Book.
// depth<=0 requests the venue's default depth (param omitted).
func (a *CLOBAdapter) Orderbook(ctx context.Context, symbol string, depth int) (*internalbook.Book, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	req := a.http.R().SetContext(ctx)
	if depth > 0 {
		req = req.SetQueryParam("depth", fmt.Sprintf("%d", depth))
	}
	var result wireOrderbook
	resp, err := req.SetResult(&result).Get("/orderbook/" + symbol)
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

func (a *CLOBAdapter) Trades(ctx context.Context, symbol string, limit int) ([]types.Trade, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	req := a.http.R().SetContext(ctx)
	if limit > 0 {
		req = req.SetQueryParam("limit", fmt.Sprintf("%d", limit))
	}
	var result []wireTrade
	resp, err := req.SetResult(&result).Get("/trades/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("trades: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("trades: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make([]types.Trade, 0, len(result))
	for _, t := range result {
		out = append(out, types.Trade{
			ID:        t.ID,
			Symbol:    symbol,
			Venue:     a.name,
			Side:      types.Side(t.Side),
			Price:     t.Price,
			Size:      t.Size,
			Timestamp: t.time(),
		})
	}
	return out, nil
}

func (a *CLOBAdapter) Balances(ctx context.Context) ([]types.Balance, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	headers := a.authHeaders("GET", "/balances", "")
	var result []wireBalance
	resp, err := a.http.R().SetContext(ctx).SetHeaders(headers).SetResult(&result).Get("/balances")
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

func (a *CLOBAdapter) Balance(ctx context.Context, asset string) (types.Balance, error) {
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

func (a *CLOBAdapter) OpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	req := a.http.R().SetContext(ctx)
	if symbol != "" {
		req = req.SetQueryParam("symbol", symbol)
	}
	headers := a.authHeaders("GET", "/orders", "")
	var result []wireOrder
	resp, err := req.SetHeaders(headers).SetResult(&result).Get("/orders")
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

func (a *CLOBAdapter) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := a.rl.Order.Wait(ctx); err != nil {
		return types.Order{}, err
	}

	wireReq := wireOrderRequest{
		Symbol:        req.Symbol,
		Side:          req.Side.String(),
		Type:          req.OrderType.String(),
		Quantity:      req.Quantity,
		TimeInForce:   req.TimeInForce.String(),
		ClientOrderID: req.ClientOrderID,
		PostOnly:      req.PostOnly,
	}
	if req.Price != nil {
		priceStr := req.Price.String()
		wireReq.Price = &priceStr
	}

	body, err := toJSON(wireReq)
	if err != nil {
		return types.Order{}, fmt.Errorf("marshal order: %w", err)
	}
	headers := a.authHeaders("POST", "/orders", body)

	var result wireOrder
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(wireReq).
		SetResult(&result).
		Post("/orders")
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

func (a *CLOBAdapter) CancelOrder(ctx context.Context, orderID, symbol string) (types.Order, error) {
	if err := a.rl.Cancel.Wait(ctx); err != nil {
		return types.Order{}, err
	}
	path := "/orders/" + orderID
	headers := a.authHeaders("DELETE", path, "")
	var result wireOrder
	resp, err := a.http.R().SetContext(ctx).SetHeaders(headers).SetResult(&result).Delete(path)
	if err != nil {
		return types.Order{}, fmt.Errorf("cancel order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Order{}, fmt.Errorf("cancel order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return toOrder(result, a.name), nil
}

func (a *CLOBAdapter) CancelAllOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	if err := a.rl.Cancel.Wait(ctx); err != nil {
		return nil, err
	}
	req := a.http.R().SetContext(ctx)
	if symbol != "" {
		req = req.SetQueryParam("symbol", symbol)
	}
	headers := a.authHeaders("DELETE", "/orders", "")
	var result []wireOrder
	resp, err := req.SetHeaders(headers).SetResult(&result).Delete("/orders")
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

func toOrder(w wireOrder, venueName string) types.Order {
	o := types.Order{
		OrderRequest: types.OrderRequest{
			Symbol:        w.Symbol,
			Side:          types.Side(w.Side),
			OrderType:     types.OrderType(w.Type),
			Quantity:      w.Quantity,
			Price:         w.Price,
			ClientOrderID: w.ClientOrderID,
			Venue:         venueName,
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
	for _, f := range w.Fees {
		o.Fees = append(o.Fees, types.Fee{Asset: f.Asset, Amount: f.Amount})
	}
	return o
}

// SubscribeTicker, SubscribeTrades, SubscribeOrderbook, SubscribeOrders and
// UnsubscribeAll delegate to the adapter's streaming connection.
func (a *CLOBAdapter) SubscribeTicker(symbol string, cb venue.TickerCallback) error {
	return a.streams.subscribeTicker(symbol, cb)
}

func (a *CLOBAdapter) SubscribeTrades(symbol string, cb venue.TradeCallback) error {
	return a.streams.subscribeTrades(symbol, cb)
}

func (a *CLOBAdapter) SubscribeOrderbook(symbol string, cb venue.OrderbookCallback) error {
	return a.streams.subscribeOrderbook(symbol, cb)
}

func (a *CLOBAdapter) SubscribeOrders(cb venue.OrderCallback) error {
	return a.streams.subscribeOrders(cb)
}

func (a *CLOBAdapter) UnsubscribeAll() {
	a.streams.unsubscribeAll()
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
