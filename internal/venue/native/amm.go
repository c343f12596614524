package native

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"

	internalbook "github.com/luxfi/tradefabric/internal/book"
	"github.com/luxfi/tradefabric/internal/venue"
	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

// AMMAdapter speaks the native automated-market-maker REST surface running
// on an EVM-compatible Lux subnet. Pool and LP token identifiers are
// carried as strings; PoolInfo normalises the pool address to its
// checksummed hex form via common.HexToAddress.
type AMMAdapter struct {
	name string
	http *resty.Client
	auth *venue.SignedTimestampAuth
	rl   *venue.RateLimiter

	connected atomic.Bool
	latencyMs atomic.Int64

	logger *slog.Logger
}

// NewAMM creates an AMMAdapter. Connect must be called before trading.
func NewAMM(cfg Config, logger *slog.Logger) (*AMMAdapter, error) {
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
			return nil, fmt.Errorf("native amm auth: %w", err)
		}
	}

	a := &AMMAdapter{
		name:   cfg.Name,
		http:   httpClient,
		auth:   auth,
		rl:     venue.NewRateLimiter(),
		logger: logger.With("component", "native_amm", "venue", cfg.Name),
	}
	a.latencyMs.Store(-1)
	return a, nil
}

func (a *AMMAdapter) Name() string          { return a.name }
func (a *AMMAdapter) Type() types.VenueType { return types.VenueNative }
func (a *AMMAdapter) Capabilities() venue.Capabilities { return venue.AMMCapabilities() }
func (a *AMMAdapter) IsConnected() bool     { return a.connected.Load() }

func (a *AMMAdapter) LatencyMs() (int, bool) {
	ms := a.latencyMs.Load()
	if ms < 0 {
		return 0, false
	}
	return int(ms), true
}

func (a *AMMAdapter) Info() venue.Info {
	info := venue.Info{Name: a.name, Type: types.VenueNative, Connected: a.IsConnected(), Capabilities: a.Capabilities()}
	if ms, ok := a.LatencyMs(); ok {
		info.LatencyMs = &ms
	}
	return info
}

func (a *AMMAdapter) Connect(ctx context.Context) error {
	start := time.Now()
	if err := a.rl.Read.Wait(ctx); err != nil {
		return err
	}
	resp, err := a.http.R().SetContext(ctx).Get("/pool")
	if err != nil {
		return fmt.Errorf("native amm connect: %w", err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("native amm connect: status %d", resp.StatusCode())
	}
	a.latencyMs.Store(time.Since(start).Milliseconds())
	a.connected.Store(true)
	return nil
}

func (a *AMMAdapter) Disconnect(ctx context.Context) error {
	a.connected.Store(false)
	return nil
}

func (a *AMMAdapter) authHeaders(method, path, body string) map[string]string {
	if a.auth == nil {
		return nil
	}
	return a.auth.Headers(method, path, body)
}

func (a *AMMAdapter) Markets(ctx context.Context) ([]types.MarketInfo, error) {
	return nil, nil
}

func (a *AMMAdapter) Ticker(ctx context.Context, symbol string) (types.Ticker, error) {
	return types.Ticker{}, fmt.Errorf("native amm: %w: ticker is a CLOB-only concept", venue.ErrNotSupported)
}

func (a *AMMAdapter) Orderbook(ctx context.Context, symbol string, depth int) (*internalbook.Book, error) {
	return nil, fmt.Errorf("native amm: %w: orderbook is a CLOB-only concept", venue.ErrNotSupported)
}

func (a *AMMAdapter) Trades(ctx context.Context, symbol string, limit int) ([]types.Trade, error) {
	return nil, nil
}

func (a *AMMAdapter) Balances(ctx context.Context) ([]types.Balance, error) {
	return nil, nil
}

func (a *AMMAdapter) Balance(ctx context.Context, asset string) (types.Balance, error) {
	return types.Balance{Asset: asset, Venue: a.name}, nil
}

func (a *AMMAdapter) OpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	return nil, nil
}

func (a *AMMAdapter) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	return types.Order{}, fmt.Errorf("native amm: %w: use ExecuteSwap instead of PlaceOrder", venue.ErrNotSupported)
}

func (a *AMMAdapter) CancelOrder(ctx context.Context, orderID, symbol string) (types.Order, error) {
	return types.Order{}, fmt.Errorf("native amm: %w", venue.ErrNotSupported)
}

func (a *AMMAdapter) CancelAllOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	return nil, nil
}

type wireSwapQuote struct {
	BaseToken   string          `json:"base_token"`
	QuoteToken  string          `json:"quote_token"`
	Amount      decimal.Decimal `json:"amount"`
	Price       decimal.Decimal `json:"price"`
	PriceImpact decimal.Decimal `json:"price_impact"`
}

func (a *AMMAdapter) SwapQuote(ctx context.Context, baseToken, quoteToken string, amount decimal.Decimal, isBuy bool) (venue.SwapQuote, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return venue.SwapQuote{}, err
	}
	var result wireSwapQuote
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"base_token":  baseToken,
			"quote_token": quoteToken,
			"amount":      amount.String(),
			"is_buy":      fmt.Sprintf("%t", isBuy),
		}).
		SetResult(&result).
		Get("/quote")
	if err != nil {
		return venue.SwapQuote{}, fmt.Errorf("swap quote: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return venue.SwapQuote{}, fmt.Errorf("swap quote: status %d: %s", resp.StatusCode(), resp.String())
	}
	return venue.SwapQuote{
		BaseToken:   result.BaseToken,
		QuoteToken:  result.QuoteToken,
		Amount:      result.Amount,
		Price:       result.Price,
		PriceImpact: result.PriceImpact,
		IsBuy:       isBuy,
	}, nil
}

type wireSwapRequest struct {
	BaseToken  string `json:"base_token"`
	QuoteToken string `json:"quote_token"`
	Amount     string `json:"amount"`
	Slippage   string `json:"slippage"`
	IsBuy      bool   `json:"is_buy"`
}

type wireSwapResult struct {
	ID        string          `json:"id"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Timestamp int64           `json:"timestamp_ms"`
}

func (a *AMMAdapter) ExecuteSwap(ctx context.Context, baseToken, quoteToken string, amount, slippage decimal.Decimal, isBuy bool) (types.Trade, error) {
	if err := a.rl.Order.Wait(ctx); err != nil {
		return types.Trade{}, err
	}
	reqBody := wireSwapRequest{
		BaseToken:  baseToken,
		QuoteToken: quoteToken,
		Amount:     amount.String(),
		Slippage:   slippage.String(),
		IsBuy:      isBuy,
	}
	body, _ := json.Marshal(reqBody)
	headers := a.authHeaders("POST", "/swap", string(body))

	var result wireSwapResult
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(reqBody).
		SetResult(&result).
		Post("/swap")
	if err != nil {
		return types.Trade{}, fmt.Errorf("execute swap: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.Trade{}, fmt.Errorf("execute swap: status %d: %s", resp.StatusCode(), resp.String())
	}
	return types.Trade{
		ID:        result.ID,
		Symbol:    baseToken + "-" + quoteToken,
		Venue:     a.name,
		Side:      types.Side(result.Side),
		Price:     result.Price,
		Size:      result.Size,
		Timestamp: time.UnixMilli(result.Timestamp),
	}, nil
}

type wirePoolInfo struct {
	Address      string          `json:"address"`
	BaseToken    string          `json:"base_token"`
	QuoteToken   string          `json:"quote_token"`
	BaseReserve  decimal.Decimal `json:"base_reserve"`
	QuoteReserve decimal.Decimal `json:"quote_reserve"`
	FeeBps       int             `json:"fee_bps"`
}

func (a *AMMAdapter) PoolInfo(ctx context.Context, baseToken, quoteToken string) (venue.PoolInfo, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return venue.PoolInfo{}, err
	}
	var result wirePoolInfo
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"base_token": baseToken, "quote_token": quoteToken}).
		SetResult(&result).
		Get("/pool")
	if err != nil {
		return venue.PoolInfo{}, fmt.Errorf("pool info: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return venue.PoolInfo{}, fmt.Errorf("pool info: status %d: %s", resp.StatusCode(), resp.String())
	}
	addr := common.HexToAddress(result.Address)
	return venue.PoolInfo{
		Address:      addr.Hex(),
		BaseToken:    result.BaseToken,
		QuoteToken:   result.QuoteToken,
		BaseReserve:  result.BaseReserve,
		QuoteReserve: result.QuoteReserve,
		FeeBps:       result.FeeBps,
	}, nil
}

type wireLiquidityRequest struct {
	BaseToken   string `json:"base_token,omitempty"`
	QuoteToken  string `json:"quote_token,omitempty"`
	PoolAddress string `json:"pool_address,omitempty"`
	BaseAmount  string `json:"base_amount,omitempty"`
	QuoteAmount string `json:"quote_amount,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Slippage    string `json:"slippage"`
}

type wireLiquidityResult struct {
	PoolAddress   string          `json:"pool_address"`
	LPTokensDelta decimal.Decimal `json:"lp_tokens_delta"`
	BaseAmount    decimal.Decimal `json:"base_amount"`
	QuoteAmount   decimal.Decimal `json:"quote_amount"`
}

func (a *AMMAdapter) AddLiquidity(ctx context.Context, baseToken, quoteToken string, baseAmount, quoteAmount, slippage decimal.Decimal) (venue.LiquidityResult, error) {
	if err := a.rl.Order.Wait(ctx); err != nil {
		return venue.LiquidityResult{}, err
	}
	reqBody := wireLiquidityRequest{
		BaseToken:   baseToken,
		QuoteToken:  quoteToken,
		BaseAmount:  baseAmount.String(),
		QuoteAmount: quoteAmount.String(),
		Slippage:    slippage.String(),
	}
	body, _ := json.Marshal(reqBody)
	headers := a.authHeaders("POST", "/liquidity/add", string(body))

	var result wireLiquidityResult
	resp, err := a.http.R().SetContext(ctx).SetHeaders(headers).SetBody(reqBody).SetResult(&result).Post("/liquidity/add")
	if err != nil {
		return venue.LiquidityResult{}, fmt.Errorf("add liquidity: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return venue.LiquidityResult{}, fmt.Errorf("add liquidity: status %d: %s", resp.StatusCode(), resp.String())
	}
	return venue.LiquidityResult{
		PoolAddress:   result.PoolAddress,
		LPTokensDelta: result.LPTokensDelta,
		BaseAmount:    result.BaseAmount,
		QuoteAmount:   result.QuoteAmount,
	}, nil
}

func (a *AMMAdapter) RemoveLiquidity(ctx context.Context, poolAddress string, liquidityAmount, slippage decimal.Decimal) (venue.LiquidityResult, error) {
	if err := a.rl.Order.Wait(ctx); err != nil {
		return venue.LiquidityResult{}, err
	}
	reqBody := wireLiquidityRequest{
		PoolAddress: poolAddress,
		Amount:      liquidityAmount.String(),
		Slippage:    slippage.String(),
	}
	body, _ := json.Marshal(reqBody)
	headers := a.authHeaders("POST", "/liquidity/remove", string(body))

	var result wireLiquidityResult
	resp, err := a.http.R().SetContext(ctx).SetHeaders(headers).SetBody(reqBody).SetResult(&result).Post("/liquidity/remove")
	if err != nil {
		return venue.LiquidityResult{}, fmt.Errorf("remove liquidity: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return venue.LiquidityResult{}, fmt.Errorf("remove liquidity: status %d: %s", resp.StatusCode(), resp.String())
	}
	return venue.LiquidityResult{
		PoolAddress:   result.PoolAddress,
		LPTokensDelta: result.LPTokensDelta,
		BaseAmount:    result.BaseAmount,
		QuoteAmount:   result.QuoteAmount,
	}, nil
}

type wireLPPosition struct {
	PoolAddress string          `json:"pool_address"`
	LPTokens    decimal.Decimal `json:"lp_tokens"`
	BaseShare   decimal.Decimal `json:"base_share"`
	QuoteShare  decimal.Decimal `json:"quote_share"`
}

func (a *AMMAdapter) LPPositions(ctx context.Context) ([]venue.LPPosition, error) {
	if err := a.rl.Read.Wait(ctx); err != nil {
		return nil, err
	}
	headers := a.authHeaders("GET", "/positions", "")
	var result []wireLPPosition
	resp, err := a.http.R().SetContext(ctx).SetHeaders(headers).SetResult(&result).Get("/positions")
	if err != nil {
		return nil, fmt.Errorf("lp positions: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("lp positions: status %d: %s", resp.StatusCode(), resp.String())
	}
	out := make([]venue.LPPosition, 0, len(result))
	for _, p := range result {
		out = append(out, venue.LPPosition{
			PoolAddress: p.PoolAddress,
			LPTokens:    p.LPTokens,
			BaseShare:   p.BaseShare,
			QuoteShare:  p.QuoteShare,
		})
	}
	return out, nil
}

// SubscribeTicker, SubscribeTrades, SubscribeOrderbook, SubscribeOrders and
// UnsubscribeAll are no-ops that return nil: this adapter opens no stream
// connection and never invokes the registered callbacks, and its Trades
// method returns no trades.
func (a *AMMAdapter) SubscribeTicker(symbol string, cb venue.TickerCallback) error { return nil }
func (a *AMMAdapter) SubscribeTrades(symbol string, cb venue.TradeCallback) error  { return nil }
func (a *AMMAdapter) SubscribeOrderbook(symbol string, cb venue.OrderbookCallback) error {
	return nil
}
func (a *AMMAdapter) SubscribeOrders(cb venue.OrderCallback) error { return nil }
func (a *AMMAdapter) UnsubscribeAll()                              {}
