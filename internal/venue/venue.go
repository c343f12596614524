// Package venue defines the contract every trading venue implementation
// satisfies: a capability record plus an interface, so the trading client
// and arbitrage engines dispatch through one abstract surface regardless of
// whether the concrete venue is a native CLOB, a native AMM, a CCXT-bridged
// exchange, or a Hummingbot gateway connector.
package venue

import (
	"context"
	"errors"

	"github.com/luxfi/tradefabric/internal/book"
	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

// Sentinel errors every caller can match with errors.Is.
var (
	// ErrNotSupported is returned by an AMM-family operation on an adapter
	// that does not implement it. It must never be papered over with a
	// silent success.
	ErrNotSupported = errors.New("venue: operation not supported")
	ErrNotConnected = errors.New("venue: adapter not connected")
)

// Capabilities is a fixed record of booleans plus batch size and supported
// pairs, advertising what an adapter can do.
type Capabilities struct {
	LimitOrders     bool
	MarketOrders    bool
	StopOrders      bool
	PostOnly        bool
	CancelOrders    bool
	BatchOrders     bool
	Streaming       bool
	Orderbook       bool
	Trades          bool
	AMMSwap         bool
	AddLiquidity    bool
	RemoveLiquidity bool
	LPPositions     bool
	MaxBatchSize    int
	SupportedPairs  map[string]bool
}

// CLOBCapabilities returns the default shape for a central-limit venue:
// full order lifecycle plus streaming.
func CLOBCapabilities() Capabilities {
	return Capabilities{
		LimitOrders:  true,
		MarketOrders: true,
		StopOrders:   true,
		PostOnly:     true,
		CancelOrders: true,
		BatchOrders:  true,
		Streaming:    true,
		Orderbook:    true,
		Trades:       true,
		MaxBatchSize: 10,
	}
}

// AMMCapabilities returns the default shape for an AMM venue: swap plus
// liquidity operations, no resting-order lifecycle.
func AMMCapabilities() Capabilities {
	return Capabilities{
		MarketOrders:    true,
		Streaming:       true,
		Trades:          true,
		AMMSwap:         true,
		AddLiquidity:    true,
		RemoveLiquidity: true,
		LPPositions:     true,
		MaxBatchSize:    1,
	}
}

// SubscriptionKind identifies one of the four streaming subscription kinds.
type SubscriptionKind string

const (
	SubTicker    SubscriptionKind = "ticker"
	SubTrades    SubscriptionKind = "trades"
	SubOrderbook SubscriptionKind = "orderbook"
	SubOrders    SubscriptionKind = "orders"
)

// SwapQuote is the result of asking an AMM venue what a swap would cost.
type SwapQuote struct {
	BaseToken  string
	QuoteToken string
	Amount     decimal.Decimal
	Price      decimal.Decimal
	PriceImpact decimal.Decimal
	IsBuy      bool
}

// PoolInfo describes an AMM liquidity pool's current state.
type PoolInfo struct {
	Address      string
	BaseToken    string
	QuoteToken   string
	BaseReserve  decimal.Decimal
	QuoteReserve decimal.Decimal
	FeeBps       int
}

// LiquidityResult is the outcome of an add/remove-liquidity call.
type LiquidityResult struct {
	PoolAddress  string
	LPTokensDelta decimal.Decimal
	BaseAmount   decimal.Decimal
	QuoteAmount  decimal.Decimal
}

// LPPosition is one liquidity-provider position held by the account.
type LPPosition struct {
	PoolAddress string
	LPTokens    decimal.Decimal
	BaseShare   decimal.Decimal
	QuoteShare  decimal.Decimal
}

// Info is the adapter's self-description: name, type, connection state,
// capabilities, and optional measured latency.
type Info struct {
	Name           string
	Type           types.VenueType
	Connected      bool
	LatencyMs      *int
	Capabilities   Capabilities
}

// TickerCallback, TradeCallback, OrderbookCallback and OrderCallback are
// invoked once per update on an adapter-chosen goroutine. Implementations
// must not block inside a callback.
type (
	TickerCallback    func(types.Ticker)
	TradeCallback     func(types.Trade)
	OrderbookCallback func(book.Snapshot)
	OrderCallback     func(types.Order)
)

// Adapter is the contract every venue implementation satisfies.
type Adapter interface {
	Name() string
	Type() types.VenueType
	Capabilities() Capabilities
	IsConnected() bool
	LatencyMs() (int, bool)
	Info() Info

	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	Markets(ctx context.Context) ([]types.MarketInfo, error)
	Ticker(ctx context.Context, symbol string) (types.Ticker, error)
	// Orderbook returns a populated per-venue book; depth<=0 means venue default.
	Orderbook(ctx context.Context, symbol string, depth int) (*book.Book, error)
	Trades(ctx context.Context, symbol string, limit int) ([]types.Trade, error)

	Balances(ctx context.Context) ([]types.Balance, error)
	Balance(ctx context.Context, asset string) (types.Balance, error)
	// OpenOrders returns open orders, optionally filtered by symbol (empty = all).
	OpenOrders(ctx context.Context, symbol string) ([]types.Order, error)

	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
	CancelOrder(ctx context.Context, orderID, symbol string) (types.Order, error)
	// CancelAllOrders cancels every open order, optionally filtered by symbol.
	CancelAllOrders(ctx context.Context, symbol string) ([]types.Order, error)

	// AMM-family operations. Adapters that do not implement the AMM side
	// embed UnsupportedAMM and inherit ErrNotSupported for all six.
	SwapQuote(ctx context.Context, baseToken, quoteToken string, amount decimal.Decimal, isBuy bool) (SwapQuote, error)
	ExecuteSwap(ctx context.Context, baseToken, quoteToken string, amount, slippage decimal.Decimal, isBuy bool) (types.Trade, error)
	PoolInfo(ctx context.Context, baseToken, quoteToken string) (PoolInfo, error)
	AddLiquidity(ctx context.Context, baseToken, quoteToken string, baseAmount, quoteAmount, slippage decimal.Decimal) (LiquidityResult, error)
	RemoveLiquidity(ctx context.Context, poolAddress string, liquidityAmount, slippage decimal.Decimal) (LiquidityResult, error)
	LPPositions(ctx context.Context) ([]LPPosition, error)

	SubscribeTicker(symbol string, cb TickerCallback) error
	SubscribeTrades(symbol string, cb TradeCallback) error
	SubscribeOrderbook(symbol string, cb OrderbookCallback) error
	SubscribeOrders(cb OrderCallback) error
	UnsubscribeAll()
}

// UnsupportedAMM is embedded by adapters whose venue has no AMM surface
// (native CLOB, CCXT, Hummingbot-as-CLOB). Every method returns
// ErrNotSupported, matching the source's default-throwing virtual methods,
// generalized to Go's "fail explicitly, never silently succeed" idiom.
type UnsupportedAMM struct{}

func (UnsupportedAMM) SwapQuote(context.Context, string, string, decimal.Decimal, bool) (SwapQuote, error) {
	return SwapQuote{}, ErrNotSupported
}

func (UnsupportedAMM) ExecuteSwap(context.Context, string, string, decimal.Decimal, decimal.Decimal, bool) (types.Trade, error) {
	return types.Trade{}, ErrNotSupported
}

func (UnsupportedAMM) PoolInfo(context.Context, string, string) (PoolInfo, error) {
	return PoolInfo{}, ErrNotSupported
}

func (UnsupportedAMM) AddLiquidity(context.Context, string, string, decimal.Decimal, decimal.Decimal, decimal.Decimal) (LiquidityResult, error) {
	return LiquidityResult{}, ErrNotSupported
}

func (UnsupportedAMM) RemoveLiquidity(context.Context, string, decimal.Decimal, decimal.Decimal) (LiquidityResult, error) {
	return LiquidityResult{}, ErrNotSupported
}

func (UnsupportedAMM) LPPositions(context.Context) ([]LPPosition, error) {
	return nil, ErrNotSupported
}
