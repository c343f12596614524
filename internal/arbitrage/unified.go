package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/tradefabric/internal/book"
	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

// feeRate is the flat taker fee rate applied against the ask side when
// estimating net profit, per spec.md §4.9.
var feeRate = decimal.FromFloat(0.002)

// opportunityTTL is how long a queued opportunity remains executable before
// the executor marks it expired.
const opportunityTTL = 5 * time.Second

// opportunityQueueCapacity bounds the scanner->executor FIFO; once full, new
// opportunities are dropped (the newest, not the oldest).
const opportunityQueueCapacity = 1000

// UnifiedOpportunity is a detected cross-venue spread, queued for execution.
type UnifiedOpportunity struct {
	Symbol    string
	BuyVenue  string
	BuyPrice  decimal.Decimal
	SellVenue string
	SellPrice decimal.Decimal
	MaxSize   decimal.Decimal
	SpreadBps decimal.Decimal
	NetProfit decimal.Decimal
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UnifiedCallback is invoked once per opportunity pushed onto the queue.
type UnifiedCallback func(UnifiedOpportunity)

// ExecutionStatus is the terminal state of one executed (or expired)
// opportunity.
type ExecutionStatus string

const (
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionExpired   ExecutionStatus = "expired"
)

// UnifiedExecution records the outcome of one dequeued opportunity.
type UnifiedExecution struct {
	Opportunity UnifiedOpportunity
	Status      ExecutionStatus
	ActualPnL   decimal.Decimal
	Error       string
	ExecutedAt  time.Time
}

// UnifiedStats summarizes the execution history.
type UnifiedStats struct {
	Total      int
	Successful int
	TotalPnL   decimal.Decimal
	WinRate    decimal.Decimal
}

// aggregatedBookSource is the subset of the trading client the unified
// engine depends on: fetching the current cross-venue book and placing the
// two legs of an arbitrage trade. Modeled as an interface so the engine can
// be tested without a real client/adapter stack.
type aggregatedBookSource interface {
	AggregatedBook(ctx context.Context, symbol string) (*book.Aggregated, error)
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
}

// UnifiedConfig parameterizes the scanner's thresholds and pacing.
type UnifiedConfig struct {
	Symbols         []string
	MinSpreadBps    decimal.Decimal
	MinProfit       decimal.Decimal
	MaxPositionSize decimal.Decimal
	ScanInterval    time.Duration
}

// UnifiedEngine runs a scanner loop (finds spreads, enqueues opportunities)
// and an executor loop (dequeues, places both legs, records the outcome)
// as two cooperating goroutines, per spec.md §4.9.
type UnifiedEngine struct {
	cfg    UnifiedConfig
	client aggregatedBookSource
	logger *slog.Logger

	queueMu sync.Mutex
	queue   []UnifiedOpportunity

	callbacksMu sync.Mutex
	callbacks   []UnifiedCallback

	execMu     sync.RWMutex
	executions []UnifiedExecution

	running atomic.Bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewUnifiedEngine builds an engine over client, which must be able to fetch
// an aggregated book and place orders (the trading client satisfies this).
func NewUnifiedEngine(cfg UnifiedConfig, client aggregatedBookSource, logger *slog.Logger) *UnifiedEngine {
	return &UnifiedEngine{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "unified-arbitrage"),
	}
}

// OnOpportunity registers cb to be invoked once per enqueued opportunity.
func (e *UnifiedEngine) OnOpportunity(cb UnifiedCallback) {
	e.callbacksMu.Lock()
	e.callbacks = append(e.callbacks, cb)
	e.callbacksMu.Unlock()
}

// Start launches the scanner and executor goroutines. Idempotent with Stop:
// calling Start again after Stop creates a fresh pair of loops.
func (e *UnifiedEngine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running.Store(true)

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.scanLoop(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.executeLoop(ctx)
	}()
}

// Stop flips the running flag false; both loops exit on their next
// iteration, and Stop blocks until they do.
func (e *UnifiedEngine) Stop() {
	e.running.Store(false)
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *UnifiedEngine) scanLoop(ctx context.Context) {
	interval := e.cfg.ScanInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !e.running.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.scanOnce(ctx)
		}
	}
}

func (e *UnifiedEngine) scanOnce(ctx context.Context) {
	for _, symbol := range e.cfg.Symbols {
		opp, ok := e.scanSymbol(ctx, symbol)
		if !ok {
			continue
		}
		if e.enqueue(opp) {
			e.notify(opp)
		}
	}
}

func (e *UnifiedEngine) scanSymbol(ctx context.Context, symbol string) (UnifiedOpportunity, bool) {
	agg, err := e.client.AggregatedBook(ctx, symbol)
	if err != nil {
		e.logger.Warn("scan: aggregated book fetch failed", "symbol", symbol, "error", err)
		return UnifiedOpportunity{}, false
	}

	bestBid, bidOk := agg.BestBid()
	bestAsk, askOk := agg.BestAsk()
	if !bidOk || !askOk {
		return UnifiedOpportunity{}, false
	}
	if bestBid.Price.LessThanOrEqual(bestAsk.Price) {
		return UnifiedOpportunity{}, false
	}

	spread := bestBid.Price.Sub(bestAsk.Price)
	spreadBps := spread.Div(bestAsk.Price).Mul(decimal.FromInt(10000))
	if spreadBps.LessThan(e.cfg.MinSpreadBps) {
		return UnifiedOpportunity{}, false
	}

	maxSize := decimal.Min(decimal.Min(bestBid.Quantity, bestAsk.Quantity), e.cfg.MaxPositionSize)
	gross := spread.Mul(maxSize)
	fees := bestAsk.Price.Mul(maxSize).Mul(feeRate)
	net := gross.Sub(fees)
	if net.LessThanOrEqual(e.cfg.MinProfit) {
		return UnifiedOpportunity{}, false
	}

	now := time.Now()
	return UnifiedOpportunity{
		Symbol:    symbol,
		BuyVenue:  bestAsk.Venue,
		BuyPrice:  bestAsk.Price,
		SellVenue: bestBid.Venue,
		SellPrice: bestBid.Price,
		MaxSize:   maxSize,
		SpreadBps: spreadBps,
		NetProfit: net,
		CreatedAt: now,
		ExpiresAt: now.Add(opportunityTTL),
	}, true
}

// enqueue pushes opp onto the bounded FIFO queue. Returns false (without
// queuing) if the queue is already at capacity — overflow drops the newest
// opportunity, per spec.md §4.9.
func (e *UnifiedEngine) enqueue(opp UnifiedOpportunity) bool {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	if len(e.queue) >= opportunityQueueCapacity {
		return false
	}
	e.queue = append(e.queue, opp)
	return true
}

func (e *UnifiedEngine) dequeue() (UnifiedOpportunity, bool) {
	e.queueMu.Lock()
	defer e.queueMu.Unlock()
	if len(e.queue) == 0 {
		return UnifiedOpportunity{}, false
	}
	head := e.queue[0]
	e.queue = e.queue[1:]
	return head, true
}

func (e *UnifiedEngine) notify(opp UnifiedOpportunity) {
	e.callbacksMu.Lock()
	defer e.callbacksMu.Unlock()
	for _, cb := range e.callbacks {
		cb(opp)
	}
}

func (e *UnifiedEngine) executeLoop(ctx context.Context) {
	for {
		if !e.running.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		opp, ok := e.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		e.executeOne(ctx, opp)
	}
}

func (e *UnifiedEngine) executeOne(ctx context.Context, opp UnifiedOpportunity) {
	now := time.Now()
	if now.After(opp.ExpiresAt) {
		e.recordExecution(UnifiedExecution{Opportunity: opp, Status: ExecutionExpired, ExecutedAt: now})
		return
	}

	buyReq := types.Limit(opp.Symbol, types.Buy, opp.MaxSize, opp.BuyPrice).WithVenue(opp.BuyVenue)
	sellReq := types.Limit(opp.Symbol, types.Sell, opp.MaxSize, opp.SellPrice).WithVenue(opp.SellVenue)

	buyOrder, err := e.client.PlaceOrder(ctx, buyReq)
	if err != nil {
		e.recordExecution(UnifiedExecution{
			Opportunity: opp, Status: ExecutionFailed,
			Error: fmt.Sprintf("buy leg: %v", err), ExecutedAt: time.Now(),
		})
		return
	}
	sellOrder, err := e.client.PlaceOrder(ctx, sellReq)
	if err != nil {
		e.recordExecution(UnifiedExecution{
			Opportunity: opp, Status: ExecutionFailed,
			Error: fmt.Sprintf("sell leg: %v", err), ExecutedAt: time.Now(),
		})
		return
	}

	actualPnL := actualProfit(buyOrder, sellOrder)
	e.recordExecution(UnifiedExecution{
		Opportunity: opp, Status: ExecutionCompleted,
		ActualPnL: actualPnL, ExecutedAt: time.Now(),
	})
}

// actualProfit computes (sell avg price × sell filled − buy avg price × buy
// filled) − sum of fees across both legs, per spec.md §4.9.
func actualProfit(buy, sell types.Order) decimal.Decimal {
	buyPrice := fillPrice(buy)
	sellPrice := fillPrice(sell)

	revenue := sellPrice.Mul(sell.Filled)
	cost := buyPrice.Mul(buy.Filled)
	fees := sumFees(buy.Fees).Add(sumFees(sell.Fees))
	return revenue.Sub(cost).Sub(fees)
}

func fillPrice(o types.Order) decimal.Decimal {
	if o.AverageFillPrice != nil {
		return *o.AverageFillPrice
	}
	if o.Price != nil {
		return *o.Price
	}
	return decimal.Zero
}

func sumFees(fees []types.Fee) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fees {
		total = total.Add(f.Amount)
	}
	return total
}

func (e *UnifiedEngine) recordExecution(exec UnifiedExecution) {
	e.execMu.Lock()
	e.executions = append(e.executions, exec)
	e.execMu.Unlock()
}

// Executions returns a copy of every recorded execution, in order.
func (e *UnifiedEngine) Executions() []UnifiedExecution {
	e.execMu.RLock()
	defer e.execMu.RUnlock()
	return append([]UnifiedExecution(nil), e.executions...)
}

// Stats derives aggregate statistics from the recorded executions.
func (e *UnifiedEngine) Stats() UnifiedStats {
	e.execMu.RLock()
	defer e.execMu.RUnlock()

	stats := UnifiedStats{TotalPnL: decimal.Zero}
	stats.Total = len(e.executions)
	for _, exec := range e.executions {
		stats.TotalPnL = stats.TotalPnL.Add(exec.ActualPnL)
		if exec.Status == ExecutionCompleted && exec.ActualPnL.IsPositive() {
			stats.Successful++
		}
	}
	if stats.Total > 0 {
		stats.WinRate = decimal.FromInt(int64(stats.Successful)).Div(decimal.FromInt(int64(stats.Total))).Mul(decimal.FromInt(100))
	}
	return stats
}
