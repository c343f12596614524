// Package risk enforces pre-trade limits on every order before it reaches
// a venue adapter, and tracks the position/PnL/open-order state those
// limits are checked against.
//
// The manager partitions its state into independently synchronized maps
// (positions, open-order counts) plus one scalar (daily PnL), so a burst
// of position reads never blocks a concurrent PnL update and vice versa —
// readers vastly outnumber writers on the trading client's hot path. A
// breach of the daily loss limit — or an explicit call — engages a
// kill switch that fails every subsequent Validate call until reset.
package risk

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/luxfi/tradefabric/internal/config"
	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

// Sentinel errors every caller can match with errors.Is.
var (
	ErrKillSwitchActive      = errors.New("risk: kill switch is active")
	ErrOrderSizeExceeded     = errors.New("risk: order size exceeds max")
	ErrPositionLimitExceeded = errors.New("risk: position limit exceeded")
	ErrOpenOrdersExceeded    = errors.New("risk: open orders limit exceeded")
	ErrDailyLossExceeded     = errors.New("risk: daily loss limit exceeded")
)

// Manager enforces pre-trade risk limits and tracks position, PnL and
// open-order state across every venue.
type Manager struct {
	cfg    config.RiskConfig
	logger *slog.Logger

	maxOrderSize    decimal.Decimal
	maxPositionSize decimal.Decimal
	maxDailyLoss    decimal.Decimal
	perAssetLimit   map[string]decimal.Decimal

	killed atomic.Bool

	positionsMu sync.RWMutex
	positions   map[string]decimal.Decimal // asset -> signed position

	pnlMu    sync.RWMutex
	dailyPnL decimal.Decimal

	openOrdersMu sync.RWMutex
	openOrders   map[string]int // symbol -> open order count
}

// NewManager builds a Manager from loaded configuration.
func NewManager(cfg config.RiskConfig, logger *slog.Logger) *Manager {
	perAsset := make(map[string]decimal.Decimal, len(cfg.PerAssetPositionLimit))
	for asset, limit := range cfg.PerAssetPositionLimit {
		perAsset[asset] = decimal.FromFloat(limit)
	}
	return &Manager{
		cfg:             cfg,
		logger:          logger.With("component", "risk"),
		maxOrderSize:    decimal.FromFloat(cfg.MaxOrderSize),
		maxPositionSize: decimal.FromFloat(cfg.MaxPositionSize),
		maxDailyLoss:    decimal.FromFloat(cfg.MaxDailyLoss),
		perAssetLimit:   perAsset,
		positions:       make(map[string]decimal.Decimal),
		openOrders:      make(map[string]int),
	}
}

// Validate performs the fail-fast pre-trade checks, in order: kill switch,
// order size, position limits, open-order count, daily loss. The first
// violated rule determines the returned error. A disabled risk manager
// always returns nil.
func (m *Manager) Validate(req types.OrderRequest) error {
	if !m.cfg.Enabled {
		return nil
	}
	if m.IsKilled() {
		return ErrKillSwitchActive
	}
	if m.maxOrderSize.IsPositive() && req.Quantity.GreaterThan(m.maxOrderSize) {
		return fmt.Errorf("%w: %s > %s", ErrOrderSizeExceeded, req.Quantity, m.maxOrderSize)
	}

	if pair, ok := types.ParsePair(req.Symbol); ok {
		if err := m.validatePosition(pair.Base, req); err != nil {
			return err
		}
	}

	if m.openOrderCount(req.Symbol) >= m.cfg.MaxOpenOrders {
		return fmt.Errorf("%w: symbol %s", ErrOpenOrdersExceeded, req.Symbol)
	}

	if m.maxDailyLoss.IsPositive() {
		pnl := m.DailyPnL()
		if pnl.IsNegative() && pnl.Abs().GreaterThan(m.maxDailyLoss) {
			return fmt.Errorf("%w: %s", ErrDailyLossExceeded, pnl)
		}
	}

	return nil
}

// validatePosition projects the order's effect on base's signed position
// and checks it against the per-asset limit if one is configured, falling
// back to the aggregate max_position_size otherwise.
func (m *Manager) validatePosition(base string, req types.OrderRequest) error {
	current := m.Position(base)
	delta := req.Quantity
	if req.Side == types.Sell {
		delta = delta.Neg()
	}
	abs := current.Add(delta).Abs()

	if limit, ok := m.perAssetLimit[base]; ok {
		if abs.GreaterThan(limit) {
			return fmt.Errorf("%w: asset %s position %s > limit %s", ErrPositionLimitExceeded, base, abs, limit)
		}
		return nil
	}
	if m.maxPositionSize.IsPositive() && abs.GreaterThan(m.maxPositionSize) {
		return fmt.Errorf("%w: asset %s position %s > max %s", ErrPositionLimitExceeded, base, abs, m.maxPositionSize)
	}
	return nil
}

// UpdatePosition adds (buy) or subtracts (sell) qty from asset's tracked
// signed position. Call after a fill is confirmed, not at order placement.
func (m *Manager) UpdatePosition(asset string, qty decimal.Decimal, side types.Side) {
	delta := qty
	if side == types.Sell {
		delta = delta.Neg()
	}
	m.positionsMu.Lock()
	m.positions[asset] = m.positions[asset].Add(delta)
	m.positionsMu.Unlock()
}

// Position returns asset's current signed position.
func (m *Manager) Position(asset string) decimal.Decimal {
	m.positionsMu.RLock()
	defer m.positionsMu.RUnlock()
	return m.positions[asset]
}

// UpdatePnL accumulates delta into the tracked daily PnL. If
// kill_switch_enabled is set and the accumulated loss now exceeds
// max_daily_loss, the kill switch engages automatically.
func (m *Manager) UpdatePnL(delta decimal.Decimal) {
	m.pnlMu.Lock()
	m.dailyPnL = m.dailyPnL.Add(delta)
	pnl := m.dailyPnL
	m.pnlMu.Unlock()

	if m.cfg.KillSwitchEnabled && m.maxDailyLoss.IsPositive() &&
		pnl.IsNegative() && pnl.Abs().GreaterThan(m.maxDailyLoss) {
		m.logger.Error("kill switch engaged: daily loss exceeded", "pnl", pnl, "max_daily_loss", m.maxDailyLoss)
		m.Kill()
	}
}

// DailyPnL returns the currently accumulated daily PnL.
func (m *Manager) DailyPnL() decimal.Decimal {
	m.pnlMu.RLock()
	defer m.pnlMu.RUnlock()
	return m.dailyPnL
}

// ResetDailyPnL zeroes the accumulated PnL. Call at the start of a new
// trading day; does not touch the kill switch.
func (m *Manager) ResetDailyPnL() {
	m.pnlMu.Lock()
	m.dailyPnL = decimal.Zero
	m.pnlMu.Unlock()
}

// Kill engages the kill switch. Every subsequent Validate call fails until
// Reset is called.
func (m *Manager) Kill() {
	m.killed.Store(true)
}

// Reset disengages the kill switch.
func (m *Manager) Reset() {
	m.killed.Store(false)
}

// IsKilled reports whether the kill switch is currently engaged.
func (m *Manager) IsKilled() bool {
	return m.killed.Load()
}

func (m *Manager) openOrderCount(symbol string) int {
	m.openOrdersMu.RLock()
	defer m.openOrdersMu.RUnlock()
	return m.openOrders[symbol]
}

func (m *Manager) incrementOpenOrders(symbol string) {
	m.openOrdersMu.Lock()
	m.openOrders[symbol]++
	m.openOrdersMu.Unlock()
}

func (m *Manager) decrementOpenOrders(symbol string) {
	m.openOrdersMu.Lock()
	if m.openOrders[symbol] > 0 {
		m.openOrders[symbol]--
	}
	m.openOrdersMu.Unlock()
}

// OpenOrders returns the current tracked open-order count for symbol.
func (m *Manager) OpenOrders(symbol string) int {
	return m.openOrderCount(symbol)
}
