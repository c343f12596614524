package risk

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/luxfi/tradefabric/internal/config"
	"github.com/luxfi/tradefabric/pkg/decimal"
	"github.com/luxfi/tradefabric/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		Enabled:           true,
		MaxOrderSize:      10,
		MaxPositionSize:   20,
		MaxDailyLoss:      100,
		MaxOpenOrders:     3,
		KillSwitchEnabled: true,
		PerAssetPositionLimit: map[string]float64{
			"ETH": 5,
		},
	}
}

func newTestManager() *Manager {
	return NewManager(testRiskConfig(), discardLogger())
}

func TestValidateDisabledAlwaysPasses(t *testing.T) {
	t.Parallel()
	cfg := testRiskConfig()
	cfg.Enabled = false
	m := NewManager(cfg, discardLogger())
	m.Kill()

	if err := m.Validate(types.Market("BTC-USDC", types.Buy, decimal.FromInt(1000))); err != nil {
		t.Errorf("expected disabled manager to pass everything, got %v", err)
	}
}

func TestValidateFailsWhenKilled(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	m.Kill()

	err := m.Validate(types.Market("BTC-USDC", types.Buy, decimal.One))
	if !errors.Is(err, ErrKillSwitchActive) {
		t.Errorf("expected ErrKillSwitchActive, got %v", err)
	}

	m.Reset()
	if err := m.Validate(types.Market("BTC-USDC", types.Buy, decimal.One)); err != nil {
		t.Errorf("expected Reset to clear kill switch, got %v", err)
	}
}

func TestValidateOrderSize(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	err := m.Validate(types.Market("BTC-USDC", types.Buy, decimal.FromInt(11)))
	if !errors.Is(err, ErrOrderSizeExceeded) {
		t.Errorf("expected ErrOrderSizeExceeded, got %v", err)
	}

	if err := m.Validate(types.Market("BTC-USDC", types.Buy, decimal.FromInt(10))); err != nil {
		t.Errorf("expected order at the limit to pass, got %v", err)
	}
}

func TestValidatePerAssetPositionLimit(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	if err := m.Validate(types.Market("ETH-USDC", types.Buy, decimal.FromInt(5))); err != nil {
		t.Errorf("expected position at the per-asset limit to pass, got %v", err)
	}

	m.UpdatePosition("ETH", decimal.FromInt(5), types.Buy)

	err := m.Validate(types.Market("ETH-USDC", types.Buy, decimal.One))
	if !errors.Is(err, ErrPositionLimitExceeded) {
		t.Errorf("expected ErrPositionLimitExceeded, got %v", err)
	}

	// A sell reducing the position back down must still pass.
	if err := m.Validate(types.Market("ETH-USDC", types.Sell, decimal.FromInt(2))); err != nil {
		t.Errorf("expected reducing sell to pass, got %v", err)
	}
}

func TestValidateAggregatePositionLimitWhenNoPerAssetOverride(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	m.UpdatePosition("SOL", decimal.FromInt(19), types.Buy)
	if err := m.Validate(types.Market("SOL-USDC", types.Buy, decimal.One)); err != nil {
		t.Errorf("expected position at the aggregate limit to pass, got %v", err)
	}

	err := m.Validate(types.Market("SOL-USDC", types.Buy, decimal.FromFloat(1.5)))
	if !errors.Is(err, ErrPositionLimitExceeded) {
		t.Errorf("expected ErrPositionLimitExceeded, got %v", err)
	}
}

func TestValidateOpenOrdersLimit(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	var trackers []*OrderTracker
	for i := 0; i < 3; i++ {
		trackers = append(trackers, NewOrderTracker(m, "BTC-USDC"))
	}

	err := m.Validate(types.Market("BTC-USDC", types.Buy, decimal.One))
	if !errors.Is(err, ErrOpenOrdersExceeded) {
		t.Errorf("expected ErrOpenOrdersExceeded, got %v", err)
	}

	trackers[0].Release()
	if err := m.Validate(types.Market("BTC-USDC", types.Buy, decimal.One)); err != nil {
		t.Errorf("expected releasing one tracker to free a slot, got %v", err)
	}

	for _, tr := range trackers {
		tr.Release()
	}
}

func TestValidateDailyLossLimit(t *testing.T) {
	t.Parallel()
	// With kill_switch_enabled the loss would engage the kill switch, which
	// Validate checks first; turn it off so the daily-loss rule is reached.
	cfg := testRiskConfig()
	cfg.KillSwitchEnabled = false
	m := NewManager(cfg, discardLogger())

	m.UpdatePnL(decimal.FromInt(-150))

	err := m.Validate(types.Market("BTC-USDC", types.Buy, decimal.One))
	if !errors.Is(err, ErrDailyLossExceeded) {
		t.Errorf("expected ErrDailyLossExceeded, got %v", err)
	}
}

func TestUpdatePnLEngagesKillSwitchAutomatically(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	m.UpdatePnL(decimal.FromInt(-150))

	if !m.IsKilled() {
		t.Error("expected kill switch to auto-engage on daily loss breach")
	}
}

func TestUpdatePnLWithoutKillSwitchEnabledDoesNotKill(t *testing.T) {
	t.Parallel()
	cfg := testRiskConfig()
	cfg.KillSwitchEnabled = false
	m := NewManager(cfg, discardLogger())

	m.UpdatePnL(decimal.FromInt(-150))

	if m.IsKilled() {
		t.Error("expected kill switch to stay disengaged when kill_switch_enabled is false")
	}
}

func TestResetDailyPnL(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	m.UpdatePnL(decimal.FromInt(-10))
	m.ResetDailyPnL()

	if !m.DailyPnL().IsZero() {
		t.Errorf("expected DailyPnL to be zero after reset, got %s", m.DailyPnL())
	}
}
