package venue

import (
	"context"
	"errors"
	"testing"

	"github.com/luxfi/tradefabric/pkg/decimal"
)

func TestUnsupportedAMMFailsExplicitly(t *testing.T) {
	t.Parallel()

	var mixin UnsupportedAMM
	ctx := context.Background()

	if _, err := mixin.SwapQuote(ctx, "BTC", "USDC", decimal.One, true); !errors.Is(err, ErrNotSupported) {
		t.Errorf("SwapQuote should fail with ErrNotSupported, got %v", err)
	}
	if _, err := mixin.PoolInfo(ctx, "BTC", "USDC"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("PoolInfo should fail with ErrNotSupported, got %v", err)
	}
	if _, err := mixin.LPPositions(ctx); !errors.Is(err, ErrNotSupported) {
		t.Errorf("LPPositions should fail with ErrNotSupported, got %v", err)
	}
}

func TestCapabilityDefaults(t *testing.T) {
	t.Parallel()

	clob := CLOBCapabilities()
	if !clob.LimitOrders || !clob.Streaming || clob.AMMSwap {
		t.Errorf("CLOBCapabilities shape wrong: %+v", clob)
	}

	amm := AMMCapabilities()
	if !amm.AMMSwap || !amm.AddLiquidity || amm.LimitOrders {
		t.Errorf("AMMCapabilities shape wrong: %+v", amm)
	}
}
