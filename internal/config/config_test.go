package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleTOML = `
[general]
log_level = "info"
timeout_ms = 5000
smart_routing = true
min_improvement_bps = 10

[risk]
enabled = true
max_order_size = 1000.0
max_position_size = 5000.0
max_daily_loss = 500.0
max_open_orders = 20
kill_switch_enabled = true

[native.injective]
rest_url = "https://rest.injective.example"
ws_url = "wss://ws.injective.example"
private_key = "deadbeef"

[ccxt.binance]
base_url = "http://localhost:3000"
api_key = "key"
secret = "secret"

[hummingbot.uniswap]
host = "localhost"
port = 15888
connector = "uniswap"
chain = "ethereum"
network = "mainnet"
`

func writeSample(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fabric.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write sample config: %v", err)
	}
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	t.Parallel()

	path := writeSample(t, sampleTOML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.General.TimeoutMs != 5000 {
		t.Errorf("TimeoutMs = %d, want 5000", cfg.General.TimeoutMs)
	}
	if !cfg.Risk.Enabled || cfg.Risk.MaxOpenOrders != 20 {
		t.Errorf("unexpected risk config: %+v", cfg.Risk)
	}
	nativeCfg, ok := cfg.Native["injective"]
	if !ok || nativeCfg.RestURL == "" {
		t.Errorf("expected native.injective to be parsed, got %+v", cfg.Native)
	}
	if _, ok := cfg.Ccxt["binance"]; !ok {
		t.Errorf("expected ccxt.binance to be parsed")
	}
	hb, ok := cfg.Hummingbot["uniswap"]
	if !ok || hb.Port != 15888 {
		t.Errorf("expected hummingbot.uniswap to be parsed, got %+v", cfg.Hummingbot)
	}
}

func TestValidateRequiresAtLeastOneVenue(t *testing.T) {
	t.Parallel()

	cfg := &Config{General: GeneralConfig{TimeoutMs: 1000}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when no venues are configured")
	}
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		General: GeneralConfig{TimeoutMs: 0},
		Native:  map[string]NativeVenueConfig{"x": {RestURL: "http://x"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero timeout_ms")
	}
}

func TestValidateRequiresMaxOpenOrdersWhenRiskEnabled(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		General: GeneralConfig{TimeoutMs: 1000},
		Risk:    RiskConfig{Enabled: true, MaxOpenOrders: 0},
		Native:  map[string]NativeVenueConfig{"x": {RestURL: "http://x"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when risk enabled but max_open_orders is 0")
	}
}
