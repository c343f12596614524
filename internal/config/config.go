// Package config defines all configuration for the trading fabric.
// Config is loaded from a TOML file with sensitive fields overridable via
// FABRIC_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration, mapping directly to the TOML
// file's section structure (§6.2): [general], [risk], and one
// [native.<name>] / [ccxt.<name>] / [hummingbot.<name>] table per
// configured venue.
type Config struct {
	General    GeneralConfig                `mapstructure:"general"`
	Risk       RiskConfig                   `mapstructure:"risk"`
	Arbitrage  ArbitrageConfig              `mapstructure:"arbitrage"`
	Crosschain CrosschainConfig             `mapstructure:"crosschain"`
	Native     map[string]NativeVenueConfig `mapstructure:"native"`
	Ccxt       map[string]CcxtVenueConfig   `mapstructure:"ccxt"`
	Hummingbot map[string]HummingbotConfig  `mapstructure:"hummingbot"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	LogLevel          string `mapstructure:"log_level"`
	TimeoutMs         int    `mapstructure:"timeout_ms"`
	SmartRouting      bool   `mapstructure:"smart_routing"`
	MinImprovementBps int    `mapstructure:"min_improvement_bps"`
}

// RiskConfig configures the risk manager's gates (§4.6).
type RiskConfig struct {
	Enabled               bool               `mapstructure:"enabled"`
	MaxOrderSize          float64            `mapstructure:"max_order_size"`
	MaxPositionSize       float64            `mapstructure:"max_position_size"`
	MaxDailyLoss          float64            `mapstructure:"max_daily_loss"`
	MaxOpenOrders         int                `mapstructure:"max_open_orders"`
	KillSwitchEnabled     bool               `mapstructure:"kill_switch_enabled"`
	PerAssetPositionLimit map[string]float64 `mapstructure:"per_asset_position_limit"`
}

// ArbitrageConfig parameterizes both arbitrage engines (§4.8-4.9).
type ArbitrageConfig struct {
	Symbols             []string `mapstructure:"symbols"`
	MaxStalenessMs      int64    `mapstructure:"max_staleness_ms"`
	MinDivergenceBps    float64  `mapstructure:"min_divergence_bps"`
	LxMaxPositionSize   float64  `mapstructure:"lx_max_position_size"`
	LxMinProfit         float64  `mapstructure:"lx_min_profit"`
	MinSpreadBps        float64  `mapstructure:"min_spread_bps"`
	MinProfit           float64  `mapstructure:"min_profit"`
	MaxPositionSize     float64  `mapstructure:"max_position_size"`
	ScanIntervalMs      int      `mapstructure:"scan_interval_ms"`
}

// ChainConfig describes one chain record for the cross-chain router
// (spec.md §3 "Cross-chain model"): identity, finality profile, and which
// transports it *supports* (separate from whether the router is *enabled*
// to use them — see CrosschainConfig).
type ChainConfig struct {
	Name              string   `mapstructure:"name"`
	Type              string   `mapstructure:"type"` // "lux_subnet", "evm", or "cex"
	BlockTimeMs       int64    `mapstructure:"block_time_ms"`
	FinalityMs        int64    `mapstructure:"finality_ms"`
	WarpSupported     bool     `mapstructure:"warp_supported"`
	TeleportSupported bool     `mapstructure:"teleport_supported"`
	Venues            []string `mapstructure:"venues"`
}

// CrosschainConfig configures the cross-chain router (§4.10): the
// router-level Warp/Teleport enable toggles, the teleport relayer to quote
// fees from, the chain records, and which chain hosts each configured
// venue.
type CrosschainConfig struct {
	WarpEnabled        bool                   `mapstructure:"warp_enabled"`
	TeleportEnabled    bool                   `mapstructure:"teleport_enabled"`
	TeleportRelayerURL string                 `mapstructure:"teleport_relayer_url"`
	Chains             map[string]ChainConfig `mapstructure:"chains"`
	VenueChain         map[string]string      `mapstructure:"venue_chain"`
}

// NativeVenueConfig configures one native CLOB or AMM venue connection.
type NativeVenueConfig struct {
	RestURL    string `mapstructure:"rest_url"`
	WSURL      string `mapstructure:"ws_url"`
	PrivateKey string `mapstructure:"private_key"`
	IsAMM      bool   `mapstructure:"is_amm"`
}

// CcxtVenueConfig configures the co-located CCXT proxy bridge.
type CcxtVenueConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Secret  string `mapstructure:"secret"`
}

// HummingbotConfig configures a Hummingbot Gateway connector.
type HummingbotConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	UseHTTPS   bool   `mapstructure:"use_https"`
	Connector  string `mapstructure:"connector"`
	Chain      string `mapstructure:"chain"`
	Network    string `mapstructure:"network"`
	PrivateKey string `mapstructure:"private_key"`
}

const envPrefix = "FABRIC"

// Load reads config from a TOML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if v := os.Getenv("FABRIC_RISK_MAX_ORDER_SIZE"); v != "" {
		fmt.Sscanf(v, "%f", &cfg.Risk.MaxOrderSize)
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.General.TimeoutMs <= 0 {
		return fmt.Errorf("general.timeout_ms must be > 0")
	}
	if len(c.Native) == 0 && len(c.Ccxt) == 0 && len(c.Hummingbot) == 0 {
		return fmt.Errorf("at least one [native.*], [ccxt.*] or [hummingbot.*] venue must be configured")
	}
	for name, n := range c.Native {
		if n.RestURL == "" {
			return fmt.Errorf("native.%s.rest_url is required", name)
		}
	}
	for name, hb := range c.Hummingbot {
		if hb.Host == "" {
			return fmt.Errorf("hummingbot.%s.host is required", name)
		}
	}
	if c.Risk.Enabled && c.Risk.MaxOpenOrders <= 0 {
		return fmt.Errorf("risk.max_open_orders must be > 0 when risk.enabled is true")
	}
	return nil
}
