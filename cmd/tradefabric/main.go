// Trade fabric — a multi-venue trading client (native CLOB/AMM, ccxt-bridged
// exchanges, Hummingbot Gateway) plus two arbitrage engines (LX-first and
// unified cross-venue spread).
//
// Architecture:
//
//	main.go                     — entry point: loads config, wires adapters/risk/engines, waits for SIGINT/SIGTERM
//	internal/client/client.go   — trading client: connect fan-out, smart order routing, risk-gated placement
//	internal/risk/manager.go    — fail-fast pre-trade validation, position/PnL/open-order tracking
//	internal/venue/*            — per-venue adapters behind the Adapter contract
//	internal/book               — per-venue and aggregated order books
//	internal/arbitrage/lxfirst  — oracle-vs-venue divergence detector
//	internal/arbitrage/unified  — scanner/executor pair trading cross-venue spreads
//	internal/crosschain         — transport selection and cost/latency estimation
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/tradefabric/internal/arbitrage"
	"github.com/luxfi/tradefabric/internal/client"
	"github.com/luxfi/tradefabric/internal/config"
	"github.com/luxfi/tradefabric/internal/crosschain"
	"github.com/luxfi/tradefabric/internal/risk"
	"github.com/luxfi/tradefabric/internal/venue"
	"github.com/luxfi/tradefabric/internal/venue/ccxt"
	"github.com/luxfi/tradefabric/internal/venue/hummingbot"
	"github.com/luxfi/tradefabric/internal/venue/native"
	"github.com/luxfi/tradefabric/pkg/decimal"
)

func main() {
	cfgPath := "configs/config.toml"
	if p := os.Getenv("FABRIC_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.General.LogLevel)}))

	adapters, err := buildAdapters(*cfg, logger)
	if err != nil {
		logger.Error("failed to build venue adapters", "error", err)
		os.Exit(1)
	}

	riskMgr := risk.NewManager(cfg.Risk, logger)
	tradingClient := client.New(cfg.General, adapters, riskMgr, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tradingClient.Connect(ctx); err != nil {
		logger.Warn("one or more venues failed to connect", "error", err)
	}

	lxDetector := arbitrage.NewLxDetector(arbitrage.LxConfig{
		MaxStalenessMs:   cfg.Arbitrage.MaxStalenessMs,
		MinDivergenceBps: decimal.FromFloat(cfg.Arbitrage.MinDivergenceBps),
		MaxPositionSize:  decimal.FromFloat(cfg.Arbitrage.LxMaxPositionSize),
		MinProfit:        decimal.FromFloat(cfg.Arbitrage.LxMinProfit),
	})
	lxDetector.OnCallback(func(opp arbitrage.LxOpportunity) {
		logger.Info("lx-first opportunity",
			"symbol", opp.Symbol, "venue", opp.Venue, "kind", opp.Kind,
			"divergence_bps", opp.DivergenceBps.String(), "confidence", opp.Confidence.String(),
		)
	})

	chains, venueChain := buildChains(cfg.Crosschain)
	var teleportClient crosschain.TeleportClient
	if cfg.Crosschain.TeleportRelayerURL != "" {
		teleportClient = crosschain.NewHTTPTeleportClient(cfg.Crosschain.TeleportRelayerURL)
	}
	router := crosschain.NewRouter(crosschain.RouterConfig{
		WarpEnabled:     cfg.Crosschain.WarpEnabled,
		TeleportEnabled: cfg.Crosschain.TeleportEnabled,
	}, teleportClient)

	unifiedEngine := arbitrage.NewUnifiedEngine(arbitrage.UnifiedConfig{
		Symbols:         cfg.Arbitrage.Symbols,
		MinSpreadBps:    decimal.FromFloat(cfg.Arbitrage.MinSpreadBps),
		MinProfit:       decimal.FromFloat(cfg.Arbitrage.MinProfit),
		MaxPositionSize: decimal.FromFloat(cfg.Arbitrage.MaxPositionSize),
		ScanInterval:    time.Duration(cfg.Arbitrage.ScanIntervalMs) * time.Millisecond,
	}, tradingClient, logger)
	unifiedEngine.OnOpportunity(func(opp arbitrage.UnifiedOpportunity) {
		source, dest, ok := resolveRoute(chains, venueChain, opp.BuyVenue, opp.SellVenue)
		if !ok {
			logger.Info("unified arbitrage opportunity",
				"symbol", opp.Symbol, "buy_venue", opp.BuyVenue, "sell_venue", opp.SellVenue,
				"spread_bps", opp.SpreadBps.String(), "net_profit", opp.NetProfit.String(),
			)
			return
		}
		enhanced := router.Enhance(ctx, opp, source, dest)
		logger.Info("unified arbitrage opportunity",
			"symbol", opp.Symbol, "buy_venue", opp.BuyVenue, "sell_venue", opp.SellVenue,
			"spread_bps", opp.SpreadBps.String(), "net_profit", opp.NetProfit.String(),
			"transport", enhanced.Transport, "bridge_cost", enhanced.BridgeCost.String(),
			"adjusted_profit", enhanced.AdjustedProfit.String(),
		)
	})
	unifiedEngine.Start(ctx)

	logger.Info("trade fabric started",
		"venues", len(adapters), "symbols", cfg.Arbitrage.Symbols, "smart_routing", cfg.General.SmartRouting,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	lxDetector.Stop()
	unifiedEngine.Stop()
	cancel()

	if err := tradingClient.Disconnect(context.Background()); err != nil {
		logger.Error("error during venue disconnect", "error", err)
	}
}

func buildAdapters(cfg config.Config, logger *slog.Logger) (map[string]venue.Adapter, error) {
	adapters := make(map[string]venue.Adapter)

	for name, nc := range cfg.Native {
		if nc.IsAMM {
			a, err := native.NewAMM(native.Config{Name: name, RestURL: nc.RestURL, WSURL: nc.WSURL, PrivateKey: nc.PrivateKey}, logger)
			if err != nil {
				return nil, err
			}
			adapters[name] = a
			continue
		}
		a, err := native.New(native.Config{Name: name, RestURL: nc.RestURL, WSURL: nc.WSURL, PrivateKey: nc.PrivateKey}, logger)
		if err != nil {
			return nil, err
		}
		adapters[name] = a
	}

	for name, cc := range cfg.Ccxt {
		adapters[name] = ccxt.New(ccxt.Config{Name: name, BaseURL: cc.BaseURL, APIKey: cc.APIKey, Secret: cc.Secret}, logger)
	}

	for name, hc := range cfg.Hummingbot {
		a, err := hummingbot.New(hummingbot.Config{
			Name: name, Host: hc.Host, Port: hc.Port, UseHTTPS: hc.UseHTTPS,
			Connector: hc.Connector, Chain: hc.Chain, Network: hc.Network, PrivateKey: hc.PrivateKey,
		}, logger)
		if err != nil {
			return nil, err
		}
		adapters[name] = a
	}

	return adapters, nil
}

// buildChains converts the configured chain records and venue->chain
// mapping into the crosschain package's types.
func buildChains(cfg config.CrosschainConfig) (map[string]crosschain.Chain, map[string]string) {
	chains := make(map[string]crosschain.Chain, len(cfg.Chains))
	for id, cc := range cfg.Chains {
		chains[id] = crosschain.Chain{
			ID:                id,
			Name:              cc.Name,
			Type:              crosschain.ChainType(cc.Type),
			BlockTimeMs:       cc.BlockTimeMs,
			FinalityMs:        cc.FinalityMs,
			WarpSupported:     cc.WarpSupported,
			TeleportSupported: cc.TeleportSupported,
			Venues:            cc.Venues,
		}
	}
	return chains, cfg.VenueChain
}

// resolveRoute looks up the chains hosting buyVenue and sellVenue. ok is
// false when either venue has no configured chain, in which case the
// caller skips cross-chain enhancement rather than routing against a zero
// value Chain.
func resolveRoute(chains map[string]crosschain.Chain, venueChain map[string]string, buyVenue, sellVenue string) (source, dest crosschain.Chain, ok bool) {
	sourceID, found := venueChain[buyVenue]
	if !found {
		return crosschain.Chain{}, crosschain.Chain{}, false
	}
	destID, found := venueChain[sellVenue]
	if !found {
		return crosschain.Chain{}, crosschain.Chain{}, false
	}
	source, ok = chains[sourceID]
	if !ok {
		return crosschain.Chain{}, crosschain.Chain{}, false
	}
	dest, ok = chains[destID]
	if !ok {
		return crosschain.Chain{}, crosschain.Chain{}, false
	}
	return source, dest, true
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
