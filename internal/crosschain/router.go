// Package crosschain selects a message transport between two chains and
// estimates its latency and cost, so the arbitrage engines can tell whether
// a detected spread survives the trip from source to destination.
package crosschain

import (
	"context"
	"time"

	"github.com/luxfi/tradefabric/internal/arbitrage"
	"github.com/luxfi/tradefabric/pkg/decimal"
)

// ChainType distinguishes the settlement model of a chain record.
type ChainType string

const (
	ChainLuxSubnet ChainType = "lux_subnet"
	ChainEvm       ChainType = "evm"
	ChainCex       ChainType = "cex"
)

// Chain describes one venue-hosting chain: its identity, finality profile,
// and which cross-chain transports it supports. Support is a property of
// the chain; whether the router actually uses a supported transport is a
// separate, router-level toggle (see RouterConfig).
type Chain struct {
	ID                string
	Name              string
	Type              ChainType
	BlockTimeMs       int64
	FinalityMs        int64
	WarpSupported     bool
	TeleportSupported bool
	Venues            []string
}

// IsCex reports whether this chain record represents a centralized exchange
// rather than an on-chain settlement layer.
func (c Chain) IsCex() bool { return c.Type == ChainCex }

// Transport is the cross-chain message path selected between two chains.
type Transport string

const (
	TransportDirect Transport = "direct"
	TransportWarp   Transport = "warp"
	TransportCexApi Transport = "cex_api"
	TransportTeleport Transport = "teleport"
)

const (
	warpLatencyMs       = 500
	cexAPILatencyMs     = 100
	teleportOverheadMs  = 10_000
	fallbackLatencyMs   = 3_600_000
	fallbackTeleportFee = 1.0
)

var warpCost = decimal.FromFloat(0.001)

// TeleportClient quotes the bridge fee for a teleport-routed transfer. The
// production client calls out to a teleport relayer for a route-only quote
// (no token/amount dimension); FeeQuote returning an error falls back to a
// conservative flat fee.
type TeleportClient interface {
	FeeQuote(ctx context.Context, source, dest Chain) (decimal.Decimal, error)
}

// RouterConfig holds the router-level toggles for transports that a chain
// pair may merely support: a chain's Warp/Teleport support flags say the
// transport is available, RouterConfig says whether this router is allowed
// to use it.
type RouterConfig struct {
	WarpEnabled     bool
	TeleportEnabled bool
}

// Router picks a transport between two chains and prices it.
type Router struct {
	cfg      RouterConfig
	teleport TeleportClient
}

// NewRouter builds a Router. teleport may be nil, in which case every
// teleport cost estimate falls back to the flat fee.
func NewRouter(cfg RouterConfig, teleport TeleportClient) *Router {
	return &Router{cfg: cfg, teleport: teleport}
}

// SelectTransport implements the same-chain / CEX / warp / teleport / direct
// precedence.
func (r *Router) SelectTransport(source, dest Chain) Transport {
	if source.ID == dest.ID {
		return TransportDirect
	}
	if source.IsCex() || dest.IsCex() {
		return TransportCexApi
	}
	if source.Type == ChainLuxSubnet && dest.Type == ChainLuxSubnet &&
		source.WarpSupported && dest.WarpSupported && r.cfg.WarpEnabled {
		return TransportWarp
	}
	if source.TeleportSupported && dest.TeleportSupported && r.cfg.TeleportEnabled {
		return TransportTeleport
	}
	return TransportDirect
}

// EstimateLatencyMs returns the expected transport latency in milliseconds.
func (r *Router) EstimateLatencyMs(transport Transport, source Chain) int64 {
	switch transport {
	case TransportDirect:
		return 0
	case TransportWarp:
		return warpLatencyMs
	case TransportCexApi:
		return cexAPILatencyMs
	case TransportTeleport:
		return source.FinalityMs + teleportOverheadMs
	default:
		return fallbackLatencyMs
	}
}

// EstimateCost returns the expected bridge cost in USD. A teleport cost
// queries teleport (when configured), falling back to a flat 1.0 on error or
// when no client was configured.
func (r *Router) EstimateCost(ctx context.Context, transport Transport, source, dest Chain) decimal.Decimal {
	switch transport {
	case TransportDirect:
		return decimal.Zero
	case TransportWarp:
		return warpCost
	case TransportCexApi:
		return decimal.Zero
	case TransportTeleport:
		if r.teleport == nil {
			return decimal.FromFloat(fallbackTeleportFee)
		}
		fee, err := r.teleport.FeeQuote(ctx, source, dest)
		if err != nil {
			return decimal.FromFloat(fallbackTeleportFee)
		}
		return fee
	default:
		return decimal.Zero
	}
}

// EnhancedOpportunity augments a unified opportunity with the routing
// decision made to move capital (or a message) from its buy leg's chain to
// its sell leg's chain.
type EnhancedOpportunity struct {
	arbitrage.UnifiedOpportunity
	Transport        Transport
	EstimatedLatency time.Duration
	BridgeCost       decimal.Decimal
	AdjustedProfit   decimal.Decimal
}

// Enhance selects a transport for source->dest, prices it, and returns opp
// augmented with the routing decision and an adjusted net profit
// (net_profit - bridge_cost).
func (r *Router) Enhance(ctx context.Context, opp arbitrage.UnifiedOpportunity, source, dest Chain) EnhancedOpportunity {
	transport := r.SelectTransport(source, dest)
	latencyMs := r.EstimateLatencyMs(transport, source)
	cost := r.EstimateCost(ctx, transport, source, dest)

	return EnhancedOpportunity{
		UnifiedOpportunity: opp,
		Transport:          transport,
		EstimatedLatency:   time.Duration(latencyMs) * time.Millisecond,
		BridgeCost:         cost,
		AdjustedProfit:     opp.NetProfit.Sub(cost),
	}
}
