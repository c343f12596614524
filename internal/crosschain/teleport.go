package crosschain

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/luxfi/tradefabric/pkg/decimal"
)

// HTTPTeleportClient quotes teleport bridge fees from a relayer's REST API.
type HTTPTeleportClient struct {
	http *resty.Client
}

// NewHTTPTeleportClient builds a client against a teleport relayer at
// baseURL.
func NewHTTPTeleportClient(baseURL string) *HTTPTeleportClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &HTTPTeleportClient{http: httpClient}
}

type feeQuoteResponse struct {
	FeeUSD float64 `json:"fee_usd"`
}

// FeeQuote asks the relayer for the current teleport fee between source and
// dest. The quote is route-only (chain pair), not sized by token or
// transfer amount — it prices "a teleport message on this route," matching
// the flat-fallback contract EstimateCost falls back to on error.
func (c *HTTPTeleportClient) FeeQuote(ctx context.Context, source, dest Chain) (decimal.Decimal, error) {
	var out feeQuoteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"source_chain": source.ID,
			"dest_chain":   dest.ID,
		}).
		SetResult(&out).
		Get("/fee-quote")
	if err != nil {
		return decimal.Zero, fmt.Errorf("crosschain: teleport fee quote: %w", err)
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, fmt.Errorf("crosschain: teleport fee quote: status %d: %s", resp.StatusCode(), resp.String())
	}
	return decimal.FromFloat(out.FeeUSD), nil
}
