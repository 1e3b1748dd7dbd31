package oracle

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// HTTPGateway queries an external price service over HTTP. The endpoint is
// expected to answer GET <base>?asset=<asset> with {"asset": ..., "rate": "..."}.
type HTTPGateway struct {
	base   string
	client *http.Client
}

// NewHTTPGateway creates a gateway against base with the given timeout.
func NewHTTPGateway(base string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGateway{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
}

type rateResponse struct {
	Asset string          `json:"asset"`
	Rate  decimal.Decimal `json:"rate"`
}

func (g *HTTPGateway) ExchangeRate(asset string) (decimal.Decimal, error) {
	u := g.base + "?asset=" + url.QueryEscape(asset)
	resp, err := g.client.Get(u)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("oracle request for %q: %w", asset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("oracle returned status %d for %q", resp.StatusCode, asset)
	}

	var rr rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode oracle response for %q: %w", asset, err)
	}
	if rr.Rate.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("oracle returned negative rate %s for %q", rr.Rate, asset)
	}
	log.Debug().Str("asset", asset).Str("rate", rr.Rate.String()).Msg("oracle rate fetched")
	return rr.Rate, nil
}
