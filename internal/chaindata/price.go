package chaindata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ctrad/prescreen/internal/model"
)

// coingeckoIDs maps chains to the CoinGecko asset ID of their native coin.
var coingeckoIDs = map[model.Chain]string{
	model.ChainEthereum: "ethereum",
	model.ChainBSC:      "binancecoin",
	model.ChainPolygon:  "matic-network",
}

// fallbackPrices are conservative native-coin prices used when no fetch
// has ever succeeded. Stale pricing only skews the USD approximation of
// historical transfer amounts, never the scoring call itself.
var fallbackPrices = map[model.Chain]float64{
	model.ChainEthereum: 2500,
	model.ChainBSC:      550,
	model.ChainPolygon:  0.5,
}

// PriceOracle provides native-coin USD prices with caching.
type PriceOracle struct {
	mu         sync.RWMutex
	prices     map[model.Chain]float64
	lastUpdate map[model.Chain]time.Time
	ttl        time.Duration
	client     *http.Client
}

// NewPriceOracle creates a price oracle with the given cache TTL.
func NewPriceOracle(cacheTTL time.Duration) *PriceOracle {
	return &PriceOracle{
		prices:     make(map[model.Chain]float64),
		lastUpdate: make(map[model.Chain]time.Time),
		ttl:        cacheTTL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// NativePriceUSD returns the USD price of a chain's native coin.
// Fetches from the CoinGecko simple price API when the cache is stale,
// falling back to the last known price, then to a hardcoded floor.
func (o *PriceOracle) NativePriceUSD(ctx context.Context, chain model.Chain) float64 {
	o.mu.RLock()
	if time.Since(o.lastUpdate[chain]) < o.ttl && o.prices[chain] > 0 {
		price := o.prices[chain]
		o.mu.RUnlock()
		return price
	}
	o.mu.RUnlock()

	newPrice, err := o.fetchPrice(ctx, chain)
	if err != nil {
		o.mu.Lock()
		// Mark stale so the next call retries immediately instead of
		// serving the stale price until the original TTL expires.
		o.lastUpdate[chain] = time.Time{}
		price := o.prices[chain]
		o.mu.Unlock()
		if price > 0 {
			return price
		}
		return fallbackPrices[chain]
	}

	o.mu.Lock()
	o.prices[chain] = newPrice
	o.lastUpdate[chain] = time.Now()
	o.mu.Unlock()

	return newPrice
}

// fetchPrice queries the CoinGecko simple price API (free, no key required).
func (o *PriceOracle) fetchPrice(ctx context.Context, chain model.Chain) (float64, error) {
	id, ok := coingeckoIDs[chain]
	if !ok {
		return 0, fmt.Errorf("no price feed for chain %q", chain)
	}

	url := fmt.Sprintf("https://api.coingecko.com/api/v3/simple/price?ids=%s&vs_currencies=usd", id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var result map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	price := result[id].USD
	if price <= 0 {
		return 0, fmt.Errorf("invalid price returned: %f", price)
	}

	return price, nil
}
