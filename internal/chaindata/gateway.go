package chaindata

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ctrad/prescreen/internal/circuitbreaker"
	"github.com/ctrad/prescreen/internal/metrics"
	"github.com/ctrad/prescreen/internal/model"
	"github.com/ctrad/prescreen/internal/retry"
)

const (
	// historyLimit caps how many recent transfers are pulled for
	// sequence analysis and burst detection.
	historyLimit = 25

	fetchAttempts  = 2
	fetchBaseDelay = 200 * time.Millisecond
)

// errCircuitOpen is returned for fetches rejected by the breaker.
var errCircuitOpen = errors.New("provider circuit open")

// Gateway enriches transactions with on-chain facts. It owns a TTL cache
// and a per-provider circuit breaker; lookups never fail, they degrade.
type Gateway struct {
	provider Provider
	nonce    NonceSource // optional secondary source for tx counts
	cache    *ttlCache
	sf       singleflight.Group
	breaker  *circuitbreaker.Breaker
	timeout  time.Duration
	logger   *slog.Logger
	now      Clock
}

// Option configures the gateway.
type Option func(*Gateway)

// WithClock injects a fake clock for tests.
func WithClock(now Clock) Option {
	return func(g *Gateway) {
		g.now = now
		g.cache.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithNonceSource adds a secondary source for wallet tx counts.
func WithNonceSource(src NonceSource) Option {
	return func(g *Gateway) { g.nonce = src }
}

// New creates a gateway over the given provider. ttl bounds cache entry
// freshness; timeout bounds each provider call.
func New(provider Provider, ttl, timeout time.Duration, opts ...Option) *Gateway {
	g := &Gateway{
		provider: provider,
		cache:    newTTLCache(ttl, time.Now),
		breaker:  circuitbreaker.New(5, 30*time.Second),
		timeout:  timeout,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Lookup gathers on-chain facts for a transaction. It always returns a
// facts object; every lookup that failed is recorded as a degraded
// marker and the corresponding fact stays unknown.
func (g *Gateway) Lookup(ctx context.Context, tx model.Transaction) *model.EnrichedFacts {
	facts := &model.EnrichedFacts{}

	if tx.FromAddr != "" {
		if count, ok := g.walletTxCount(ctx, tx.Chain, tx.FromAddr); ok {
			facts.WalletTxCount = model.KnownInt(count)
		} else {
			facts.RecordFailure("degraded:wallet_tx_count")
		}
		if age, ok := g.fetchInt(ctx, "wallet_age", tx.Chain, tx.FromAddr, g.provider.WalletAgeDays); ok {
			facts.WalletAgeDays = model.KnownInt(age)
		} else {
			facts.RecordFailure("degraded:wallet_age")
		}
		g.fillHistory(ctx, tx, facts)
	}

	if tx.ToAddr != "" {
		if age, ok := g.fetchInt(ctx, "wallet_age", tx.Chain, tx.ToAddr, g.provider.WalletAgeDays); ok {
			facts.RecipientAgeDays = model.KnownInt(age)
		} else {
			facts.RecordFailure("degraded:recipient_age")
		}
		if count, ok := g.fetchInt(ctx, "tx_count", tx.Chain, tx.ToAddr, g.provider.WalletTxCount); ok {
			facts.RecipientTxCount = model.KnownInt(count)
		} else {
			facts.RecordFailure("degraded:recipient_tx_count")
		}
	}

	if tx.TokenContract != "" {
		if verified, ok := g.fetchBool(ctx, "contract_verified", tx.Chain, tx.TokenContract, g.provider.ContractVerified); ok {
			facts.ContractVerified = model.Bool(verified)
		} else {
			facts.RecordFailure("degraded:contract_verified")
		}
	}

	return facts
}

// walletTxCount tries the primary provider, then the nonce source.
func (g *Gateway) walletTxCount(ctx context.Context, chain model.Chain, addr string) (int64, bool) {
	if count, ok := g.fetchInt(ctx, "tx_count", chain, addr, g.provider.WalletTxCount); ok {
		return count, true
	}
	if g.nonce == nil {
		return 0, false
	}
	v, err := g.fetch(ctx, g.nonce.Name(), "tx_count", chain, addr, func(cctx context.Context) (any, error) {
		return g.nonce.WalletTxCount(cctx, chain, addr)
	})
	if err != nil {
		return 0, false
	}
	return v.(int64), true
}

// fillHistory derives sender behavior facts from the recent transfer list.
func (g *Gateway) fillHistory(ctx context.Context, tx model.Transaction, facts *model.EnrichedFacts) {
	v, err := g.fetch(ctx, g.provider.Name(), "txlist", tx.Chain, tx.FromAddr, func(cctx context.Context) (any, error) {
		return g.provider.AddressTransactions(cctx, tx.Chain, tx.FromAddr, historyLimit)
	})
	if err != nil {
		facts.RecordFailure("degraded:history")
		return
	}
	transfers := v.([]Transfer)

	hourAgo := g.now().Add(-time.Hour)
	var lastHour int64
	var outgoing []float64
	var sum float64
	for _, tr := range transfers {
		if tr.From != tx.FromAddr {
			continue // inbound transfers say nothing about the sender's own pace
		}
		if tr.Timestamp.After(hourAgo) {
			lastHour++
		}
		outgoing = append(outgoing, tr.AmountUSD)
		sum += tr.AmountUSD
	}
	facts.SenderTxLastHour = model.KnownInt(lastHour)

	// Transfers arrive newest first; the sequence model wants oldest first.
	for i, j := 0, len(outgoing)-1; i < j; i, j = i+1, j-1 {
		outgoing[i], outgoing[j] = outgoing[j], outgoing[i]
	}
	facts.HistoryAmounts = outgoing
	if len(outgoing) > 0 {
		facts.SenderAvgTxUSD = model.KnownFloat(sum / float64(len(outgoing)))
	}
}

func (g *Gateway) fetchInt(ctx context.Context, call string, chain model.Chain, addr string,
	fn func(context.Context, model.Chain, string) (int64, error)) (int64, bool) {
	v, err := g.fetch(ctx, g.provider.Name(), call, chain, addr, func(cctx context.Context) (any, error) {
		return fn(cctx, chain, addr)
	})
	if err != nil {
		return 0, false
	}
	return v.(int64), true
}

func (g *Gateway) fetchBool(ctx context.Context, call string, chain model.Chain, addr string,
	fn func(context.Context, model.Chain, string) (bool, error)) (bool, bool) {
	v, err := g.fetch(ctx, g.provider.Name(), call, chain, addr, func(cctx context.Context) (any, error) {
		return fn(cctx, chain, addr)
	})
	if err != nil {
		return false, false
	}
	return v.(bool), true
}

// fetch is the single path to the network: cache, then singleflight,
// then breaker-guarded retrying call with a per-attempt timeout.
func (g *Gateway) fetch(ctx context.Context, provider, call string, chain model.Chain, addr string,
	fn func(context.Context) (any, error)) (any, error) {

	key := cacheKey{Provider: provider, Chain: string(chain), Address: addr, Call: call}
	if v, ok := g.cache.get(key); ok {
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()

	sfKey := provider + "|" + string(chain) + "|" + addr + "|" + call
	v, err, _ := g.sf.Do(sfKey, func() (any, error) {
		// A coalesced caller may land here after the leader filled the cache.
		if v, ok := g.cache.get(key); ok {
			return v, nil
		}

		breakerKey := provider + ":" + string(chain)
		if !g.breaker.Allow(breakerKey) {
			metrics.ProviderRequestsTotal.WithLabelValues(provider, call, "rejected").Inc()
			return nil, errCircuitOpen
		}

		var out any
		err := retry.Do(ctx, fetchAttempts, fetchBaseDelay, func() error {
			cctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			start := time.Now()
			v, ferr := fn(cctx)
			metrics.ProviderRequestDuration.WithLabelValues(provider, call).Observe(time.Since(start).Seconds())
			metrics.ProviderRequestsTotal.WithLabelValues(provider, call, outcome(ferr)).Inc()
			if ferr != nil {
				return ferr
			}
			out = v
			return nil
		})
		if err != nil {
			g.breaker.RecordFailure(breakerKey)
			g.logger.Warn("chain-data fetch failed",
				"provider", provider, "call", call, "chain", chain, "addr", addr, "error", err)
			return nil, err
		}
		g.breaker.RecordSuccess(breakerKey)
		g.cache.set(key, out)
		return out, nil
	})
	return v, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
