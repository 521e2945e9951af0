// Package chaindata fetches on-chain facts for transaction scoring.
//
// The Gateway is the only component that talks to external services. It
// never returns an error to the scorer: any transport, parse, or timeout
// failure degrades the affected fact to unknown and records a marker on
// the facts object. Results are cached with a fixed TTL and concurrent
// lookups for the same key are coalesced to at most one in-flight fetch.
package chaindata

import (
	"context"
	"time"

	"github.com/ctrad/prescreen/internal/model"
)

// Transfer is one historical transfer observed for an address.
type Transfer struct {
	From      string
	To        string
	AmountUSD float64
	Timestamp time.Time
}

// Provider is a chain-data source. Implementations must honor the
// context deadline; errors are handled (not propagated) by the Gateway.
type Provider interface {
	Name() string
	WalletTxCount(ctx context.Context, chain model.Chain, addr string) (int64, error)
	WalletAgeDays(ctx context.Context, chain model.Chain, addr string) (int64, error)
	ContractVerified(ctx context.Context, chain model.Chain, addr string) (bool, error)
	AddressTransactions(ctx context.Context, chain model.Chain, addr string, limit int) ([]Transfer, error)
}

// NonceSource is a narrow secondary source for wallet transaction counts,
// consulted when the primary provider fails. A JSON-RPC node can serve
// this even when the scan API is down.
type NonceSource interface {
	Name() string
	WalletTxCount(ctx context.Context, chain model.Chain, addr string) (int64, error)
}
