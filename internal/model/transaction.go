// Package model defines the core data types for pre-transaction risk
// scoring: the proposed transfer, the on-chain facts gathered for it,
// and the verdict handed back to the caller.
package model

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain identifies the network a transfer is proposed on.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBSC      Chain = "bsc"
	ChainPolygon  Chain = "polygon"
)

// chainAliases maps user-facing chain names to canonical Chain values.
var chainAliases = map[string]Chain{
	"ethereum": ChainEthereum,
	"eth":      ChainEthereum,
	"mainnet":  ChainEthereum,
	"bsc":      ChainBSC,
	"bnb":      ChainBSC,
	"binance":  ChainBSC,
	"polygon":  ChainPolygon,
	"matic":    ChainPolygon,
}

// ParseChain normalizes a chain name through the alias table.
// Unrecognized names default to Ethereum so a typo degrades the
// enrichment quality rather than failing the scoring call.
func ParseChain(s string) Chain {
	if c, ok := chainAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return ChainEthereum
}

// Transaction is an immutable proposed transfer. Construct it with
// NewTransaction so addresses are case-normalized before any comparison
// or lookup; raw struct literals are reserved for tests.
type Transaction struct {
	Chain         Chain     `json:"chain"`
	FromAddr      string    `json:"from_addr"`
	ToAddr        string    `json:"to_addr"`
	TokenSymbol   string    `json:"token_symbol"`
	TokenContract string    `json:"token_contract,omitempty"`
	Amount        float64   `json:"amount"`
	AmountUSD     float64   `json:"amount_usd"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransaction builds a Transaction with coerced, normalized fields.
// Malformed input is repaired rather than rejected: a partial verdict is
// more useful than none. Negative amounts clamp to 0, addresses are
// lowercased, the timestamp defaults to now (UTC).
func NewTransaction(chain, from, to, symbol, contract string, amount, amountUSD float64, ts time.Time) Transaction {
	if amount < 0 {
		amount = 0
	}
	if amountUSD < 0 {
		amountUSD = 0
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Transaction{
		Chain:         ParseChain(chain),
		FromAddr:      NormalizeAddress(from),
		ToAddr:        NormalizeAddress(to),
		TokenSymbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		TokenContract: NormalizeAddress(contract),
		Amount:        amount,
		AmountUSD:     amountUSD,
		Timestamp:     ts.UTC(),
	}
}

// SelfTransfer reports whether sender and recipient are the same address.
func (t Transaction) SelfTransfer() bool {
	return t.FromAddr != "" && t.FromAddr == t.ToAddr
}

// NormalizeAddress lowercases and trims an address identifier. Well-formed
// hex addresses are round-tripped through go-ethereum so shorthand forms
// (missing zero padding, mixed checksum case) collapse to one canonical
// spelling; anything else is kept as an opaque lowercase identifier.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if common.IsHexAddress(addr) {
		return strings.ToLower(common.HexToAddress(addr).Hex())
	}
	return addr
}
