package model

// TriBool is a three-valued boolean for on-chain facts that may simply be
// unavailable. Unknown is the zero value, so a freshly built facts object
// starts with every flag unknown rather than false.
type TriBool int

const (
	TriUnknown TriBool = iota
	TriFalse
	TriTrue
)

// String returns "unknown", "false" or "true".
func (b TriBool) String() string {
	switch b {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Bool converts a Go bool to a TriBool.
func Bool(v bool) TriBool {
	if v {
		return TriTrue
	}
	return TriFalse
}

// MaybeInt is an integer fact that may be unknown. The zero value is
// unknown, which is distinct from a known zero (e.g. "no transactions"
// is a signal; "could not fetch" is not).
type MaybeInt struct {
	Value int64
	Known bool
}

// KnownInt wraps a fetched integer value.
func KnownInt(v int64) MaybeInt { return MaybeInt{Value: v, Known: true} }

// Or returns the value if known, otherwise the fallback.
func (m MaybeInt) Or(fallback int64) int64 {
	if m.Known {
		return m.Value
	}
	return fallback
}

// MaybeFloat is a float fact that may be unknown.
type MaybeFloat struct {
	Value float64
	Known bool
}

// KnownFloat wraps a fetched float value.
func KnownFloat(v float64) MaybeFloat { return MaybeFloat{Value: v, Known: true} }

// Or returns the value if known, otherwise the fallback.
func (m MaybeFloat) Or(fallback float64) float64 {
	if m.Known {
		return m.Value
	}
	return fallback
}

// EnrichedFacts is the on-chain context gathered for one transaction
// before scoring. Every field may be unknown; sub-models must treat
// unknown as neutral, never as risky or safe, unless a rule explicitly
// defines absence itself as the signal.
type EnrichedFacts struct {
	WalletTxCount    MaybeInt   // sender lifetime transaction count
	WalletAgeDays    MaybeInt   // days since sender's first transaction
	RecipientAgeDays MaybeInt   // days since recipient's first transaction
	RecipientTxCount MaybeInt   // recipient lifetime transaction count
	SenderAvgTxUSD   MaybeFloat // mean USD amount of recent sender transfers
	SenderTxLastHour MaybeInt   // sender transfers in the trailing hour
	ContractVerified TriBool    // token contract source verification

	// HistoryAmounts holds recent sender transfer amounts in USD,
	// oldest first. Empty when history could not be fetched.
	HistoryAmounts []float64

	Contract ContractFacts

	// Failures records enrichment lookups that degraded to unknown,
	// as stable identifiers for the verdict's reason text.
	Failures []string
}

// ContractFacts is static metadata about the token contract, when one is
// involved. All fields tolerate absence.
type ContractFacts struct {
	SellTaxPct     MaybeFloat
	BuyTaxPct      MaybeFloat
	OwnerRenounced TriBool
	KnownContract  TriBool // contract address recognized for its symbol
}

// RecordFailure appends a degraded-lookup marker. Markers are
// deduplicated so retried lookups do not repeat themselves.
func (f *EnrichedFacts) RecordFailure(id string) {
	for _, existing := range f.Failures {
		if existing == id {
			return
		}
	}
	f.Failures = append(f.Failures, id)
}

// Degraded reports whether any enrichment lookup failed.
func (f *EnrichedFacts) Degraded() bool { return len(f.Failures) > 0 }
