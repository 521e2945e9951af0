// Package contractrisk scores the token contract a transfer would touch.
// Signals are additive and saturate at 1.0: a blacklisted honeypot plus
// extreme taxes does not score worse than a plain blacklisted honeypot.
package contractrisk

import (
	"fmt"
	"math"

	"github.com/ctrad/prescreen/internal/intel"
	"github.com/ctrad/prescreen/internal/model"
)

// Signal contributions.
const (
	scoreBlacklisted   = 0.9
	scoreImpersonation = 0.4
	scoreSellTax       = 0.6
	scoreBuyTax        = 0.4
	scoreNotRenounced  = 0.3

	sellTaxLimitPct = 20.0
	buyTaxLimitPct  = 15.0
)

// Model scores token contract risk from the intelligence database plus
// the caller-supplied contract facts.
type Model struct {
	db *intel.DB
}

// New builds the model over the given intelligence database.
func New(db *intel.DB) *Model {
	return &Model{db: db}
}

// Score returns the contract risk in [0, 1] with the triggered signals.
// Native transfers carry no contract and score 0.
func (m *Model) Score(tx *model.Transaction, facts *model.EnrichedFacts) (float64, []string) {
	if tx.TokenContract == "" {
		return 0, nil
	}

	var score float64
	var reasons []string
	add := func(s float64, reason string) {
		score += s
		reasons = append(reasons, reason)
	}

	if m.db.IsBlacklistedContract(tx.TokenContract) {
		add(scoreBlacklisted, "contract is a known honeypot or scam deployment")
	}

	// A contract claiming a major token's symbol but not matching any of
	// its tracked deployments is almost certainly an impersonation.
	if recognized, tracked := m.db.RecognizedContract(tx.TokenSymbol, tx.TokenContract); tracked && !recognized {
		add(scoreImpersonation, fmt.Sprintf("contract does not match any known %s deployment", tx.TokenSymbol))
	}

	cf := facts.Contract
	if cf.SellTaxPct.Known && cf.SellTaxPct.Value > sellTaxLimitPct {
		add(scoreSellTax, fmt.Sprintf("sell tax of %.0f%% traps holders", cf.SellTaxPct.Value))
	}
	if cf.BuyTaxPct.Known && cf.BuyTaxPct.Value > buyTaxLimitPct {
		add(scoreBuyTax, fmt.Sprintf("buy tax of %.0f%% is abnormally high", cf.BuyTaxPct.Value))
	}
	if cf.OwnerRenounced == model.TriFalse {
		add(scoreNotRenounced, "contract owner retains privileged control")
	}

	return math.Min(1.0, score), reasons
}
