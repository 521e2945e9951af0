// Package rules scores a transfer against a fixed set of deterministic
// heuristics. Each rule that fires contributes points; the final score is
// the point total normalized by the maximum attainable, capped at 1.0.
package rules

import (
	"fmt"
	"math"

	"github.com/ctrad/prescreen/internal/intel"
	"github.com/ctrad/prescreen/internal/model"
)

// Rule IDs. Stable across releases so downstream alerting can key on them.
const (
	RuleBlacklist          = "blacklist"
	RuleHighAmount         = "high_amount"
	RuleFreshWallet        = "fresh_wallet"
	RuleRiskyToken         = "risky_token"
	RuleContractUnverified = "contract_unverified"
	RuleRapidSpam          = "rapid_spam"
	RuleLargeDeviation     = "large_deviation"
	RuleDusting            = "dusting"
	RuleSelfTransfer       = "self_transfer"
	RuleOddHour            = "odd_hour"
)

// DefaultPoints are the base points each rule contributes when it fires
// at full weight.
var DefaultPoints = map[string]float64{
	RuleBlacklist:          30,
	RuleHighAmount:         25,
	RuleFreshWallet:        20,
	RuleRiskyToken:         20,
	RuleContractUnverified: 25,
	RuleRapidSpam:          15,
	RuleLargeDeviation:     20,
	RuleDusting:            10,
	RuleSelfTransfer:       10,
	RuleOddHour:            5,
}

// DefaultImpacts are fixed display-ranking weights per rule, used to
// order verdict top features. They reflect how alarming a fired rule is
// to a reviewer and are deliberately independent of the point schedule.
var DefaultImpacts = map[string]float64{
	RuleBlacklist:          1.0,
	RuleHighAmount:         0.7,
	RuleFreshWallet:        0.5,
	RuleRiskyToken:         0.6,
	RuleContractUnverified: 0.6,
	RuleRapidSpam:          0.4,
	RuleLargeDeviation:     0.5,
	RuleDusting:            0.3,
	RuleSelfTransfer:       0.2,
	RuleOddHour:            0.1,
}

// Thresholds used by individual rules.
const (
	amountTierHigh  = 100_000 // USD, full points
	amountTierMid   = 10_000  // USD, reduced points
	amountTierLow   = 1_000   // USD, minimal points
	freshWalletDays = 30
	spamTxPerHour   = 10
	deviationFactor = 10
	dustUSD         = 1.0
	dustMinRecentTx = 20
	oddHourStartUTC = 22
	oddHourEndUTC   = 3
)

// Rule is one heuristic check. weight scales the rule's base points and
// is 1.0 for all-or-nothing rules; detail is a short human explanation.
type Rule interface {
	ID() string
	Evaluate(tx *model.Transaction, facts *model.EnrichedFacts) (hit bool, weight float64, detail string)
}

// Hit records one fired rule with its contributed points and its fixed
// display-ranking impact.
type Hit struct {
	ID     string
	Points float64
	Impact float64
	Detail string
}

// Result is the outcome of evaluating every rule against a transfer.
type Result struct {
	Score float64 // normalized to [0, 1]
	Hits  []Hit
}

// Reasons returns the detail strings of fired rules in evaluation order.
func (r Result) Reasons() []string {
	out := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		out = append(out, h.Detail)
	}
	return out
}

// Engine evaluates the full rule set with a configurable point schedule.
type Engine struct {
	db        *intel.DB
	rules     []Rule
	points    map[string]float64
	impacts   map[string]float64
	maxPoints float64
}

// New builds the engine with the default rules. pointOverrides replaces
// base points per rule ID and impactOverrides replaces display-ranking
// impacts; unknown IDs are ignored in both.
func New(db *intel.DB, pointOverrides, impactOverrides map[string]float64) *Engine {
	points := overlay(DefaultPoints, pointOverrides)
	impacts := overlay(DefaultImpacts, impactOverrides)

	var maxPoints float64
	for _, p := range points {
		maxPoints += p
	}
	if maxPoints <= 0 {
		maxPoints = 1
	}

	return &Engine{
		db: db,
		rules: []Rule{
			blacklistRule{db: db},
			highAmountRule{},
			freshWalletRule{},
			riskyTokenRule{db: db},
			contractUnverifiedRule{},
			rapidSpamRule{},
			largeDeviationRule{},
			dustingRule{},
			selfTransferRule{},
			oddHourRule{},
		},
		points:    points,
		impacts:   impacts,
		maxPoints: maxPoints,
	}
}

func overlay(defaults, overrides map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(defaults))
	for id, v := range defaults {
		out[id] = v
	}
	for id, v := range overrides {
		if _, ok := out[id]; ok && v >= 0 {
			out[id] = v
		}
	}
	return out
}

// Evaluate runs every rule and returns the normalized score with the
// list of fired rules. Rules never error; unknown facts simply do not
// fire the rules that need them.
func (e *Engine) Evaluate(tx *model.Transaction, facts *model.EnrichedFacts) Result {
	var total float64
	var hits []Hit
	for _, r := range e.rules {
		hit, weight, detail := r.Evaluate(tx, facts)
		if !hit {
			continue
		}
		pts := e.points[r.ID()] * weight
		if pts <= 0 {
			continue
		}
		total += pts
		hits = append(hits, Hit{
			ID:     r.ID(),
			Points: pts,
			Impact: e.impacts[r.ID()],
			Detail: detail,
		})
	}
	return Result{
		Score: math.Min(1.0, total/e.maxPoints),
		Hits:  hits,
	}
}

// MaxPoints returns the maximum attainable point total under the current
// schedule.
func (e *Engine) MaxPoints() float64 { return e.maxPoints }

type blacklistRule struct{ db *intel.DB }

func (blacklistRule) ID() string { return RuleBlacklist }

func (r blacklistRule) Evaluate(tx *model.Transaction, _ *model.EnrichedFacts) (bool, float64, string) {
	switch {
	case r.db.IsBlacklistedAddress(tx.ToAddr):
		return true, 1.0, "recipient address is on the blacklist"
	case r.db.IsBlacklistedAddress(tx.FromAddr):
		return true, 1.0, "sender address is on the blacklist"
	case tx.TokenContract != "" && r.db.IsBlacklistedContract(tx.TokenContract):
		return true, 1.0, "token contract is on the blacklist"
	}
	return false, 0, ""
}

type highAmountRule struct{}

func (highAmountRule) ID() string { return RuleHighAmount }

func (highAmountRule) Evaluate(tx *model.Transaction, _ *model.EnrichedFacts) (bool, float64, string) {
	switch {
	case tx.AmountUSD >= amountTierHigh:
		return true, 1.0, fmt.Sprintf("very large transfer ($%.0f)", tx.AmountUSD)
	case tx.AmountUSD >= amountTierMid:
		return true, 0.6, fmt.Sprintf("large transfer ($%.0f)", tx.AmountUSD)
	case tx.AmountUSD >= amountTierLow:
		return true, 0.32, fmt.Sprintf("sizeable transfer ($%.0f)", tx.AmountUSD)
	}
	return false, 0, ""
}

type freshWalletRule struct{}

func (freshWalletRule) ID() string { return RuleFreshWallet }

func (freshWalletRule) Evaluate(_ *model.Transaction, facts *model.EnrichedFacts) (bool, float64, string) {
	if !facts.RecipientAgeDays.Known {
		return false, 0, ""
	}
	if age := facts.RecipientAgeDays.Value; age < freshWalletDays {
		return true, 1.0, fmt.Sprintf("recipient wallet is only %d days old", age)
	}
	return false, 0, ""
}

type riskyTokenRule struct{ db *intel.DB }

func (riskyTokenRule) ID() string { return RuleRiskyToken }

func (r riskyTokenRule) Evaluate(tx *model.Transaction, _ *model.EnrichedFacts) (bool, float64, string) {
	if r.db.IsRiskyToken(tx.TokenSymbol) {
		return true, 1.0, fmt.Sprintf("token %s is flagged as high risk", tx.TokenSymbol)
	}
	return false, 0, ""
}

type contractUnverifiedRule struct{}

func (contractUnverifiedRule) ID() string { return RuleContractUnverified }

func (contractUnverifiedRule) Evaluate(tx *model.Transaction, facts *model.EnrichedFacts) (bool, float64, string) {
	if tx.TokenContract == "" {
		return false, 0, ""
	}
	if facts.ContractVerified == model.TriFalse {
		return true, 1.0, "token contract source code is not verified"
	}
	return false, 0, ""
}

type rapidSpamRule struct{}

func (rapidSpamRule) ID() string { return RuleRapidSpam }

func (rapidSpamRule) Evaluate(_ *model.Transaction, facts *model.EnrichedFacts) (bool, float64, string) {
	if !facts.SenderTxLastHour.Known {
		return false, 0, ""
	}
	if n := facts.SenderTxLastHour.Value; n >= spamTxPerHour {
		return true, 1.0, fmt.Sprintf("sender made %d transfers in the last hour", n)
	}
	return false, 0, ""
}

type largeDeviationRule struct{}

func (largeDeviationRule) ID() string { return RuleLargeDeviation }

func (largeDeviationRule) Evaluate(tx *model.Transaction, facts *model.EnrichedFacts) (bool, float64, string) {
	if !facts.SenderAvgTxUSD.Known || facts.SenderAvgTxUSD.Value <= 0 {
		return false, 0, ""
	}
	if tx.AmountUSD >= facts.SenderAvgTxUSD.Value*deviationFactor {
		return true, 1.0, fmt.Sprintf("amount is %.0fx the sender's average transfer", tx.AmountUSD/facts.SenderAvgTxUSD.Value)
	}
	return false, 0, ""
}

type dustingRule struct{}

func (dustingRule) ID() string { return RuleDusting }

func (dustingRule) Evaluate(tx *model.Transaction, facts *model.EnrichedFacts) (bool, float64, string) {
	if tx.AmountUSD >= dustUSD || tx.AmountUSD <= 0 {
		return false, 0, ""
	}
	if facts.SenderTxLastHour.Known && facts.SenderTxLastHour.Value > dustMinRecentTx {
		return true, 1.0, "dust-sized transfer from a sender with heavy recent activity"
	}
	return false, 0, ""
}

type selfTransferRule struct{}

func (selfTransferRule) ID() string { return RuleSelfTransfer }

func (selfTransferRule) Evaluate(tx *model.Transaction, _ *model.EnrichedFacts) (bool, float64, string) {
	if tx.SelfTransfer() {
		return true, 1.0, "sender and recipient are the same address"
	}
	return false, 0, ""
}

type oddHourRule struct{}

func (oddHourRule) ID() string { return RuleOddHour }

func (oddHourRule) Evaluate(tx *model.Transaction, _ *model.EnrichedFacts) (bool, float64, string) {
	h := tx.Timestamp.UTC().Hour()
	if h < oddHourEndUTC || h >= oddHourStartUTC {
		return true, 1.0, fmt.Sprintf("transfer initiated at %02d:00 UTC", h)
	}
	return false, 0, ""
}
