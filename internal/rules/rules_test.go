package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/ctrad/prescreen/internal/intel"
	"github.com/ctrad/prescreen/internal/model"
)

// noon keeps the odd-hour rule quiet unless a test wants it.
var noon = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func cleanTx() *model.Transaction {
	tx := model.NewTransaction("ethereum",
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"USDC", "", 500, 500, noon)
	return &tx
}

func engine(t *testing.T) *Engine {
	t.Helper()
	return New(intel.NewDefault(), nil, nil)
}

func hitIDs(r Result) []string {
	ids := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func assertOnlyHit(t *testing.T, r Result, id string) {
	t.Helper()
	if len(r.Hits) != 1 || r.Hits[0].ID != id {
		t.Fatalf("hits = %v, want exactly [%s]", hitIDs(r), id)
	}
}

func TestCleanTransferScoresZero(t *testing.T) {
	r := engine(t).Evaluate(cleanTx(), &model.EnrichedFacts{})
	if r.Score != 0 || len(r.Hits) != 0 {
		t.Fatalf("score = %f, hits = %v, want no hits", r.Score, hitIDs(r))
	}
}

func TestBlacklistRecipient(t *testing.T) {
	tx := cleanTx()
	tx.ToAddr = "0x722122df12d4e14e13ac3b6895a86e84145b6967" // sanctioned mixer

	r := engine(t).Evaluate(tx, &model.EnrichedFacts{})
	assertOnlyHit(t, r, RuleBlacklist)
	if want := 30.0 / 180.0; r.Score != want {
		t.Errorf("score = %f, want %f", r.Score, want)
	}
}

func TestHighAmountTiers(t *testing.T) {
	tests := []struct {
		amountUSD  float64
		wantPoints float64
	}{
		{500, 0},
		{1_000, 8},
		{9_999, 8},
		{10_000, 15},
		{100_000, 25},
		{5_000_000, 25},
	}
	e := engine(t)
	for _, tt := range tests {
		tx := cleanTx()
		tx.AmountUSD = tt.amountUSD
		r := e.Evaluate(tx, &model.EnrichedFacts{})

		var got float64
		for _, h := range r.Hits {
			if h.ID == RuleHighAmount {
				got = h.Points
			}
		}
		if got != tt.wantPoints {
			t.Errorf("amount $%.0f: points = %f, want %f", tt.amountUSD, got, tt.wantPoints)
		}
	}
}

func TestFreshWalletNeedsKnownAge(t *testing.T) {
	e := engine(t)

	r := e.Evaluate(cleanTx(), &model.EnrichedFacts{RecipientAgeDays: model.KnownInt(5)})
	assertOnlyHit(t, r, RuleFreshWallet)

	r = e.Evaluate(cleanTx(), &model.EnrichedFacts{RecipientAgeDays: model.KnownInt(90)})
	if len(r.Hits) != 0 {
		t.Errorf("aged wallet fired %v", hitIDs(r))
	}

	// Unknown age must not be treated as fresh.
	r = e.Evaluate(cleanTx(), &model.EnrichedFacts{})
	if len(r.Hits) != 0 {
		t.Errorf("unknown age fired %v", hitIDs(r))
	}
}

func TestRiskyToken(t *testing.T) {
	tx := cleanTx()
	tx.TokenSymbol = "SQUID"
	assertOnlyHit(t, engine(t).Evaluate(tx, &model.EnrichedFacts{}), RuleRiskyToken)
}

func TestContractUnverified(t *testing.T) {
	e := engine(t)
	tx := cleanTx()
	tx.TokenContract = "0x3333333333333333333333333333333333333333"

	r := e.Evaluate(tx, &model.EnrichedFacts{ContractVerified: model.TriFalse})
	assertOnlyHit(t, r, RuleContractUnverified)

	// Unknown verification status is not a finding.
	r = e.Evaluate(tx, &model.EnrichedFacts{ContractVerified: model.TriUnknown})
	if len(r.Hits) != 0 {
		t.Errorf("unknown verification fired %v", hitIDs(r))
	}

	// Native transfers have no contract to verify.
	r = e.Evaluate(cleanTx(), &model.EnrichedFacts{ContractVerified: model.TriFalse})
	if len(r.Hits) != 0 {
		t.Errorf("native transfer fired %v", hitIDs(r))
	}
}

func TestRapidSpam(t *testing.T) {
	e := engine(t)

	r := e.Evaluate(cleanTx(), &model.EnrichedFacts{SenderTxLastHour: model.KnownInt(12)})
	assertOnlyHit(t, r, RuleRapidSpam)

	r = e.Evaluate(cleanTx(), &model.EnrichedFacts{SenderTxLastHour: model.KnownInt(9)})
	if len(r.Hits) != 0 {
		t.Errorf("below threshold fired %v", hitIDs(r))
	}
}

func TestLargeDeviation(t *testing.T) {
	e := engine(t)
	tx := cleanTx()
	tx.AmountUSD = 500

	r := e.Evaluate(tx, &model.EnrichedFacts{SenderAvgTxUSD: model.KnownFloat(40)})
	assertOnlyHit(t, r, RuleLargeDeviation)

	r = e.Evaluate(tx, &model.EnrichedFacts{SenderAvgTxUSD: model.KnownFloat(100)})
	if len(r.Hits) != 0 {
		t.Errorf("5x deviation fired %v", hitIDs(r))
	}
}

func TestDusting(t *testing.T) {
	e := engine(t)
	tx := cleanTx()
	tx.AmountUSD = 0.25

	// 40 transfers in the hour is both a dusting signal and spam.
	r := e.Evaluate(tx, &model.EnrichedFacts{SenderTxLastHour: model.KnownInt(40)})
	if got := hitIDs(r); len(got) != 2 || got[0] != RuleRapidSpam || got[1] != RuleDusting {
		t.Fatalf("hits = %v, want [%s %s]", got, RuleRapidSpam, RuleDusting)
	}

	// A quiet sender sending small amounts is normal.
	r = e.Evaluate(tx, &model.EnrichedFacts{SenderTxLastHour: model.KnownInt(3)})
	if len(r.Hits) != 0 {
		t.Errorf("quiet sender fired %v", hitIDs(r))
	}

	// A busy lifetime nonce alone is not a dusting signal.
	r = e.Evaluate(tx, &model.EnrichedFacts{WalletTxCount: model.KnownInt(5000)})
	if len(r.Hits) != 0 {
		t.Errorf("lifetime count fired %v", hitIDs(r))
	}

	// Zero amount is a malformed input, not dust.
	tx.AmountUSD = 0
	r = e.Evaluate(tx, &model.EnrichedFacts{SenderTxLastHour: model.KnownInt(40)})
	if got := hitIDs(r); len(got) != 1 || got[0] != RuleRapidSpam {
		t.Errorf("zero amount hits = %v, want only spam", got)
	}
}

func TestSelfTransfer(t *testing.T) {
	tx := cleanTx()
	tx.ToAddr = tx.FromAddr
	assertOnlyHit(t, engine(t).Evaluate(tx, &model.EnrichedFacts{}), RuleSelfTransfer)
}

func TestOddHour(t *testing.T) {
	e := engine(t)
	for _, hour := range []int{0, 2, 22, 23} {
		tx := cleanTx()
		tx.Timestamp = time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
		r := e.Evaluate(tx, &model.EnrichedFacts{})
		assertOnlyHit(t, r, RuleOddHour)
	}
	for _, hour := range []int{3, 12, 21} {
		tx := cleanTx()
		tx.Timestamp = time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
		if r := e.Evaluate(tx, &model.EnrichedFacts{}); len(r.Hits) != 0 {
			t.Errorf("hour %d fired %v", hour, hitIDs(r))
		}
	}
}

func TestScoreSaturatesAtOne(t *testing.T) {
	// Pump the blacklist rule far beyond the schedule total.
	e := New(intel.NewDefault(), map[string]float64{RuleBlacklist: 100_000}, nil)
	tx := cleanTx()
	tx.ToAddr = "0x722122df12d4e14e13ac3b6895a86e84145b6967"

	if r := e.Evaluate(tx, &model.EnrichedFacts{}); r.Score != 1.0 {
		t.Errorf("score = %f, want saturation at 1.0", r.Score)
	}
}

func TestPointOverrides(t *testing.T) {
	e := New(intel.NewDefault(), map[string]float64{
		RuleSelfTransfer: 50,
		"not_a_rule":     99,
	}, nil)

	// Overriding self_transfer from 10 to 50 moves the schedule total.
	wantMax := 180.0 - 10 + 50
	if e.MaxPoints() != wantMax {
		t.Fatalf("max points = %f, want %f", e.MaxPoints(), wantMax)
	}

	tx := cleanTx()
	tx.ToAddr = tx.FromAddr
	r := e.Evaluate(tx, &model.EnrichedFacts{})
	assertOnlyHit(t, r, RuleSelfTransfer)
	if r.Hits[0].Points != 50 {
		t.Errorf("points = %f, want 50", r.Hits[0].Points)
	}
}

func TestZeroedRuleNeverFires(t *testing.T) {
	e := New(intel.NewDefault(), map[string]float64{RuleOddHour: 0}, nil)
	tx := cleanTx()
	tx.Timestamp = time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)

	if r := e.Evaluate(tx, &model.EnrichedFacts{}); len(r.Hits) != 0 {
		t.Errorf("zero-point rule fired %v", hitIDs(r))
	}
}

func TestHitsCarryFixedImpacts(t *testing.T) {
	// Zero out the blacklist points. The hit still carries its full
	// display impact: ranking weights do not follow the point schedule.
	e := New(intel.NewDefault(),
		map[string]float64{RuleBlacklist: 1},
		nil)
	tx := cleanTx()
	tx.ToAddr = "0x722122df12d4e14e13ac3b6895a86e84145b6967"

	r := e.Evaluate(tx, &model.EnrichedFacts{})
	assertOnlyHit(t, r, RuleBlacklist)
	if r.Hits[0].Impact != DefaultImpacts[RuleBlacklist] {
		t.Errorf("impact = %f, want %f", r.Hits[0].Impact, DefaultImpacts[RuleBlacklist])
	}
	if r.Hits[0].Points != 1 {
		t.Errorf("points = %f, want the overridden 1", r.Hits[0].Points)
	}
}

func TestImpactOverrides(t *testing.T) {
	e := New(intel.NewDefault(), nil, map[string]float64{
		RuleOddHour:  0.9,
		"not_a_rule": 1,
	})
	tx := cleanTx()
	tx.Timestamp = time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)

	r := e.Evaluate(tx, &model.EnrichedFacts{})
	assertOnlyHit(t, r, RuleOddHour)
	if r.Hits[0].Impact != 0.9 {
		t.Errorf("impact = %f, want the overridden 0.9", r.Hits[0].Impact)
	}
}

func TestReasonsAreHumanReadable(t *testing.T) {
	tx := cleanTx()
	tx.TokenSymbol = "SQUID"
	r := engine(t).Evaluate(tx, &model.EnrichedFacts{})

	reasons := r.Reasons()
	if len(reasons) != 1 || !strings.Contains(reasons[0], "SQUID") {
		t.Errorf("reasons = %v, want token name in the explanation", reasons)
	}
}
