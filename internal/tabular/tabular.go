// Package tabular predicts transfer risk from a fixed feature vector,
// using a pre-trained tree ensemble when an artifact is available and a
// deterministic amount heuristic otherwise. The heuristic also backstops
// every prediction failure so this component can never take scoring down.
package tabular

import (
	"fmt"
	"math"

	"github.com/ctrad/prescreen/internal/metrics"
	"github.com/ctrad/prescreen/internal/model"
)

// FeatureNames is the canonical feature order. Artifacts are trained
// against this exact layout and refuse to load if theirs differs.
var FeatureNames = []string{
	"amount_usd",
	"log_amount_usd",
	"sender_tx_count",
	"sender_wallet_age_days",
	"recipient_age_days",
	"sender_avg_tx_usd",
	"is_token_transfer",
}

// Features builds the feature vector for a transfer. Unknown enrichment
// values encode as -1 so the model can distinguish "zero" from "absent".
func Features(tx *model.Transaction, facts *model.EnrichedFacts) []float64 {
	isToken := 0.0
	if tx.TokenContract != "" {
		isToken = 1.0
	}
	return []float64{
		tx.AmountUSD,
		math.Log1p(tx.AmountUSD),
		float64(facts.WalletTxCount.Or(-1)),
		float64(facts.WalletAgeDays.Or(-1)),
		float64(facts.RecipientAgeDays.Or(-1)),
		facts.SenderAvgTxUSD.Or(-1),
		isToken,
	}
}

// Predictor maps a feature vector to a risk estimate in [0, 1].
type Predictor interface {
	Name() string
	Predict(features []float64) (float64, error)
}

// Scorer runs the primary predictor and falls back to the heuristic when
// it fails, so a broken or missing artifact degrades precision, never
// availability.
type Scorer struct {
	primary  Predictor
	fallback Predictor
}

// NewScorer builds a scorer. primary may be nil, in which case every
// prediction uses the heuristic.
func NewScorer(primary Predictor) *Scorer {
	return &Scorer{primary: primary, fallback: Heuristic{}}
}

// Score predicts risk for a transfer, clamped to [0, 1].
func (s *Scorer) Score(tx *model.Transaction, facts *model.EnrichedFacts) (float64, []string) {
	features := Features(tx, facts)

	if s.primary != nil {
		score, err := s.primary.Predict(features)
		if err == nil {
			return model.Clamp01(score), nil
		}
		metrics.TabularFallbacksTotal.Inc()
	}

	score, _ := s.fallback.Predict(features)
	return model.Clamp01(score), nil
}

// Heuristic is the fallback predictor: a coarse amount-tier mapping that
// needs no artifact and cannot fail.
type Heuristic struct{}

// Name identifies the predictor in logs.
func (Heuristic) Name() string { return "heuristic" }

// Predict maps the USD amount to a fixed risk tier.
func (Heuristic) Predict(features []float64) (float64, error) {
	if len(features) == 0 {
		return 0, fmt.Errorf("empty feature vector")
	}
	amount := features[0]
	switch {
	case amount <= 1_000:
		return 0.05, nil
	case amount <= 10_000:
		return 0.2, nil
	case amount <= 100_000:
		return 0.5, nil
	default:
		return 0.85, nil
	}
}
