// Package sequence flags transfers whose amount breaks the sender's
// historical pattern. It is a z-score detector over the recent outgoing
// amount series, not a learned model: simple, explainable, and stable.
package sequence

import (
	"fmt"
	"math"

	"github.com/ctrad/prescreen/internal/model"
)

const (
	// minHistory is the series length below which no baseline exists.
	minHistory = 3
	// coldStartScore is the fixed mild suspicion for senders without a
	// baseline. A brand-new wallet is not anomalous, just unproven.
	coldStartScore = 0.10
	// zSaturation is the z-score mapped to a full 1.0 anomaly.
	zSaturation = 5.0
	// stddevFloor guards the division when history is perfectly uniform.
	stddevFloor = 1e-6
)

// Model scores amount anomalies against the sender's transfer history.
type Model struct{}

// New builds the anomaly model.
func New() *Model { return &Model{} }

// Score returns the anomaly score in [0, 1] for the proposed amount given
// the sender's recent outgoing amounts (oldest first).
func (m *Model) Score(tx *model.Transaction, facts *model.EnrichedFacts) (float64, []string) {
	history := facts.HistoryAmounts
	if len(history) < minHistory {
		return coldStartScore, []string{"not enough transfer history to establish a baseline"}
	}

	mean, stddev := meanStddev(history)
	if stddev < stddevFloor {
		stddev = stddevFloor
	}
	z := math.Abs(tx.AmountUSD-mean) / stddev

	score := math.Min(z/zSaturation, 1.0)
	var reasons []string
	if score >= 0.5 {
		reasons = append(reasons, fmt.Sprintf("amount deviates %.1f standard deviations from the sender's pattern", z))
	}
	return score, reasons
}

// meanStddev computes the population mean and standard deviation.
func meanStddev(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var varSum float64
	for _, x := range xs {
		d := x - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(len(xs)))
}
