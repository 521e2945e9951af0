package model

import "math"

// Label is the categorical risk classification of a verdict.
type Label string

const (
	LabelSafe       Label = "safe"
	LabelSuspicious Label = "suspicious"
	LabelHighRisk   Label = "high_risk"
)

// Action is the recommended disposition for the proposed transfer.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Component names the five independent signals that feed a verdict.
type Component string

const (
	ComponentRules    Component = "rules"
	ComponentTabular  Component = "tabular"
	ComponentSequence Component = "sequence"
	ComponentGraph    Component = "graph"
	ComponentContract Component = "contract"
)

// Components lists all signal names in presentation order.
var Components = []Component{
	ComponentRules,
	ComponentTabular,
	ComponentSequence,
	ComponentGraph,
	ComponentContract,
}

// TopFeature is one contributor to the verdict, ranked by impact.
type TopFeature struct {
	Name   string  `json:"name"`
	Value  string  `json:"value"`
	Impact float64 `json:"impact"`
}

// Verdict is the complete scoring result for one transaction. It is a
// pure function of the transaction and the chain-data snapshot: scoring
// the same inputs twice reproduces it exactly.
type Verdict struct {
	RiskScore       float64               `json:"risk_score"` // 0-100, two decimals
	RiskLabel       Label                 `json:"risk_label"`
	Action          Action                `json:"action"`
	ComponentScores map[Component]float64 `json:"component_scores"`
	TopFeatures     []TopFeature          `json:"top_features"`
	ReasonText      string                `json:"reason_text"`
}

// Clamp01 bounds a component score to [0, 1]. Out-of-range values are a
// programming defect upstream; clamping at the boundary keeps the
// aggregation invariant regardless.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Round2 rounds to two decimal places (final risk score precision).
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

// Round3 rounds to three decimal places (component score precision).
func Round3(v float64) float64 { return math.Round(v*1000) / 1000 }
