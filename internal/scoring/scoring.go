// Package scoring combines the five risk components into one verdict.
// Components run concurrently and are isolated from each other: a
// panicking or misbehaving sub-model degrades its own score to zero and
// the verdict still ships.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ctrad/prescreen/internal/config"
	"github.com/ctrad/prescreen/internal/contractrisk"
	"github.com/ctrad/prescreen/internal/graphrep"
	"github.com/ctrad/prescreen/internal/logging"
	"github.com/ctrad/prescreen/internal/metrics"
	"github.com/ctrad/prescreen/internal/model"
	"github.com/ctrad/prescreen/internal/rules"
	"github.com/ctrad/prescreen/internal/sequence"
	"github.com/ctrad/prescreen/internal/tabular"
	"github.com/ctrad/prescreen/internal/traces"
)

// noFlagsReason is the reason text for a verdict with nothing to report.
const noFlagsReason = "no risk indicators identified"

// topFeatureLimit caps how many contributors a verdict lists.
const topFeatureLimit = 5

// Enricher fetches on-chain context for a transaction. It never fails;
// unavailable data arrives as unknown facts.
type Enricher interface {
	Lookup(ctx context.Context, tx model.Transaction) *model.EnrichedFacts
}

// Aggregator owns the sub-models and produces verdicts.
type Aggregator struct {
	enricher Enricher
	rules    *rules.Engine
	tabular  *tabular.Scorer
	sequence *sequence.Model
	graph    *graphrep.Model
	contract *contractrisk.Model

	weights        map[model.Component]float64
	blockThreshold float64
	warnThreshold  float64
	blacklistFloor float64
	logger         *slog.Logger
}

// New wires the aggregator from configuration and pre-built components.
func New(cfg *config.Config, enricher Enricher, ruleEngine *rules.Engine,
	tab *tabular.Scorer, seq *sequence.Model, graph *graphrep.Model,
	contract *contractrisk.Model, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		enricher: enricher,
		rules:    ruleEngine,
		tabular:  tab,
		sequence: seq,
		graph:    graph,
		contract: contract,
		weights: map[model.Component]float64{
			model.ComponentRules:    cfg.WeightRules,
			model.ComponentTabular:  cfg.WeightTabular,
			model.ComponentSequence: cfg.WeightSequence,
			model.ComponentGraph:    cfg.WeightGraph,
			model.ComponentContract: cfg.WeightContract,
		},
		blockThreshold: cfg.BlockThreshold,
		warnThreshold:  cfg.WarnThreshold,
		blacklistFloor: cfg.BlacklistScoreFloor,
		logger:         logger,
	}
}

// componentResult is one sub-model's outcome. failed means the component
// panicked and its score was degraded to zero.
type componentResult struct {
	score   float64
	reasons []string
	hits    []rules.Hit
	failed  bool
}

// Score produces the verdict for one proposed transfer. The only way it
// can take long is chain-data enrichment; the sub-models themselves are
// pure computation over the fetched snapshot.
func (a *Aggregator) Score(ctx context.Context, tx model.Transaction) *model.Verdict {
	return a.ScoreWithContract(ctx, tx, model.ContractFacts{})
}

// ScoreWithContract scores a transfer with caller-supplied token contract
// metadata (tax rates, ownership). Chain scanners do not expose these
// reliably, so the caller may forward what its own analysis produced;
// known values overlay whatever enrichment found.
func (a *Aggregator) ScoreWithContract(ctx context.Context, tx model.Transaction, cf model.ContractFacts) *model.Verdict {
	ctx, span := traces.StartSpan(ctx, "scoring.score",
		traces.Chain(string(tx.Chain)),
		traces.FromAddr(tx.FromAddr),
		traces.ToAddr(tx.ToAddr),
		traces.AmountUSD(tx.AmountUSD),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	}()

	facts := a.enricher.Lookup(ctx, tx)
	if cf.SellTaxPct.Known {
		facts.Contract.SellTaxPct = cf.SellTaxPct
	}
	if cf.BuyTaxPct.Known {
		facts.Contract.BuyTaxPct = cf.BuyTaxPct
	}
	if cf.OwnerRenounced != model.TriUnknown {
		facts.Contract.OwnerRenounced = cf.OwnerRenounced
	}

	results := make(map[model.Component]*componentResult, len(model.Components))
	for _, c := range model.Components {
		results[c] = &componentResult{}
	}

	var g errgroup.Group
	a.runComponent(ctx, &g, model.ComponentRules, results[model.ComponentRules], func(r *componentResult) {
		res := a.rules.Evaluate(&tx, facts)
		r.score, r.reasons, r.hits = res.Score, res.Reasons(), res.Hits
	})
	a.runComponent(ctx, &g, model.ComponentTabular, results[model.ComponentTabular], func(r *componentResult) {
		r.score, r.reasons = a.tabular.Score(&tx, facts)
	})
	a.runComponent(ctx, &g, model.ComponentSequence, results[model.ComponentSequence], func(r *componentResult) {
		r.score, r.reasons = a.sequence.Score(&tx, facts)
	})
	a.runComponent(ctx, &g, model.ComponentGraph, results[model.ComponentGraph], func(r *componentResult) {
		r.score, r.reasons = a.graph.Score(&tx)
	})
	a.runComponent(ctx, &g, model.ComponentContract, results[model.ComponentContract], func(r *componentResult) {
		r.score, r.reasons = a.contract.Score(&tx, facts)
	})
	_ = g.Wait() // components never return errors, only panic-degrade

	componentScores := make(map[model.Component]float64, len(model.Components))
	var weighted float64
	for _, c := range model.Components {
		s := model.Clamp01(results[c].score)
		componentScores[c] = model.Round3(s)
		weighted += a.weights[c] * s
	}

	riskScore := model.Round2(model.Clamp01(weighted) * 100)

	// A sanctioned counterparty is a policy decision, not a weighted
	// signal: the blacklist rule floors the score into block territory.
	if hasRule(results[model.ComponentRules].hits, rules.RuleBlacklist) && riskScore < a.blacklistFloor {
		riskScore = a.blacklistFloor
	}

	label, action := a.classify(riskScore)

	verdict := &model.Verdict{
		RiskScore:       riskScore,
		RiskLabel:       label,
		Action:          action,
		ComponentScores: componentScores,
		TopFeatures:     a.topFeatures(results),
		ReasonText:      a.reasonText(results, facts),
	}

	metrics.RiskScores.Observe(riskScore)
	metrics.VerdictsTotal.WithLabelValues(string(action)).Inc()
	logging.L(ctx).Info("transaction scored",
		"chain", tx.Chain,
		"risk_score", riskScore,
		"action", action,
		"degraded", facts.Degraded(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return verdict
}

// runComponent schedules one sub-model with panic isolation. A panic
// degrades the component to zero and is recorded, never propagated.
func (a *Aggregator) runComponent(ctx context.Context, g *errgroup.Group,
	name model.Component, out *componentResult, fn func(*componentResult)) {
	g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				out.score = 0
				out.reasons = nil
				out.failed = true
				metrics.ComponentFailuresTotal.WithLabelValues(string(name)).Inc()
				a.logger.Error("risk component panicked",
					"component", name, "panic", fmt.Sprint(r))
			}
		}()
		_, span := traces.StartSpan(ctx, "scoring.component", traces.ComponentName(string(name)))
		defer span.End()
		fn(out)
		return nil
	})
}

func hasRule(hits []rules.Hit, id string) bool {
	for _, h := range hits {
		if h.ID == id {
			return true
		}
	}
	return false
}

// classify maps the 0-100 score to a label and recommended action.
func (a *Aggregator) classify(score float64) (model.Label, model.Action) {
	switch {
	case score >= a.blockThreshold:
		return model.LabelHighRisk, model.ActionBlock
	case score >= a.warnThreshold:
		return model.LabelSuspicious, model.ActionWarn
	default:
		return model.LabelSafe, model.ActionAllow
	}
}

// topFeatures ranks individual contributors by their assigned impact.
// Rule hits rank by the engine's fixed per-rule impact weights; the
// other components contribute as a whole, ranked by their weighted
// share of the score. Ties break by name so the order is stable.
func (a *Aggregator) topFeatures(results map[model.Component]*componentResult) []model.TopFeature {
	var features []model.TopFeature

	for _, hit := range results[model.ComponentRules].hits {
		features = append(features, model.TopFeature{
			Name:   "rule:" + hit.ID,
			Value:  hit.Detail,
			Impact: model.Round3(hit.Impact),
		})
	}

	for _, c := range model.Components {
		if c == model.ComponentRules {
			continue
		}
		r := results[c]
		if r.score <= 0 {
			continue
		}
		value := fmt.Sprintf("score %.3f", model.Clamp01(r.score))
		if len(r.reasons) > 0 {
			value = r.reasons[0]
		}
		features = append(features, model.TopFeature{
			Name:   string(c),
			Value:  value,
			Impact: model.Round3(model.Clamp01(r.score) * a.weights[c]),
		})
	}

	sort.SliceStable(features, func(i, j int) bool {
		if features[i].Impact != features[j].Impact {
			return features[i].Impact > features[j].Impact
		}
		return features[i].Name < features[j].Name
	})
	if len(features) > topFeatureLimit {
		features = features[:topFeatureLimit]
	}
	return features
}

// reasonText joins every component's explanations in a fixed order, then
// appends data-quality caveats.
func (a *Aggregator) reasonText(results map[model.Component]*componentResult, facts *model.EnrichedFacts) string {
	var parts []string
	for _, c := range model.Components {
		r := results[c]
		parts = append(parts, r.reasons...)
		if r.failed {
			parts = append(parts, fmt.Sprintf("%s component unavailable", c))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, noFlagsReason)
	}
	if facts.Degraded() {
		parts = append(parts, fmt.Sprintf("incomplete chain data (%s)", strings.Join(facts.Failures, ", ")))
	}
	return strings.Join(parts, "; ")
}
