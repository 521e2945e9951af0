package tabular

import (
	"encoding/json"
	"fmt"
	"os"
)

// artifact is the JSON layout of an exported tree ensemble. The scaler is
// exported together with the trees; the version pairing check exists
// because a scaler from one training run silently ruins the predictions
// of another.
type artifact struct {
	Version  string   `json:"version"`
	Features []string `json:"features"`
	Scaler   scaler   `json:"scaler"`
	Trees    []tree   `json:"trees"`
}

type scaler struct {
	Version string    `json:"version"`
	Min     []float64 `json:"min"`
	Max     []float64 `json:"max"`
}

// tree is a flat node array. A node with Left < 0 is a leaf and Value is
// its prediction; otherwise Feature indexes the scaled vector and the
// comparison Feature <= Threshold selects Left.
type tree struct {
	Nodes []node `json:"nodes"`
}

type node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// TrainedModel is a loaded tree ensemble paired with its feature scaler.
type TrainedModel struct {
	art artifact
}

// LoadModel reads and validates a model artifact. Any inconsistency is an
// error; the caller is expected to fall back to the heuristic rather than
// score with a half-valid model.
func LoadModel(path string) (*TrainedModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if art.Version == "" {
		return nil, fmt.Errorf("model artifact has no version")
	}
	if art.Scaler.Version != art.Version {
		return nil, fmt.Errorf("scaler version %q does not match model version %q", art.Scaler.Version, art.Version)
	}
	if len(art.Features) != len(FeatureNames) {
		return nil, fmt.Errorf("model expects %d features, runtime provides %d", len(art.Features), len(FeatureNames))
	}
	for i, name := range art.Features {
		if name != FeatureNames[i] {
			return nil, fmt.Errorf("feature %d is %q in the artifact, %q at runtime", i, name, FeatureNames[i])
		}
	}
	n := len(FeatureNames)
	if len(art.Scaler.Min) != n || len(art.Scaler.Max) != n {
		return nil, fmt.Errorf("scaler bounds do not cover all %d features", n)
	}
	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("model artifact has no trees")
	}
	for ti, t := range art.Trees {
		if err := validateTree(t, n); err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
	}

	return &TrainedModel{art: art}, nil
}

func validateTree(t tree, featureCount int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, nd := range t.Nodes {
		if nd.Left < 0 {
			continue
		}
		if nd.Feature < 0 || nd.Feature >= featureCount {
			return fmt.Errorf("node %d references feature %d", i, nd.Feature)
		}
		if nd.Left >= len(t.Nodes) || nd.Right < 0 || nd.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has out-of-range children", i)
		}
	}
	return nil
}

// Name returns the artifact version for logs.
func (m *TrainedModel) Name() string { return "ensemble:" + m.art.Version }

// Predict scales the feature vector and averages the tree outputs.
func (m *TrainedModel) Predict(features []float64) (float64, error) {
	if len(features) != len(FeatureNames) {
		return 0, fmt.Errorf("got %d features, want %d", len(features), len(FeatureNames))
	}

	scaled := make([]float64, len(features))
	for i, v := range features {
		lo, hi := m.art.Scaler.Min[i], m.art.Scaler.Max[i]
		if hi > lo {
			scaled[i] = (v - lo) / (hi - lo)
		}
	}

	var sum float64
	for _, t := range m.art.Trees {
		sum += evalTree(t, scaled)
	}
	return sum / float64(len(m.art.Trees)), nil
}

func evalTree(t tree, features []float64) float64 {
	i := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		nd := t.Nodes[i]
		if nd.Left < 0 {
			return nd.Value
		}
		if features[nd.Feature] <= nd.Threshold {
			i = nd.Left
		} else {
			i = nd.Right
		}
	}
	// Cycle in the node graph; validation bounds indices but not acyclicity.
	return 0
}
