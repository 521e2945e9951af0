// Package graphrep estimates how close a transfer's counterparties sit
// to known bad-actor clusters. Without a full transaction graph online,
// proximity is approximated by hex-prefix similarity to cluster member
// addresses: vanity-generated drop addresses in a campaign tend to share
// leading characters with the rest of the cluster.
package graphrep

import (
	"fmt"
	"strings"

	"github.com/ctrad/prescreen/internal/intel"
	"github.com/ctrad/prescreen/internal/model"
)

// Prefix-match tiers. An exact member match carries the cluster's full
// base risk; shorter shared prefixes decay the weight.
const (
	weightExact   = 1.0
	weightPrefix6 = 0.70
	weightPrefix4 = 0.45
	weightPrefix2 = 0.20
)

// Model scores counterparty proximity against the loaded cluster set.
type Model struct {
	db *intel.DB
}

// New builds the model over the given intelligence database.
func New(db *intel.DB) *Model {
	return &Model{db: db}
}

// Score returns the highest cluster proximity across both counterparties,
// rounded to three decimals, with an explanation for each address that
// matched a cluster.
func (m *Model) Score(tx *model.Transaction) (float64, []string) {
	var best float64
	var reasons []string

	for _, role := range []struct {
		name string
		addr string
	}{
		{"recipient", tx.ToAddr},
		{"sender", tx.FromAddr},
	} {
		score, cluster, exact := m.proximity(role.addr)
		if score <= 0 {
			continue
		}
		if score > best {
			best = score
		}
		if exact {
			reasons = append(reasons, fmt.Sprintf("%s is a known member of %s", role.name, cluster.Label))
		} else {
			reasons = append(reasons, fmt.Sprintf("%s address resembles members of %s", role.name, cluster.Label))
		}
	}

	return model.Round3(best), reasons
}

// proximity returns the best cluster score for one address along with the
// matched cluster and whether it was an exact membership hit.
func (m *Model) proximity(addr string) (float64, *intel.Cluster, bool) {
	hex := hexBody(addr)
	if hex == "" {
		return 0, nil, false
	}

	var (
		best        float64
		bestCluster *intel.Cluster
		bestExact   bool
	)
	clusters := m.db.Clusters()
	for i := range clusters {
		c := &clusters[i]
		for _, member := range c.Addresses {
			w := prefixWeight(hex, hexBody(member))
			if w == 0 {
				continue
			}
			score := c.BaseRisk * w
			if score > best {
				best = score
				bestCluster = c
				bestExact = w == weightExact
			}
		}
	}
	return best, bestCluster, bestExact
}

// prefixWeight maps the shared hex prefix length of two addresses to a
// decay weight. Addresses are already lowercased by normalization.
func prefixWeight(a, b string) float64 {
	switch {
	case a == b:
		return weightExact
	case sharedPrefix(a, b, 6):
		return weightPrefix6
	case sharedPrefix(a, b, 4):
		return weightPrefix4
	case sharedPrefix(a, b, 2):
		return weightPrefix2
	}
	return 0
}

func sharedPrefix(a, b string, n int) bool {
	return len(a) >= n && len(b) >= n && a[:n] == b[:n]
}

// hexBody strips the 0x prefix so tier lengths count hex digits, not the
// scheme marker. Non-hex identifiers yield no body and never match.
func hexBody(addr string) string {
	if !strings.HasPrefix(addr, "0x") || len(addr) <= 2 {
		return ""
	}
	return addr[2:]
}
