package graphrep

import (
	"testing"
	"time"

	"github.com/ctrad/prescreen/internal/intel"
	"github.com/ctrad/prescreen/internal/model"
)

const (
	// Member of cluster_phishing (base risk 0.95).
	phishingMember = "0x0cbcdbb381f31a9e8f2b8bbffee7e1fc01e4d39d"
	// Unrelated address sharing no leading hex digits with any cluster.
	neutralAddr = "0x9999999999999999999999999999999999999999"
)

var noon = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func transferTo(to string) *model.Transaction {
	tx := model.NewTransaction("ethereum", neutralAddr, to, "ETH", "", 1, 2500, noon)
	return &tx
}

func TestExactMemberMatchCarriesBaseRisk(t *testing.T) {
	m := New(intel.NewDefault())
	score, reasons := m.Score(transferTo(phishingMember))
	if score != 0.95 {
		t.Fatalf("score = %f, want cluster base risk 0.95", score)
	}
	if len(reasons) != 1 {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestPrefixDecayTiers(t *testing.T) {
	m := New(intel.NewDefault())
	tests := []struct {
		name string
		addr string
		want float64
	}{
		// First 6 hex digits of the phishing member, distinct tail.
		{"six shared", "0x0cbcdb0000000000000000000000000000000001", 0.665}, // 0.95 * 0.70
		{"four shared", "0x0cbc000000000000000000000000000000000001", 0.428}, // 0.95 * 0.45, rounded
		{"two shared", "0x0c00000000000000000000000000000000000001", 0.19},  // 0.95 * 0.20
		{"none shared", "0x4400000000000000000000000000000000000001", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, _ := m.Score(transferTo(tt.addr))
			if score != tt.want {
				t.Errorf("score = %f, want %f", score, tt.want)
			}
		})
	}
}

func TestSenderProximityCounts(t *testing.T) {
	m := New(intel.NewDefault())
	tx := model.NewTransaction("ethereum", phishingMember, neutralAddr, "ETH", "", 1, 2500, noon)

	score, reasons := m.Score(&tx)
	if score != 0.95 {
		t.Fatalf("score = %f, want 0.95 for sender membership", score)
	}
	if len(reasons) != 1 {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestHighestClusterWins(t *testing.T) {
	m := New(intel.NewDefault())

	// Mixer member (0.75) as sender, phishing member (0.95) as recipient.
	tx := model.NewTransaction("ethereum",
		"0x12d66f87a04a9e220743712ce6d9bb1b5616b8fc",
		phishingMember, "ETH", "", 1, 2500, noon)

	score, reasons := m.Score(&tx)
	if score != 0.95 {
		t.Fatalf("score = %f, want the higher cluster's risk", score)
	}
	if len(reasons) != 2 {
		t.Fatalf("both counterparties should be explained, got %v", reasons)
	}
}

func TestNonHexAddressesNeverMatch(t *testing.T) {
	m := New(intel.NewDefault())
	tx := model.NewTransaction("ethereum", "alice.eth", "bob.eth", "ETH", "", 1, 2500, noon)

	if score, _ := m.Score(&tx); score != 0 {
		t.Errorf("score = %f, want 0 for opaque identifiers", score)
	}
}
