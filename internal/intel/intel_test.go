package intel

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_BlacklistLookup(t *testing.T) {
	db := NewDefault()

	// Case-insensitive exact match
	if !db.IsBlacklistedAddress("0x722122DF12D4E14E13AC3B6895A86E84145B6967") {
		t.Error("expected sanctioned address to be blacklisted regardless of case")
	}
	if db.IsBlacklistedAddress("0x0000000000000000000000000000000000000001") {
		t.Error("unlisted address should not be blacklisted")
	}
}

func TestDefault_TokenSets(t *testing.T) {
	db := NewDefault()

	if !db.IsRiskyToken("pepe") {
		t.Error("risky token lookup should be case-insensitive")
	}
	if db.IsRiskyToken("USDC") {
		t.Error("USDC should not be a risky token")
	}
	if !db.IsMajorToken("usdt") {
		t.Error("USDT should be a tracked major token")
	}
}

func TestRecognizedContract(t *testing.T) {
	db := NewDefault()

	recognized, tracked := db.RecognizedContract("USDT", "0xdAC17F958D2ee523a2206206994597C13D831ec7")
	if !tracked || !recognized {
		t.Errorf("canonical USDT contract: recognized=%v tracked=%v", recognized, tracked)
	}

	recognized, tracked = db.RecognizedContract("USDT", "0x1111111111111111111111111111111111111111")
	if !tracked || recognized {
		t.Errorf("impostor USDT contract: recognized=%v tracked=%v", recognized, tracked)
	}

	_, tracked = db.RecognizedContract("OBSCURE", "0x1111111111111111111111111111111111111111")
	if tracked {
		t.Error("untracked symbol should report tracked=false")
	}
}

func TestLoad_ReplacesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intel.json")
	content := `{
		"blacklist_addresses": ["0xAAAA000000000000000000000000000000000001"],
		"risky_tokens": ["scam"],
		"clusters": [
			{"name": "c1", "label": "Test Cluster", "base_risk": 0.5,
			 "addresses": ["0xBBBB000000000000000000000000000000000002"]}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	db, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !db.IsBlacklistedAddress("0xaaaa000000000000000000000000000000000001") {
		t.Error("loaded blacklist entry missing")
	}
	if db.IsBlacklistedAddress("0x722122df12d4e14e13ac3b6895a86e84145b6967") {
		t.Error("defaults should be replaced, not merged")
	}
	if !db.IsRiskyToken("SCAM") {
		t.Error("loaded risky token missing")
	}

	clusters := db.Clusters()
	if len(clusters) != 1 || clusters[0].BaseRisk != 0.5 {
		t.Fatalf("unexpected clusters: %+v", clusters)
	}
	if clusters[0].Addresses[0] != "0xbbbb000000000000000000000000000000000002" {
		t.Errorf("cluster addresses should be lowercased, got %s", clusters[0].Addresses[0])
	}
}

func TestLoad_RejectsBadBaseRisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intel.json")
	content := `{"clusters": [{"name": "c1", "base_risk": 1.5, "addresses": []}]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for base_risk outside [0,1]")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/intel.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
