// Package intel holds the threat-intelligence data consulted during
// scoring: blacklisted addresses and contracts, risky token symbols,
// recognized major-token contracts, and known illicit address clusters.
//
// The built-in sets ship with the binary; a JSON file can replace them
// at startup for operators maintaining their own feeds.
package intel

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Cluster is a named group of related illicit addresses with a shared
// base risk in [0, 1].
type Cluster struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	BaseRisk  float64  `json:"base_risk"`
	Addresses []string `json:"addresses"`
}

// DB is an immutable, case-normalized intelligence snapshot. All lookups
// are read-only after construction, so it is safe for concurrent use.
type DB struct {
	addresses   map[string]struct{}
	contracts   map[string]struct{}
	riskyTokens map[string]struct{}
	majorTokens map[string]map[string]struct{} // symbol -> known contract addrs
	clusters    []Cluster
}

// file is the on-disk JSON shape accepted by Load.
type file struct {
	BlacklistAddresses []string            `json:"blacklist_addresses"`
	BlacklistContracts []string            `json:"blacklist_contracts"`
	RiskyTokens        []string            `json:"risky_tokens"`
	MajorTokens        map[string][]string `json:"major_tokens"`
	Clusters           []Cluster           `json:"clusters"`
}

// NewDefault returns the built-in intelligence sets.
func NewDefault() *DB {
	return build(defaultData)
}

// Load reads an intelligence file, replacing the built-in sets entirely.
func Load(path string) (*DB, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intel file: %w", err)
	}
	var f file
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse intel file %s: %w", path, err)
	}
	for _, c := range f.Clusters {
		if c.BaseRisk < 0 || c.BaseRisk > 1 {
			return nil, fmt.Errorf("cluster %q base_risk %.3f outside [0,1]", c.Name, c.BaseRisk)
		}
	}
	return build(f), nil
}

func build(f file) *DB {
	db := &DB{
		addresses:   toSet(f.BlacklistAddresses),
		contracts:   toSet(f.BlacklistContracts),
		riskyTokens: toUpperSet(f.RiskyTokens),
		majorTokens: make(map[string]map[string]struct{}, len(f.MajorTokens)),
	}
	for sym, addrs := range f.MajorTokens {
		db.majorTokens[strings.ToUpper(sym)] = toSet(addrs)
	}
	for _, c := range f.Clusters {
		nc := Cluster{Name: c.Name, Label: c.Label, BaseRisk: c.BaseRisk}
		nc.Addresses = make([]string, len(c.Addresses))
		for i, a := range c.Addresses {
			nc.Addresses[i] = strings.ToLower(a)
		}
		db.clusters = append(db.clusters, nc)
	}
	return db
}

// IsBlacklistedAddress reports whether addr is a known bad actor.
func (db *DB) IsBlacklistedAddress(addr string) bool {
	_, ok := db.addresses[strings.ToLower(addr)]
	return ok
}

// IsBlacklistedContract reports whether a token contract is blacklisted.
func (db *DB) IsBlacklistedContract(addr string) bool {
	_, ok := db.contracts[strings.ToLower(addr)]
	return ok
}

// IsRiskyToken reports whether a token symbol is in the risky set.
func (db *DB) IsRiskyToken(symbol string) bool {
	_, ok := db.riskyTokens[strings.ToUpper(symbol)]
	return ok
}

// IsMajorToken reports whether a symbol is a tracked major token.
func (db *DB) IsMajorToken(symbol string) bool {
	_, ok := db.majorTokens[strings.ToUpper(symbol)]
	return ok
}

// RecognizedContract reports whether contract is a known canonical
// contract for symbol. tracked is false when the symbol is not a major
// token we keep contracts for, in which case recognized is meaningless.
func (db *DB) RecognizedContract(symbol, contract string) (recognized, tracked bool) {
	known, ok := db.majorTokens[strings.ToUpper(symbol)]
	if !ok {
		return false, false
	}
	_, recognized = known[strings.ToLower(contract)]
	return recognized, true
}

// Clusters returns the known illicit clusters. Callers must not mutate
// the returned slice.
func (db *DB) Clusters() []Cluster { return db.clusters }

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = struct{}{}
	}
	return set
}

func toUpperSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToUpper(it)] = struct{}{}
	}
	return set
}
