// Package config handles application configuration from environment variables
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// CORSAllowedOrigins lists origins allowed to call the API from a
	// browser. Empty allows all origins.
	CORSAllowedOrigins []string

	// RateLimitRPM is the sustained per-client request budget. Zero
	// disables rate limiting.
	RateLimitRPM int

	// Tracing
	OTLPEndpoint string // OTLP gRPC endpoint, empty disables tracing

	// Chain-data providers
	EtherscanAPIKey  string
	EtherscanBaseURL string
	RPCURL           string // optional JSON-RPC endpoint for nonce lookups
	ProviderTimeout  time.Duration
	CacheTTL         time.Duration

	// Intelligence data (blacklists, clusters, risky tokens).
	// Empty uses the built-in sets.
	IntelPath string

	// Trained tabular model artifact. Empty falls back to the
	// amount-tier heuristic.
	ModelPath string

	// Component weights. Must sum to 1.0.
	WeightRules    float64
	WeightTabular  float64
	WeightSequence float64
	WeightGraph    float64
	WeightContract float64

	// Label/action thresholds on the 0-100 score.
	BlockThreshold float64
	WarnThreshold  float64

	// BlacklistScoreFloor is the minimum final score when an endpoint
	// blacklist rule fires. A sanctioned counterparty must block even
	// when every other component looks benign.
	BlacklistScoreFloor float64

	// RulePoints optionally overrides entries of the rule-point table,
	// e.g. {"blacklist": 40, "odd_hour": 0}. Parsed from RULE_POINTS.
	RulePoints map[string]float64

	// RuleImpacts optionally overrides the fixed display-ranking impact
	// per rule, independent of RulePoints. Parsed from RULE_IMPACTS.
	RuleImpacts map[string]float64
}

// Defaults
const (
	DefaultPort             = "8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultEtherscanBaseURL = "https://api.etherscan.io/api"
	DefaultProviderTimeout  = 10 * time.Second
	DefaultCacheTTL         = 60 * time.Second
	DefaultBlockThreshold   = 85.0
	DefaultWarnThreshold    = 60.0
	DefaultBlacklistFloor   = 90.0
	DefaultRateLimitRPM     = 120
)

// Default component weights (must sum to 1.0).
const (
	DefaultWeightRules    = 0.30
	DefaultWeightTabular  = 0.25
	DefaultWeightSequence = 0.10
	DefaultWeightGraph    = 0.15
	DefaultWeightContract = 0.20
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		EtherscanAPIKey:  os.Getenv("ETHERSCAN_API_KEY"),
		EtherscanBaseURL: getEnv("ETHERSCAN_BASE_URL", DefaultEtherscanBaseURL),
		RPCURL:           os.Getenv("RPC_URL"),
		ProviderTimeout:  getEnvDuration("PROVIDER_TIMEOUT", DefaultProviderTimeout),
		CacheTTL:         getEnvDuration("CACHE_TTL", DefaultCacheTTL),
		IntelPath:        os.Getenv("INTEL_PATH"),
		ModelPath:        os.Getenv("MODEL_PATH"),
		WeightRules:      getEnvFloat("WEIGHT_RULES", DefaultWeightRules),
		WeightTabular:    getEnvFloat("WEIGHT_TABULAR", DefaultWeightTabular),
		WeightSequence:   getEnvFloat("WEIGHT_SEQUENCE", DefaultWeightSequence),
		WeightGraph:      getEnvFloat("WEIGHT_GRAPH", DefaultWeightGraph),
		WeightContract:   getEnvFloat("WEIGHT_CONTRACT", DefaultWeightContract),
		BlockThreshold:   getEnvFloat("BLOCK_THRESHOLD", DefaultBlockThreshold),
		WarnThreshold:    getEnvFloat("WARN_THRESHOLD", DefaultWarnThreshold),

		BlacklistScoreFloor: getEnvFloat("BLACKLIST_SCORE_FLOOR", DefaultBlacklistFloor),
		RateLimitRPM:        getEnvInt("RATE_LIMIT_RPM", DefaultRateLimitRPM),
	}

	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	if raw := os.Getenv("RULE_POINTS"); raw != "" {
		points := map[string]float64{}
		if err := json.Unmarshal([]byte(raw), &points); err != nil {
			return nil, fmt.Errorf("RULE_POINTS is not valid JSON: %w", err)
		}
		cfg.RulePoints = points
	}

	if raw := os.Getenv("RULE_IMPACTS"); raw != "" {
		impacts := map[string]float64{}
		if err := json.Unmarshal([]byte(raw), &impacts); err != nil {
			return nil, fmt.Errorf("RULE_IMPACTS is not valid JSON: %w", err)
		}
		cfg.RuleImpacts = impacts
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	sum := c.WeightRules + c.WeightTabular + c.WeightSequence + c.WeightGraph + c.WeightContract
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("component weights must sum to 1.0, got %.4f", sum)
	}
	for name, w := range map[string]float64{
		"WEIGHT_RULES":    c.WeightRules,
		"WEIGHT_TABULAR":  c.WeightTabular,
		"WEIGHT_SEQUENCE": c.WeightSequence,
		"WEIGHT_GRAPH":    c.WeightGraph,
		"WEIGHT_CONTRACT": c.WeightContract,
	} {
		if w < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if c.BlockThreshold < c.WarnThreshold {
		return fmt.Errorf("BLOCK_THRESHOLD (%.1f) must be >= WARN_THRESHOLD (%.1f)",
			c.BlockThreshold, c.WarnThreshold)
	}
	if c.WarnThreshold < 0 || c.BlockThreshold > 100 {
		return fmt.Errorf("thresholds must lie within [0, 100]")
	}
	if c.BlacklistScoreFloor < 0 || c.BlacklistScoreFloor > 100 {
		return fmt.Errorf("BLACKLIST_SCORE_FLOOR must lie within [0, 100]")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be non-negative")
	}
	for rule, pts := range c.RulePoints {
		if pts < 0 {
			return fmt.Errorf("RULE_POINTS[%s] must be non-negative", rule)
		}
	}
	for rule, imp := range c.RuleImpacts {
		if imp < 0 || imp > 1 {
			return fmt.Errorf("RULE_IMPACTS[%s] must lie within [0, 1]", rule)
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
