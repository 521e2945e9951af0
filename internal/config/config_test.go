package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEtherscanBaseURL, cfg.EtherscanBaseURL)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, DefaultProviderTimeout, cfg.ProviderTimeout)
	assert.Equal(t, DefaultBlockThreshold, cfg.BlockThreshold)
	assert.Equal(t, DefaultWarnThreshold, cfg.WarnThreshold)
	assert.Equal(t, DefaultBlacklistFloor, cfg.BlacklistScoreFloor)
	assert.Equal(t, DefaultRateLimitRPM, cfg.RateLimitRPM)
	assert.InDelta(t, 1.0,
		cfg.WeightRules+cfg.WeightTabular+cfg.WeightSequence+cfg.WeightGraph+cfg.WeightContract,
		0.0001)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "CACHE_TTL", "2m")
	setEnv(t, "RULE_POINTS", `{"blacklist": 40, "odd_hour": 0}`)
	setEnv(t, "RULE_IMPACTS", `{"dusting": 0.8}`)
	setEnv(t, "CORS_ALLOWED_ORIGINS", "https://wallet.example.com, https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"https://wallet.example.com", "https://app.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 40.0, cfg.RulePoints["blacklist"])
	assert.Equal(t, 0.0, cfg.RulePoints["odd_hour"])
	assert.Equal(t, 0.8, cfg.RuleImpacts["dusting"])
}

func TestLoad_BadRulePoints(t *testing.T) {
	setEnv(t, "RULE_POINTS", "not json")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RULE_POINTS")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			ProviderTimeout: DefaultProviderTimeout,
			CacheTTL:        DefaultCacheTTL,
			WeightRules:     DefaultWeightRules,
			WeightTabular:   DefaultWeightTabular,
			WeightSequence:  DefaultWeightSequence,
			WeightGraph:     DefaultWeightGraph,
			WeightContract:  DefaultWeightContract,
			BlockThreshold:  DefaultBlockThreshold,
			WarnThreshold:   DefaultWarnThreshold,

			BlacklistScoreFloor: DefaultBlacklistFloor,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "weights do not sum to one",
			mutate:  func(c *Config) { c.WeightRules = 0.9 },
			wantErr: "sum to 1.0",
		},
		{
			name: "negative weight",
			mutate: func(c *Config) {
				c.WeightGraph = -0.15
				c.WeightRules = 0.60
			},
			wantErr: "non-negative",
		},
		{
			name: "block below warn",
			mutate: func(c *Config) {
				c.BlockThreshold = 30
			},
			wantErr: "BLOCK_THRESHOLD",
		},
		{
			name:    "blacklist floor out of range",
			mutate:  func(c *Config) { c.BlacklistScoreFloor = 120 },
			wantErr: "BLACKLIST_SCORE_FLOOR",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.RateLimitRPM = -1 },
			wantErr: "RATE_LIMIT_RPM",
		},
		{
			name:    "zero cache TTL",
			mutate:  func(c *Config) { c.CacheTTL = 0 },
			wantErr: "CACHE_TTL",
		},
		{
			name: "negative rule points",
			mutate: func(c *Config) {
				c.RulePoints = map[string]float64{"blacklist": -5}
			},
			wantErr: "RULE_POINTS[blacklist]",
		},
		{
			name: "rule impact above one",
			mutate: func(c *Config) {
				c.RuleImpacts = map[string]float64{"odd_hour": 1.5}
			},
			wantErr: "RULE_IMPACTS[odd_hour]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnvHelpers(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")
	setEnv(t, "TEST_FLOAT", "0.42")
	setEnv(t, "TEST_DURATION", "90s")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))

	assert.Equal(t, 0.42, getEnvFloat("TEST_FLOAT", 0))
	assert.Equal(t, 0.99, getEnvFloat("NONEXISTENT_VAR", 0.99))
	assert.Equal(t, 0.99, getEnvFloat("TEST_INVALID", 0.99)) // Falls back on parse error

	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_INVALID", time.Second))
}
