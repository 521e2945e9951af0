// Prescreen - pre-transaction risk scoring for blockchain transfers
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/ctrad/prescreen/internal/chaindata"
	"github.com/ctrad/prescreen/internal/config"
	"github.com/ctrad/prescreen/internal/contractrisk"
	"github.com/ctrad/prescreen/internal/graphrep"
	"github.com/ctrad/prescreen/internal/health"
	"github.com/ctrad/prescreen/internal/intel"
	"github.com/ctrad/prescreen/internal/logging"
	"github.com/ctrad/prescreen/internal/metrics"
	"github.com/ctrad/prescreen/internal/model"
	"github.com/ctrad/prescreen/internal/rules"
	"github.com/ctrad/prescreen/internal/scoring"
	"github.com/ctrad/prescreen/internal/security"
	"github.com/ctrad/prescreen/internal/sequence"
	"github.com/ctrad/prescreen/internal/server"
	"github.com/ctrad/prescreen/internal/tabular"
	"github.com/ctrad/prescreen/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting prescreen",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"cache_ttl", cfg.CacheTTL,
		"provider_timeout", cfg.ProviderTimeout,
	)

	ctx := context.Background()

	// Tracing (no-op without an OTLP endpoint)
	shutdownTraces, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTraces(shutdownCtx); err != nil {
			logger.Error("trace shutdown error", "error", err)
		}
	}()

	// Intelligence data: operator file or built-in sets
	db := intel.NewDefault()
	if cfg.IntelPath != "" {
		db, err = intel.Load(cfg.IntelPath)
		if err != nil {
			logger.Error("failed to load intel file", "path", cfg.IntelPath, "error", err)
			os.Exit(1)
		}
		logger.Info("intel data loaded", "path", cfg.IntelPath)
	}

	// Refuse outbound provider URLs pointing at internal addresses.
	// Development deliberately skips this so a local node still works.
	if cfg.IsProduction() {
		for name, u := range map[string]string{
			"ETHERSCAN_BASE_URL": cfg.EtherscanBaseURL,
			"RPC_URL":            cfg.RPCURL,
		} {
			if u == "" {
				continue
			}
			if err := security.ValidateEndpointURL(u); err != nil {
				logger.Error("unsafe provider endpoint", "var", name, "error", err)
				os.Exit(1)
			}
		}
	}

	// Chain-data gateway over the scan API, with optional JSON-RPC nonce
	// fallback when an RPC endpoint is configured
	oracle := chaindata.NewPriceOracle(5 * time.Minute)
	scan := chaindata.NewScanProvider(cfg.EtherscanBaseURL, cfg.EtherscanAPIKey, cfg.ProviderTimeout, oracle)

	gatewayOpts := []chaindata.Option{chaindata.WithLogger(logger)}
	if cfg.RPCURL != "" {
		rpc, err := chaindata.NewRPCProvider(cfg.RPCURL, model.ChainEthereum)
		if err != nil {
			logger.Warn("RPC provider unavailable, continuing without nonce fallback", "error", err)
		} else {
			defer rpc.Close()
			gatewayOpts = append(gatewayOpts, chaindata.WithNonceSource(rpc))
			logger.Info("RPC nonce fallback enabled")
		}
	}
	gateway := chaindata.New(scan, cfg.CacheTTL, cfg.ProviderTimeout, gatewayOpts...)

	// Tabular model: trained artifact when present, heuristic otherwise
	var predictor tabular.Predictor
	if cfg.ModelPath != "" {
		m, err := tabular.LoadModel(cfg.ModelPath)
		if err != nil {
			logger.Warn("model artifact rejected, using heuristic fallback", "path", cfg.ModelPath, "error", err)
		} else {
			predictor = m
			logger.Info("tabular model loaded", "model", m.Name())
		}
	}

	aggregator := scoring.New(cfg, gateway,
		rules.New(db, cfg.RulePoints, cfg.RuleImpacts),
		tabular.NewScorer(predictor),
		sequence.New(),
		graphrep.New(db),
		contractrisk.New(db),
		logger,
	)

	checks := health.NewRegistry()
	checks.Register("intel", func(context.Context) error {
		if db == nil {
			return errors.New("intel database not loaded")
		}
		return nil
	})

	go func() {
		for {
			metrics.SampleRuntime()
			time.Sleep(15 * time.Second)
		}
	}()

	srv, err := server.New(cfg, aggregator, checks, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
