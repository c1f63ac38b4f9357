package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ibflow/bus"
	"ibflow/config"
	"ibflow/contracts"
	"ibflow/engine"
	"ibflow/logger"
	"ibflow/models"
	"ibflow/protocol"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	symbol := flag.String("symbol", "", "Run the contract workflows once for this stock symbol, then exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.IBFlow.Name,
		"version":     cfg.IBFlow.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting ibflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
		logger.StartReport(ctx, log, cfg.Metrics.ReportInterval)
	}

	required := config.DefaultRequiredFields()
	if path := cfg.Contract.RequiredFieldsPath; path != "" {
		loaded, err := config.LoadRequiredFields(path)
		if err != nil {
			log.WithError(err).Warn("failed to load required fields table, using defaults")
		} else {
			required = loaded
		}
	}

	serverVersion := cfg.Gateway.ServerVersion
	if serverVersion == 0 {
		serverVersion = protocol.DefaultServerVersion
	}

	registry := protocol.DefaultRegistry()
	dispatcher := bus.NewDispatcher(registry, serverVersion, func(message string, correlationID int64, wire []string) error {
		// Transport wiring lands here; until then encoded requests are
		// logged for inspection against a gateway trace.
		log.WithComponent("transport").WithFields(logger.Fields{
			"message": message,
			"id":      correlationID,
			"tokens":  len(wire),
		}).Debug("encoded outgoing message")
		return nil
	})

	eng := engine.New(dispatcher,
		engine.WithRateLimit(cfg.Engine.RateLimit.RequestsPerSecond, cfg.Engine.RateLimit.BurstSize))

	verifier := contracts.NewVerifier(eng, required,
		contracts.WithVerifyTimeout(cfg.Engine.Timeouts.Verify))
	snapshot := contracts.NewSnapshot(eng, dispatcher,
		contracts.WithSnapshotTimeout(cfg.Engine.Timeouts.Snapshot))
	resolver := contracts.NewChainResolver(eng, verifier, snapshot,
		contracts.WithChainTimeout(cfg.Engine.Timeouts.Chain),
		contracts.WithReferenceCurrency(cfg.Contract.ReferenceCurrency))

	log.WithFields(logger.Fields{
		"gateway":        cfg.Gateway.Host,
		"port":           cfg.Gateway.Port,
		"client_id":      cfg.Gateway.ClientID,
		"server_version": serverVersion,
		"messages":       len(registry.Names()),
	}).Info("workflows ready")

	if *symbol != "" {
		runWorkflows(ctx, log, verifier, snapshot, resolver, *symbol)
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutting down")
	cancel()
}

// runWorkflows exercises verification, a price snapshot and chain
// resolution for one stock symbol and logs the results.
func runWorkflows(ctx context.Context, log *logger.Log, verifier *contracts.Verifier, snapshot *contracts.Snapshot, resolver *contracts.ChainResolver, symbol string) {
	c := &models.Contract{Symbol: symbol, SecType: models.SecTypeStock}

	verified, err := verifier.VerifyAndUpdate(ctx, c)
	if err != nil {
		log.WithError(err).Error("verification failed")
		return
	}
	if verified == nil {
		log.WithFields(logger.Fields{"contract": c.String()}).Warn("contract not verified")
		return
	}
	log.WithFields(logger.Fields{"contract": c.String(), "con_id": c.ConID}).Info("contract verified")

	if price, ok := snapshot.MarketPrice(ctx, c, contracts.PriceRequest{}); ok {
		log.WithFields(logger.Fields{"contract": c.String(), "price": price.String()}).Info("market price")
	}

	chain, err := resolver.OptionChain(ctx, c, contracts.ChainRequest{})
	if err != nil {
		log.WithError(err).Error("chain resolution failed")
		return
	}
	if chain == nil {
		log.WithFields(logger.Fields{"contract": c.String()}).Warn("no option chain")
		return
	}
	log.WithFields(logger.Fields{
		"contract": c.String(),
		"strikes":  len(chain.ByStrike),
	}).Info("option chain resolved")
}
