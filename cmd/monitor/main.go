// Package main runs the cross-venue price monitor: it polls Raydium and
// Jupiter prices for a catalog of tokens, logs divergences above the
// configured threshold to CSV and optionally submits placeholder trades.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"solana-arb-monitor/internal/catalog"
	"solana-arb-monitor/internal/config"
	"solana-arb-monitor/internal/fetch"
	"solana-arb-monitor/internal/logging"
	"solana-arb-monitor/internal/monitor"
	"solana-arb-monitor/internal/observability"
	"solana-arb-monitor/internal/pricing"
	"solana-arb-monitor/internal/sink"
	"solana-arb-monitor/internal/solana"
	"solana-arb-monitor/internal/trade"
)

func main() {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file (default: config.yaml in . or ./configs)")
	catalogPath := flag.String("catalog", "", "Token catalog path (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *catalogPath != "" {
		cfg.Catalog.Path = *catalogPath
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	logger, cleanup, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	tokens, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("load token catalog", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}
	logger.Info("token catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("tokens", len(tokens)))

	client := fetch.New(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithMaxRetries(cfg.Fetch.MaxRetries),
		fetch.WithRateLimit(cfg.Fetch.RateLimit, cfg.Fetch.RateBurst),
		fetch.WithLogger(logger.Named("fetch")),
	)

	checker := monitor.NewChecker(monitor.CheckerOptions{
		Raydium:          pricing.NewRaydiumSource(cfg.Sources.DexScreenerEndpoint, client, logger.Named("raydium")),
		Jupiter:          pricing.NewJupiterSource(cfg.Sources.JupiterEndpoint, client, logger.Named("jupiter")),
		MinCheckInterval: cfg.Monitor.MinCheckInterval,
		InterSourceDelay: cfg.Monitor.InterSourceDelay,
		MinDivergencePct: cfg.Monitor.MinDivergencePct,
		MaxErrors:        cfg.Monitor.MaxErrors,
		Logger:           logger.Named("checker"),
	})

	initiator, closeTrade, err := buildInitiator(cfg.Trade, logger)
	if err != nil {
		logger.Fatal("init trade initiator", zap.Error(err))
	}
	defer closeTrade()

	loop := monitor.NewLoop(monitor.LoopOptions{
		Checker:         checker,
		Tokens:          tokens,
		Sink:            sink.NewCSVSink(cfg.Sink.Path, logger.Named("sink")),
		Initiator:       initiator,
		CheckInterval:   cfg.Monitor.CheckInterval,
		RestartCooldown: cfg.Monitor.RestartCooldown,
		PostTradeDelay:  cfg.Monitor.PostTradeDelay,
		ReferenceSymbol: cfg.Monitor.ReferenceSymbol,
		ResetSession:    client.CloseIdleConnections,
		Logger:          logger.Named("loop"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go startHTTPServer(cfg.Metrics.Addr, logger)

	loop.Run(ctx)
	close(done)

	logger.Info("shutdown complete")
}

// buildInitiator assembles the placeholder trade initiator when trading is
// enabled. The returned close func tears down the confirmation socket.
func buildInitiator(cfg config.TradeConfig, logger *zap.Logger) (monitor.TradeInitiator, func(), error) {
	noop := func() {}
	if !cfg.Enabled {
		return nil, noop, nil
	}

	secret := cfg.SecretKey
	if secret == "" {
		secret = os.Getenv("SOLANA_SECRET_KEY")
	}
	keypair, err := solana.KeypairFromBase58(secret)
	if err != nil {
		return nil, noop, fmt.Errorf("trade keypair: %w", err)
	}

	var confirmations solana.ConfirmationClient
	closeFn := noop
	if cfg.Confirm {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, nil)
		cancel()
		if err != nil {
			return nil, noop, fmt.Errorf("confirmation socket: %w", err)
		}
		confirmations = ws
		closeFn = func() { ws.Close() }
	}

	initiator, err := trade.New(trade.Options{
		RPC:             solana.NewHTTPClient(cfg.RPCEndpoint),
		Confirmations:   confirmations,
		Keypair:         keypair,
		BuyDestination:  cfg.BuyDestination,
		SellDestination: cfg.SellDestination,
		Lamports:        cfg.Lamports,
		ConfirmTimeout:  cfg.ConfirmTimeout,
		Logger:          logger.Named("trade"),
	})
	if err != nil {
		closeFn()
		return nil, noop, err
	}
	return initiator, closeFn, nil
}

// startHTTPServer exposes Prometheus metrics and a health endpoint.
func startHTTPServer(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	logger.Info("starting metrics server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", zap.Error(err))
	}
}
