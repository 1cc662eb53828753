package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"accesspay/config"
	"accesspay/core"
	"accesspay/crypto"
	"accesspay/observability/logging"
	"accesspay/observability/otel"
	"accesspay/rpc"
	"accesspay/storage"
)

const (
	envEnvironment  = "ACCESSPAY_ENV"
	envOperatorPass = "ACCESSPAY_OPERATOR_PASS"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envEnvironment))
	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("accesspayd", env)

	shutdownTelemetry := setupTelemetry(logger, cfg, env)
	defer shutdownTelemetry()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		panic(fmt.Sprintf("Failed to prepare data directory: %v", err))
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	operator, err := ensureOperatorKey(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to prepare operator keystore: %v", err))
	}
	logger.Info("operator identity ready", slog.String("address", operator.PubKey().Address().String()))

	node, err := core.NewNode(db)
	if err != nil {
		panic(fmt.Sprintf("Failed to create node: %v", err))
	}
	if err := applyGenesis(logger, node, cfg); err != nil {
		logger.Error("Failed to apply genesis configuration", slog.Any("error", err))
		os.Exit(1)
	}

	authToken := cfg.AuthToken()
	if authToken != "" {
		logger.Info("rpc auth enabled", logging.MaskField("token", authToken))
	} else {
		logger.Warn("rpc auth disabled; set RPCAuthTokenEnv to require a bearer token")
	}
	server := rpc.NewServer(node, authToken, cfg.RateLimitPerMinute)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.RPCAddress)
	}()
	logger.Info("accesspay node started",
		slog.String("network", cfg.NetworkName),
		slog.String("rpc", cfg.RPCAddress),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	case sig := <-sigCh:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}
}

func setupTelemetry(logger *slog.Logger, cfg *config.Config, env string) func() {
	tele := cfg.Telemetry
	if !tele.Metrics && !tele.Traces {
		return func() {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	shutdown, err := otel.Init(ctx, otel.Config{
		ServiceName: "accesspayd",
		Environment: env,
		Endpoint:    tele.Endpoint,
		Insecure:    tele.Insecure,
		Headers:     otel.ParseHeaders(tele.Headers),
		Metrics:     tele.Metrics,
		Traces:      tele.Traces,
	})
	if err != nil {
		logger.Warn("telemetry disabled", slog.Any("error", err))
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}
}

// ensureOperatorKey loads the operator keystore, generating one on first
// start. The operator address is the service's administrative identity.
func ensureOperatorKey(cfg *config.Config) (*crypto.PrivateKey, error) {
	path := strings.TrimSpace(cfg.OperatorKeystore)
	if path == "" {
		path = filepath.Join(cfg.DataDir, "operator.keystore")
	}
	passphrase := os.Getenv(envOperatorPass)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return nil, genErr
		}
		if err := crypto.SaveToKeystore(path, key, passphrase); err != nil {
			return nil, err
		}
		return key, nil
	}
	return crypto.LoadFromKeystore(path, passphrase)
}

// applyGenesis registers configured payment assets and funds genesis
// accounts. Registration and funding are idempotent across restarts: a token
// that already exists is skipped, and accounts are only credited when their
// balance is still zero.
func applyGenesis(logger *slog.Logger, node *core.Node, cfg *config.Config) error {
	for _, token := range cfg.Tokens {
		if err := node.RegisterToken(token.Symbol, token.Name, token.Decimals); err != nil {
			logger.Info("token already registered, skipping", slog.String("symbol", token.Symbol))
			continue
		}
		logger.Info("registered payment asset", slog.String("symbol", token.Symbol))
	}
	for _, account := range cfg.GenesisAccounts {
		decoded, err := crypto.DecodeAddress(account.Address)
		if err != nil {
			return fmt.Errorf("genesis account %q: %w", account.Address, err)
		}
		var addr [20]byte
		copy(addr[:], decoded.Bytes())
		balance, err := node.Balance(addr)
		if err != nil {
			return err
		}
		if balance.Sign() != 0 {
			continue
		}
		if err := node.Credit(addr, new(big.Int).SetUint64(account.Balance)); err != nil {
			return err
		}
		logger.Info("funded genesis account", slog.String("address", account.Address))
	}
	return nil
}
