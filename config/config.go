package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"accesspay/crypto"
)

// TokenConfig declares a payment asset registered at startup.
type TokenConfig struct {
	Symbol   string `toml:"Symbol"`
	Name     string `toml:"Name"`
	Decimals uint8  `toml:"Decimals"`
}

// GenesisAccount funds an account with native balance at first start.
type GenesisAccount struct {
	Address string `toml:"Address"`
	Balance uint64 `toml:"Balance"`
}

// Telemetry holds the OpenTelemetry exporter knobs.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

type Config struct {
	RPCAddress         string           `toml:"RPCAddress"`
	DataDir            string           `toml:"DataDir"`
	NetworkName        string           `toml:"NetworkName"`
	Environment        string           `toml:"Environment"`
	RPCAuthTokenEnv    string           `toml:"RPCAuthTokenEnv"`
	OperatorKeystore   string           `toml:"OperatorKeystore"`
	RateLimitPerMinute int              `toml:"RateLimitPerMinute"`
	Tokens             []TokenConfig    `toml:"Tokens"`
	GenesisAccounts    []GenesisAccount `toml:"GenesisAccounts"`
	Telemetry          Telemetry        `toml:"Telemetry"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "accesspay-local"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 600
	}
}

// Validate rejects configurations that would fail at runtime: malformed
// funding addresses, unnamed tokens or a negative rate limit.
func (cfg *Config) Validate() error {
	if cfg.RateLimitPerMinute < 0 {
		return fmt.Errorf("config: RateLimitPerMinute must not be negative")
	}
	seen := make(map[string]struct{})
	for _, token := range cfg.Tokens {
		symbol := strings.ToUpper(strings.TrimSpace(token.Symbol))
		if symbol == "" {
			return fmt.Errorf("config: token symbol must not be empty")
		}
		if strings.TrimSpace(token.Name) == "" {
			return fmt.Errorf("config: token %s: name must not be empty", symbol)
		}
		if _, dup := seen[symbol]; dup {
			return fmt.Errorf("config: token %s declared twice", symbol)
		}
		seen[symbol] = struct{}{}
	}
	for _, account := range cfg.GenesisAccounts {
		if _, err := crypto.DecodeAddress(account.Address); err != nil {
			return fmt.Errorf("config: genesis account %q: %w", account.Address, err)
		}
	}
	return nil
}

// AuthToken resolves the RPC bearer token from the configured environment
// variable. An empty return disables authentication.
func (cfg *Config) AuthToken() string {
	name := strings.TrimSpace(cfg.RPCAuthTokenEnv)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
