package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8645", cfg.RPCAddress)
	require.Equal(t, "accesspay-local", cfg.NetworkName)
	require.Equal(t, "dev", cfg.Environment)
	require.Equal(t, 600, cfg.RateLimitPerMinute)
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, "./data", cfg.DataDir)

	// A second load reads the file that was just written.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, reloaded.RPCAddress)
}

func TestLoadParsesFullConfig(t *testing.T) {
	path := writeConfig(t, `
RPCAddress = "0.0.0.0:9000"
DataDir = "/var/lib/accesspay"
NetworkName = "accesspay-test"
Environment = "staging"
RPCAuthTokenEnv = "ACCESSPAY_RPC_TOKEN"
RateLimitPerMinute = 120

[[Tokens]]
Symbol = "usdx"
Name = "Test Dollar"
Decimals = 6

[Telemetry]
Endpoint = "collector:4318"
Insecure = true
Metrics = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.RPCAddress)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.Len(t, cfg.Tokens, 1)
	require.Equal(t, uint8(6), cfg.Tokens[0].Decimals)
	require.Equal(t, "collector:4318", cfg.Telemetry.Endpoint)
	require.True(t, cfg.Telemetry.Metrics)
	require.False(t, cfg.Telemetry.Traces)
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative rate limit", "RateLimitPerMinute = -1"},
		{"empty token symbol", "[[Tokens]]\nSymbol = \"\"\nName = \"x\""},
		{"duplicate token", "[[Tokens]]\nSymbol = \"USDX\"\nName = \"a\"\n[[Tokens]]\nSymbol = \"usdx\"\nName = \"b\""},
		{"bad genesis address", "[[GenesisAccounts]]\nAddress = \"not-bech32\"\nBalance = 10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
		})
	}
}

func TestAuthTokenFromEnv(t *testing.T) {
	cfg := &Config{RPCAuthTokenEnv: "ACCESSPAY_TEST_TOKEN"}
	t.Setenv("ACCESSPAY_TEST_TOKEN", "  secret  ")
	require.Equal(t, "secret", cfg.AuthToken())

	cfg.RPCAuthTokenEnv = ""
	require.Equal(t, "", cfg.AuthToken())
}
