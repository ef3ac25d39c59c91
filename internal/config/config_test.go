package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  addr: "0.0.0.0:9090"
workers:
  per_chain: 8
scan:
  deadline_ms: 2500
  max_attempts: 2
  backoffs_ms: [500]
fetch:
  deadline_ms: 1200
dedup:
  window_ms: 15000
ratelimit:
  dexscreener:
    rps: 4
    burst: 8
    max_inflight: 4
providers:
  priority:
    market: [dexscreener, token_indexer]
    identity: [solana_rpc, token_indexer]
  cross_checks:
    market: [dexscreener, token_indexer]
  solana:
    rpc_url: https://api.mainnet-beta.solana.com
  evm:
    ETHEREUM:
      rpc_url: https://eth.example.com
      lockers: ["0x663a5c229c09b049e36dcc11a9b0d4a8eb9db214"]
blacklist:
  source: /etc/tokensleuth/blacklist.yaml
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokensleuth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Workers.PerChain)
	assert.Equal(t, 2500, cfg.Scan.DeadlineMS)
	assert.Equal(t, []string{"dexscreener", "token_indexer"}, cfg.Providers.Priority["market"])
	assert.Equal(t, 4.0, cfg.RateLimit["dexscreener"].RPS)
	assert.Equal(t, "/etc/tokensleuth/blacklist.yaml", cfg.Blacklist.Source)
	assert.Len(t, cfg.Providers.EVM["ETHEREUM"].Lockers, 1)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers.PerChain)
	assert.Equal(t, 3000, cfg.Scan.DeadlineMS)
	assert.Equal(t, 1500, cfg.Fetch.DeadlineMS)
	assert.Equal(t, 2000, cfg.Adapter.CallTimeoutMS)
	assert.Equal(t, 30000, cfg.Dedup.WindowMS)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WORKERS_PER_CHAIN", "16")
	t.Setenv("SCAN_DEADLINE_MS", "5000")
	t.Setenv("ADAPTER_CALL_TIMEOUT_MS", "3500")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Workers.PerChain)
	assert.Equal(t, 5000, cfg.Scan.DeadlineMS)
	assert.Equal(t, 3500, cfg.Adapter.CallTimeoutMS)
	assert.Equal(t, "redis:6379", cfg.Storage.RedisAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers.PerChain = 0 }},
		{"fetch exceeds scan deadline", func(c *Config) { c.Fetch.DeadlineMS = c.Scan.DeadlineMS + 1 }},
		{"unknown priority kind", func(c *Config) {
			c.Providers.Priority = map[string][]string{"sentiment": {"x"}}
		}},
		{"cross check pair wrong size", func(c *Config) {
			c.Providers.CrossChecks = map[string][]string{"market": {"only-one"}}
		}},
		{"non-evm chain in evm block", func(c *Config) {
			c.Providers.EVM = map[string]EVMRPC{"SOLANA": {RPCURL: "x"}}
		}},
		{"zero rps", func(c *Config) {
			c.RateLimit = map[string]Reservoir{"dexscreener": {RPS: 0}}
		}},
		{"call timeout reaches scan deadline", func(c *Config) {
			c.Adapter.CallTimeoutMS = c.Scan.DeadlineMS
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestScanDurations(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "3s", cfg.Scan.Deadline().String())
	assert.Equal(t, "1.5s", cfg.Fetch.Deadline().String())
	assert.Equal(t, "30s", cfg.Dedup.Window().String())
	backoffs := cfg.Scan.Backoffs()
	require.Len(t, backoffs, 2)
	assert.Equal(t, "1s", backoffs[0].String())
	assert.Equal(t, "4s", backoffs[1].String())
}
