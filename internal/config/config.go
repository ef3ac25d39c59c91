// Package config loads the service configuration: YAML file first, then
// environment overrides for the options operators most often need to tune.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// Config is the root of the service configuration
type Config struct {
	Server    Server               `yaml:"server"`
	Workers   Workers              `yaml:"workers"`
	Scan      Scan                 `yaml:"scan"`
	Fetch     Fetch                `yaml:"fetch"`
	Adapter   Adapter              `yaml:"adapter"`
	Dedup     Dedup                `yaml:"dedup"`
	Cache     Cache                `yaml:"cache"`
	RateLimit map[string]Reservoir `yaml:"ratelimit"`
	Providers Providers            `yaml:"providers"`
	Storage   Storage              `yaml:"storage"`
	Blacklist Blacklist            `yaml:"blacklist"`
}

// Server configures the HTTP listener
type Server struct {
	Addr             string `yaml:"addr"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
}

// Workers configures the per-chain worker pools
type Workers struct {
	PerChain int `yaml:"per_chain"`
}

// Scan configures scan execution
type Scan struct {
	DeadlineMS  int   `yaml:"deadline_ms"`
	MaxAttempts int   `yaml:"max_attempts"`
	BackoffsMS  []int `yaml:"backoffs_ms"`
}

// Deadline returns the end-to-end scan deadline
func (s Scan) Deadline() time.Duration { return time.Duration(s.DeadlineMS) * time.Millisecond }

// Backoffs returns the retry waits
func (s Scan) Backoffs() []time.Duration {
	out := make([]time.Duration, len(s.BackoffsMS))
	for i, ms := range s.BackoffsMS {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}

// Fetch configures the fetch phase
type Fetch struct {
	DeadlineMS      int `yaml:"deadline_ms"`
	Parallelism     int `yaml:"parallelism"`
	WaiterTimeoutMS int `yaml:"waiter_timeout_ms"`
}

// Deadline returns the fetch-phase budget
func (f Fetch) Deadline() time.Duration { return time.Duration(f.DeadlineMS) * time.Millisecond }

// WaiterTimeout returns the coalesced-follower cutoff
func (f Fetch) WaiterTimeout() time.Duration {
	return time.Duration(f.WaiterTimeoutMS) * time.Millisecond
}

// Adapter configures the per-provider-call hard deadline
type Adapter struct {
	CallTimeoutMS int `yaml:"call_timeout_ms"`
}

// CallTimeout returns the per-call deadline
func (a Adapter) CallTimeout() time.Duration {
	return time.Duration(a.CallTimeoutMS) * time.Millisecond
}

// Dedup configures submission coalescing
type Dedup struct {
	WindowMS int `yaml:"window_ms"`
}

// Window returns the dedup window
func (d Dedup) Window() time.Duration { return time.Duration(d.WindowMS) * time.Millisecond }

// Cache configures the memory tier and per-kind TTL overrides
type Cache struct {
	MaxEntries int `yaml:"max_entries"`
	// TTLSeconds overrides the freshness bound per data kind
	TTLSeconds map[string]int `yaml:"ttl_s"`
}

// Reservoir configures one provider's rate limits
type Reservoir struct {
	RPS         float64 `yaml:"rps"`
	Burst       int     `yaml:"burst"`
	MaxInflight int     `yaml:"max_inflight"`
}

// Providers configures data sources and their ordering
type Providers struct {
	// Priority maps a data kind to its ordered provider IDs
	Priority map[string][]string `yaml:"priority"`
	// CrossChecks maps a data kind to the [primary, secondary] provider pair
	CrossChecks map[string][]string `yaml:"cross_checks"`

	Solana      SolanaRPC           `yaml:"solana"`
	EVM         map[string]EVMRPC   `yaml:"evm"`
	Dexscreener Endpoint            `yaml:"dexscreener"`
	Honeypot    Endpoint            `yaml:"honeypot"`
	Metadata    Endpoint            `yaml:"metadata"`
	Explorer    map[string]Endpoint `yaml:"explorer"`
}

// SolanaRPC configures the Solana JSON-RPC source
type SolanaRPC struct {
	RPCURL string `yaml:"rpc_url"`
}

// EVMRPC configures one EVM chain's JSON-RPC source and known LP lockers
type EVMRPC struct {
	RPCURL  string   `yaml:"rpc_url"`
	Lockers []string `yaml:"lockers"`
}

// Endpoint configures one HTTP API source
type Endpoint struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Storage configures persistence backends. Empty values select the in-memory
// store and the memory-only cache.
type Storage struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
}

// Blacklist configures the creator rug-history source
type Blacklist struct {
	Source string `yaml:"source"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server:  Server{Addr: "127.0.0.1:8080", RequestTimeoutMS: 5000},
		Workers: Workers{PerChain: 4},
		Scan:    Scan{DeadlineMS: 3000, MaxAttempts: 3, BackoffsMS: []int{1000, 4000}},
		Fetch:   Fetch{DeadlineMS: 1500, Parallelism: 8, WaiterTimeoutMS: 1000},
		Adapter: Adapter{CallTimeoutMS: 2000},
		Dedup:   Dedup{WindowMS: 30000},
		Cache:   Cache{MaxEntries: 10000},
	}
}

// Load reads the YAML file if it exists, applies env overrides and validates.
// A missing path falls back to defaults so local runs need no file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v, ok := envInt("WORKERS_PER_CHAIN"); ok {
		c.Workers.PerChain = v
	}
	if v, ok := envInt("SCAN_DEADLINE_MS"); ok {
		c.Scan.DeadlineMS = v
	}
	if v, ok := envInt("FETCH_DEADLINE_MS"); ok {
		c.Fetch.DeadlineMS = v
	}
	if v, ok := envInt("ADAPTER_CALL_TIMEOUT_MS"); ok {
		c.Adapter.CallTimeoutMS = v
	}
	if v, ok := envInt("DEDUP_WINDOW_MS"); ok {
		c.Dedup.WindowMS = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("BLACKLIST_SOURCE"); v != "" {
		c.Blacklist.Source = v
	}
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate checks structural soundness before anything is wired
func (c *Config) Validate() error {
	if c.Workers.PerChain <= 0 {
		return fmt.Errorf("workers.per_chain must be positive, got %d", c.Workers.PerChain)
	}
	if c.Scan.DeadlineMS <= 0 {
		return fmt.Errorf("scan.deadline_ms must be positive, got %d", c.Scan.DeadlineMS)
	}
	if c.Fetch.DeadlineMS <= 0 || c.Fetch.DeadlineMS > c.Scan.DeadlineMS {
		return fmt.Errorf("fetch.deadline_ms must be positive and within scan.deadline_ms")
	}
	if c.Adapter.CallTimeoutMS <= 0 || c.Adapter.CallTimeoutMS >= c.Scan.DeadlineMS {
		return fmt.Errorf("adapter.call_timeout_ms must be positive and below scan.deadline_ms")
	}
	for kind := range c.Providers.Priority {
		if !validKind(kind) {
			return fmt.Errorf("providers.priority: unknown data kind %q", kind)
		}
	}
	for kind, pair := range c.Providers.CrossChecks {
		if !validKind(kind) {
			return fmt.Errorf("providers.cross_checks: unknown data kind %q", kind)
		}
		if len(pair) != 2 {
			return fmt.Errorf("providers.cross_checks.%s: want exactly 2 provider IDs, got %d", kind, len(pair))
		}
	}
	for name := range c.Providers.EVM {
		chain, err := domain.ParseChain(name)
		if err != nil || !chain.IsEVM() {
			return fmt.Errorf("providers.evm: %q is not an EVM chain", name)
		}
	}
	for name, r := range c.RateLimit {
		if r.RPS <= 0 {
			return fmt.Errorf("ratelimit.%s.rps must be positive", name)
		}
	}
	return nil
}

func validKind(kind string) bool {
	switch domain.DataKind(kind) {
	case domain.KindIdentity, domain.KindAuthorities, domain.KindHolders,
		domain.KindMarket, domain.KindLPLock, domain.KindSimulation,
		domain.KindProvenance, domain.KindVerification, domain.KindSocial:
		return true
	}
	return false
}
