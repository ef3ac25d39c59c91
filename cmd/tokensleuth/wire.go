package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tokensleuth/internal/cache"
	"github.com/sawpanic/tokensleuth/internal/config"
	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/engine"
	"github.com/sawpanic/tokensleuth/internal/engine/blacklist"
	"github.com/sawpanic/tokensleuth/internal/fetch"
	"github.com/sawpanic/tokensleuth/internal/providers"
	"github.com/sawpanic/tokensleuth/internal/providers/dexscreener"
	"github.com/sawpanic/tokensleuth/internal/providers/evm"
	"github.com/sawpanic/tokensleuth/internal/providers/explorer"
	"github.com/sawpanic/tokensleuth/internal/providers/honeypot"
	"github.com/sawpanic/tokensleuth/internal/providers/metadata"
	"github.com/sawpanic/tokensleuth/internal/providers/solana"
	"github.com/sawpanic/tokensleuth/internal/ratelimit"
	"github.com/sawpanic/tokensleuth/internal/store"
	"github.com/sawpanic/tokensleuth/internal/store/postgres"
)

const defaultSolanaRPC = "https://api.mainnet-beta.solana.com"

// scanner bundles the components shared by the server and the one-shot scan
// command: the fetch layer, the scoring engine and the caches behind them.
type scanner struct {
	fetcher *fetch.Fetcher
	engine  *engine.Engine
	cache   *cache.Tiered
	policy  *cache.TTLPolicy
	limits  *ratelimit.Manager

	deny   *blacklist.Blacklist
	memory *cache.TTLStore
}

func (s *scanner) close() {
	s.deny.Stop()
	s.memory.Stop()
}

func buildScanner(cfg *config.Config) (*scanner, error) {
	// Must precede adapter construction; clients capture the deadline
	providers.CallTimeout = cfg.Adapter.CallTimeout()

	memory := cache.NewTTLStore(cfg.Cache.MaxEntries)
	var shared cache.Store
	if cfg.Storage.RedisAddr != "" {
		shared = cache.NewRedisStore(cfg.Storage.RedisAddr)
		log.Info().Str("addr", cfg.Storage.RedisAddr).Msg("redis cache tier enabled")
	}
	tiered := cache.NewTiered(memory, shared)

	policy := cache.DefaultTTLPolicy()
	for kind, seconds := range cfg.Cache.TTLSeconds {
		policy.Override(domain.DataKind(kind), time.Duration(seconds)*time.Second)
	}

	limits := ratelimit.NewManager()
	for provider, r := range cfg.RateLimit {
		limits.Configure(provider, r.RPS, r.Burst, r.MaxInflight)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		memory.Stop()
		return nil, err
	}

	deny, err := blacklist.Load(cfg.Blacklist.Source)
	if err != nil {
		memory.Stop()
		return nil, fmt.Errorf("load blacklist: %w", err)
	}
	deny.StartRefresh()
	if deny.Size() > 0 {
		log.Info().Int("creators", deny.Size()).Str("source", cfg.Blacklist.Source).Msg("creator blacklist loaded")
	}

	fetcher := fetch.New(registry, tiered, policy, limits, fetch.Options{
		Parallelism:   cfg.Fetch.Parallelism,
		Budget:        cfg.Fetch.Deadline(),
		WaiterTimeout: cfg.Fetch.WaiterTimeout(),
		CrossChecks:   crossChecks(cfg),
	})

	return &scanner{
		fetcher: fetcher,
		engine:  engine.New(deny),
		cache:   tiered,
		policy:  policy,
		limits:  limits,
		deny:    deny,
		memory:  memory,
	}, nil
}

func buildRegistry(cfg *config.Config) (*providers.Registry, error) {
	reg := providers.NewRegistry()

	solanaURL := cfg.Providers.Solana.RPCURL
	if solanaURL == "" {
		solanaURL = defaultSolanaRPC
	}
	reg.Register(solana.New(solanaURL))

	if len(cfg.Providers.EVM) > 0 {
		rpcURLs := make(map[domain.Chain]string, len(cfg.Providers.EVM))
		lockers := make(map[domain.Chain][]string, len(cfg.Providers.EVM))
		for name, e := range cfg.Providers.EVM {
			chain, err := domain.ParseChain(name)
			if err != nil {
				return nil, fmt.Errorf("providers.evm: %w", err)
			}
			rpcURLs[chain] = e.RPCURL
			lockers[chain] = e.Lockers
		}
		reg.Register(evm.New(rpcURLs, lockers, nil))
	}

	reg.Register(dexscreener.New(cfg.Providers.Dexscreener.BaseURL))
	reg.Register(honeypot.New(cfg.Providers.Honeypot.BaseURL, cfg.Providers.Honeypot.APIKey))
	if cfg.Providers.Metadata.BaseURL != "" {
		reg.Register(metadata.New(cfg.Providers.Metadata.BaseURL, cfg.Providers.Metadata.APIKey))
	}
	if len(cfg.Providers.Explorer) > 0 {
		baseURLs := make(map[domain.Chain]string, len(cfg.Providers.Explorer))
		apiKeys := make(map[domain.Chain]string, len(cfg.Providers.Explorer))
		for name, e := range cfg.Providers.Explorer {
			chain, err := domain.ParseChain(name)
			if err != nil {
				return nil, fmt.Errorf("providers.explorer: %w", err)
			}
			baseURLs[chain] = e.BaseURL
			apiKeys[chain] = e.APIKey
		}
		reg.Register(explorer.New(baseURLs, apiKeys))
	}

	// Defaults are filtered to the adapters actually registered; explicit
	// priority config is validated strictly below.
	for kind, ids := range defaultPriority() {
		var present []string
		for _, id := range ids {
			if _, ok := reg.Get(id); ok {
				present = append(present, id)
			}
		}
		reg.SetPriority(kind, present)
	}
	for kind, ids := range cfg.Providers.Priority {
		reg.SetPriority(domain.DataKind(kind), ids)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("provider priority: %w", err)
	}
	return reg, nil
}

func defaultPriority() map[domain.DataKind][]string {
	return map[domain.DataKind][]string{
		domain.KindIdentity:     {solana.ProviderID, evm.ProviderID, metadata.ProviderID},
		domain.KindAuthorities:  {solana.ProviderID, evm.ProviderID},
		domain.KindHolders:      {solana.ProviderID, metadata.ProviderID},
		domain.KindMarket:       {dexscreener.ProviderID},
		domain.KindLPLock:       {evm.ProviderID, metadata.ProviderID},
		domain.KindSimulation:   {honeypot.ProviderID},
		domain.KindProvenance:   {explorer.ProviderID, metadata.ProviderID},
		domain.KindVerification: {explorer.ProviderID},
		domain.KindSocial:       {metadata.ProviderID},
	}
}

func crossChecks(cfg *config.Config) map[domain.DataKind][2]string {
	if len(cfg.Providers.CrossChecks) == 0 {
		return nil
	}
	out := make(map[domain.DataKind][2]string, len(cfg.Providers.CrossChecks))
	for kind, pair := range cfg.Providers.CrossChecks {
		out[domain.DataKind(kind)] = [2]string{pair[0], pair[1]}
	}
	return out
}

func buildStores(cfg *config.Config) (store.Jobs, store.Scores, func(), error) {
	if cfg.Storage.PostgresDSN == "" {
		log.Info().Msg("no postgres dsn configured, using in-memory stores")
		return store.NewMemoryJobs(), store.NewMemoryScores(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.Connect(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	log.Info().Msg("postgres store ready")
	return postgres.NewJobs(db), postgres.NewScores(db), func() { db.Close() }, nil
}
