package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/tokensleuth/internal/config"
	"github.com/sawpanic/tokensleuth/internal/httpapi"
	"github.com/sawpanic/tokensleuth/internal/pipeline"
	"github.com/sawpanic/tokensleuth/internal/store"
)

const (
	shutdownGrace = 10 * time.Second

	// Jobs are operational records; scores are the product and are kept
	jobRetention  = 30 * 24 * time.Hour
	purgeInterval = time.Hour
)

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	sc, err := buildScanner(cfg)
	if err != nil {
		return err
	}
	defer sc.close()

	jobs, scores, closeStores, err := buildStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	pipe := pipeline.New(jobs, scores, sc.fetcher, sc.engine, sc.cache, sc.policy, pipeline.Options{
		WorkersPerChain: cfg.Workers.PerChain,
		ScanDeadline:    cfg.Scan.Deadline(),
		DedupWindow:     cfg.Dedup.Window(),
		MaxAttempts:     cfg.Scan.MaxAttempts,
		Backoffs:        cfg.Scan.Backoffs(),
	})

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		pipe.Run(workerCtx)
	}()
	workers.Add(1)
	go func() {
		defer workers.Done()
		purgeJobs(workerCtx, jobs)
	}()

	srvCfg := httpapi.DefaultConfig()
	srvCfg.Addr = cfg.Server.Addr
	if cfg.Server.RequestTimeoutMS > 0 {
		srvCfg.RequestTimeout = time.Duration(cfg.Server.RequestTimeoutMS) * time.Millisecond
	}
	srvCfg.Diagnostics = func() map[string]interface{} {
		return map[string]interface{}{
			"providers":         sc.limits.Snapshot(),
			"workers_per_chain": cfg.Workers.PerChain,
		}
	}
	srv := httpapi.NewServer(pipe, scores, srvCfg)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()
	log.Info().Str("addr", cfg.Server.Addr).Str("version", version).Msg("tokensleuth serving")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	// Intake first, then the workers, so accepted jobs get a chance to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	stopWorkers()
	workers.Wait()
	log.Info().Msg("stopped")
	return nil
}

// purgeJobs drops terminal jobs past the retention window on a slow cadence
func purgeJobs(ctx context.Context, jobs store.Jobs) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := jobs.PurgeTerminalBefore(ctx, time.Now().UTC().Add(-jobRetention))
			if err != nil {
				log.Warn().Err(err).Msg("job purge failed")
				continue
			}
			if removed > 0 {
				log.Info().Int64("removed", removed).Msg("purged expired jobs")
			}
		}
	}
}
