package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tokensleuth/internal/cache"
	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/metrics"
)

// persistTimeout bounds score/job writes after a scan attempt ends, detached
// from the scan deadline so a finished evaluation is never lost to it
const persistTimeout = 5 * time.Second

// Run starts the worker pools and blocks until ctx is canceled and every
// in-flight scan has finished
func (p *Pipeline) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for chain, q := range p.queues {
		for i := 0; i < p.opts.WorkersPerChain; i++ {
			wg.Add(1)
			go func(chain domain.Chain, q *queue) {
				defer wg.Done()
				for {
					requestID, ok := q.pop()
					if !ok {
						return
					}
					p.execute(ctx, chain, requestID)
				}
			}(chain, q)
		}
	}
	<-ctx.Done()
	for _, q := range p.queues {
		q.close()
	}
	wg.Wait()
}

func (p *Pipeline) execute(ctx context.Context, chain domain.Chain, requestID string) {
	job, err := p.jobs.Get(ctx, requestID)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("queued job not loadable")
		return
	}
	metrics.QueueDepth.WithLabelValues(string(job.Tier)).Dec()

	won, err := p.jobs.Start(ctx, requestID)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("job start failed")
		return
	}
	if !won {
		return
	}
	attempt := job.Attempts + 1
	metrics.ScanPhaseSeconds.WithLabelValues("queue").Observe(time.Since(job.EnqueuedAt).Seconds())

	metrics.JobsInflight.WithLabelValues(string(chain)).Inc()
	defer metrics.JobsInflight.WithLabelValues(string(chain)).Dec()

	scanCtx, cancel := context.WithTimeout(ctx, p.opts.ScanDeadline)
	defer cancel()

	start := time.Now()
	facts, err := p.fetcher.Fetch(scanCtx, chain, job.TokenAddress)
	metrics.ScanPhaseSeconds.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.fail(requestID, domain.ErrNotFound.Error())
			return
		}
		p.retryOrFail(job, attempt, domain.ErrInternal.Error()+": "+err.Error())
		return
	}

	evalStart := time.Now()
	score := p.engine.Evaluate(facts)
	score.RequestID = requestID
	metrics.ScanPhaseSeconds.WithLabelValues("evaluate").Observe(time.Since(evalStart).Seconds())

	if score.Category == domain.CategoryUnscorable {
		// Unscorable is terminal; when the deadline ate the fetch budget the
		// caller sees DEADLINE_EXCEEDED instead
		reason := domain.ErrUnscorable.Error()
		if scanCtx.Err() != nil {
			reason = domain.ErrDeadlineExceeded.Error()
		}
		p.fail(requestID, reason)
		log.Warn().
			Str("request_id", requestID).
			Str("token", job.TokenAddress).
			Str("reason", reason).
			Msg("scan unscorable")
		return
	}

	persistStart := time.Now()
	persistCtx, cancelPersist := context.WithTimeout(context.Background(), persistTimeout)
	defer cancelPersist()
	if err := p.scores.Save(persistCtx, score); err != nil {
		p.retryOrFail(job, attempt, domain.ErrInternal.Error()+": "+err.Error())
		return
	}
	if _, err := p.jobs.Complete(persistCtx, requestID, requestID); err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("job completion not recorded")
	}
	metrics.ScanPhaseSeconds.WithLabelValues("persist").Observe(time.Since(persistStart).Seconds())

	if raw, err := json.Marshal(score); err == nil {
		p.cache.Set(cache.ScoreKey(chain, job.TokenAddress), raw, p.policy.ForScore())
	}
	metrics.ScansTotal.WithLabelValues(string(chain), string(score.Category)).Inc()
	log.Info().
		Str("request_id", requestID).
		Str("chain", string(chain)).
		Str("token", job.TokenAddress).
		Str("category", string(score.Category)).
		Int("attempt", attempt).
		Dur("elapsed", time.Since(start)).
		Msg("scan completed")
}

// retryOrFail requeues a non-terminal failure with backoff until the attempt
// budget runs out
func (p *Pipeline) retryOrFail(job *domain.ScanJob, attempt int, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if attempt >= p.opts.MaxAttempts {
		p.jobs.Fail(ctx, job.RequestID, reason)
		log.Warn().
			Str("request_id", job.RequestID).
			Int("attempts", attempt).
			Str("reason", reason).
			Msg("scan failed after final attempt")
		return
	}

	won, err := p.jobs.Requeue(ctx, job.RequestID, reason)
	if err != nil || !won {
		return
	}
	metrics.JobRetries.Inc()

	backoff := p.opts.Backoffs[len(p.opts.Backoffs)-1]
	if attempt-1 < len(p.opts.Backoffs) {
		backoff = p.opts.Backoffs[attempt-1]
	}
	log.Info().
		Str("request_id", job.RequestID).
		Int("attempt", attempt).
		Dur("backoff", backoff).
		Str("reason", reason).
		Msg("scan retry scheduled")
	time.AfterFunc(backoff, func() { p.enqueue(job) })
}

// fail records a terminal failure with the persistence timeout
func (p *Pipeline) fail(requestID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if _, err := p.jobs.Fail(ctx, requestID, reason); err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("job failure not recorded")
	}
}
