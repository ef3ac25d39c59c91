// Package pipeline accepts scan submissions, deduplicates them, and drives
// per-chain worker pools through the fetch-evaluate-persist cycle.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tokensleuth/internal/cache"
	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/engine"
	"github.com/sawpanic/tokensleuth/internal/metrics"
	"github.com/sawpanic/tokensleuth/internal/store"
)

// Fetcher resolves the normalized facts one scan evaluates
type Fetcher interface {
	Fetch(ctx context.Context, chain domain.Chain, address string) (*domain.TokenFacts, error)
}

// Options tune submission and execution behavior
type Options struct {
	// WorkersPerChain is the pool size for each chain's queue
	WorkersPerChain int
	// ScanDeadline bounds one scan attempt end to end
	ScanDeadline time.Duration
	// DedupWindow coalesces repeat submissions onto an open job
	DedupWindow time.Duration
	// MaxAttempts bounds retries of non-terminal failures
	MaxAttempts int
	// Backoffs are the waits before each retry, indexed by completed attempts
	Backoffs []time.Duration
}

func (o Options) withDefaults() Options {
	if o.WorkersPerChain <= 0 {
		o.WorkersPerChain = 4
	}
	if o.ScanDeadline <= 0 {
		o.ScanDeadline = 3 * time.Second
	}
	if o.DedupWindow <= 0 {
		o.DedupWindow = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if len(o.Backoffs) == 0 {
		o.Backoffs = []time.Duration{time.Second, 4 * time.Second}
	}
	return o
}

// SubmitRequest is one scan submission
type SubmitRequest struct {
	Chain   string
	Address string
	UserID  string
	Tier    string
}

// Pipeline owns the scan lifecycle from submission to persisted score
type Pipeline struct {
	jobs    store.Jobs
	scores  store.Scores
	fetcher Fetcher
	engine  *engine.Engine
	cache   *cache.Tiered
	policy  *cache.TTLPolicy
	opts    Options

	queues map[domain.Chain]*queue
	now    func() time.Time
}

// New wires the pipeline. Run must be called before submissions dispatch.
func New(jobs store.Jobs, scores store.Scores, fetcher Fetcher, eng *engine.Engine, scanCache *cache.Tiered, policy *cache.TTLPolicy, opts Options) *Pipeline {
	p := &Pipeline{
		jobs:    jobs,
		scores:  scores,
		fetcher: fetcher,
		engine:  eng,
		cache:   scanCache,
		policy:  policy,
		opts:    opts.withDefaults(),
		queues:  make(map[domain.Chain]*queue),
		now:     time.Now,
	}
	for _, chain := range domain.AllChains {
		p.queues[chain] = newQueue()
	}
	return p
}

// Submit validates and enqueues one scan. A fresh cached score completes the
// job immediately; an open job for the same token within the dedup window is
// returned instead of creating a duplicate.
func (p *Pipeline) Submit(ctx context.Context, req SubmitRequest) (*domain.ScanJob, error) {
	chain, err := domain.ParseChain(req.Chain)
	if err != nil {
		return nil, domain.ErrInvalidAddress
	}
	address, err := domain.ValidateAddress(chain, req.Address)
	if err != nil {
		return nil, err
	}
	tier := domain.ParseTier(req.Tier)
	now := p.now().UTC()

	// Fresh whole-scan result: answer without touching the queue
	if raw, ok := p.cache.Get(cache.ScoreKey(chain, address)); ok {
		var cached domain.RiskScore
		if err := json.Unmarshal(raw, &cached); err == nil {
			job := &domain.ScanJob{
				RequestID:    uuid.NewString(),
				Chain:        chain,
				TokenAddress: address,
				UserID:       req.UserID,
				Tier:         tier,
				Priority:     tier.Priority(),
				State:        domain.JobCompleted,
				EnqueuedAt:   now,
				CompletedAt:  &now,
				ResultRef:    cached.RequestID,
			}
			if err := p.jobs.Create(ctx, job); err != nil {
				return nil, err
			}
			log.Debug().Str("request_id", job.RequestID).Msg("served scan from result cache")
			return job, nil
		}
	}

	// Coalesce onto an open job submitted within the window
	if open, err := p.jobs.FindOpen(ctx, chain, address); err == nil {
		if now.Sub(open.EnqueuedAt) <= p.opts.DedupWindow {
			return open, nil
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	job := &domain.ScanJob{
		RequestID:    uuid.NewString(),
		Chain:        chain,
		TokenAddress: address,
		UserID:       req.UserID,
		Tier:         tier,
		Priority:     tier.Priority(),
		State:        domain.JobQueued,
		EnqueuedAt:   now,
	}
	if err := p.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	p.enqueue(job)
	log.Info().
		Str("request_id", job.RequestID).
		Str("chain", string(chain)).
		Str("token", address).
		Str("tier", string(tier)).
		Msg("scan enqueued")
	return job, nil
}

func (p *Pipeline) enqueue(job *domain.ScanJob) {
	p.queues[job.Chain].push(job.RequestID, job.Priority)
	metrics.QueueDepth.WithLabelValues(string(job.Tier)).Inc()
}

// Status returns the job and, once completed, its score
func (p *Pipeline) Status(ctx context.Context, requestID string) (*domain.ScanJob, *domain.RiskScore, error) {
	job, err := p.jobs.Get(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if job.State != domain.JobCompleted || job.ResultRef == "" {
		return job, nil, nil
	}
	score, err := p.scores.Get(ctx, job.ResultRef)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return job, nil, nil
		}
		return nil, nil, err
	}
	return job, score, nil
}

// QueueDepths reports the current queue length per chain, for health output
func (p *Pipeline) QueueDepths() map[domain.Chain]int {
	out := make(map[domain.Chain]int, len(p.queues))
	for chain, q := range p.queues {
		out[chain] = q.depth()
	}
	return out
}
