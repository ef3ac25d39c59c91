package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// MemoryJobs is the in-process Jobs implementation
type MemoryJobs struct {
	mu   sync.RWMutex
	jobs map[string]*domain.ScanJob
	// open indexes QUEUED/RUNNING jobs by chain:address for dedup lookups
	open map[string]string
}

// NewMemoryJobs creates an empty in-memory jobs repo
func NewMemoryJobs() *MemoryJobs {
	return &MemoryJobs{
		jobs: make(map[string]*domain.ScanJob),
		open: make(map[string]string),
	}
}

func openKey(chain domain.Chain, address string) string {
	return string(chain) + ":" + address
}

func (m *MemoryJobs) Create(_ context.Context, job *domain.ScanJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[cp.RequestID] = &cp
	if cp.State.Open() {
		m.open[openKey(cp.Chain, cp.TokenAddress)] = cp.RequestID
	}
	return nil
}

func (m *MemoryJobs) Get(_ context.Context, requestID string) (*domain.ScanJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MemoryJobs) FindOpen(_ context.Context, chain domain.Chain, address string) (*domain.ScanJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.open[openKey(chain, address)]
	if !ok {
		return nil, ErrNotFound
	}
	job := m.jobs[id]
	if job == nil || !job.State.Open() {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MemoryJobs) Start(_ context.Context, requestID string) (bool, error) {
	return m.transition(requestID, domain.JobQueued, func(job *domain.ScanJob) {
		now := time.Now().UTC()
		job.State = domain.JobRunning
		job.StartedAt = &now
		job.Attempts++
	})
}

func (m *MemoryJobs) Requeue(_ context.Context, requestID, lastError string) (bool, error) {
	return m.transition(requestID, domain.JobRunning, func(job *domain.ScanJob) {
		job.State = domain.JobQueued
		job.LastError = lastError
	})
}

func (m *MemoryJobs) Complete(_ context.Context, requestID, resultRef string) (bool, error) {
	return m.transition(requestID, domain.JobRunning, func(job *domain.ScanJob) {
		now := time.Now().UTC()
		job.State = domain.JobCompleted
		job.CompletedAt = &now
		job.ResultRef = resultRef
		delete(m.open, openKey(job.Chain, job.TokenAddress))
	})
}

func (m *MemoryJobs) Fail(_ context.Context, requestID, lastError string) (bool, error) {
	return m.transition(requestID, domain.JobRunning, func(job *domain.ScanJob) {
		now := time.Now().UTC()
		job.State = domain.JobFailed
		job.CompletedAt = &now
		job.LastError = lastError
		delete(m.open, openKey(job.Chain, job.TokenAddress))
	})
}

func (m *MemoryJobs) PurgeTerminalBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, job := range m.jobs {
		if !job.State.Open() && job.EnqueuedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryJobs) transition(requestID string, from domain.JobState, apply func(*domain.ScanJob)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[requestID]
	if !ok {
		return false, ErrNotFound
	}
	if job.State != from {
		return false, nil
	}
	apply(job)
	return true, nil
}

// MemoryScores is the in-process Scores implementation
type MemoryScores struct {
	mu      sync.RWMutex
	byID    map[string]*domain.RiskScore
	byToken map[string][]*domain.RiskScore
}

// NewMemoryScores creates an empty in-memory scores repo
func NewMemoryScores() *MemoryScores {
	return &MemoryScores{
		byID:    make(map[string]*domain.RiskScore),
		byToken: make(map[string][]*domain.RiskScore),
	}
}

func (m *MemoryScores) Save(_ context.Context, score *domain.RiskScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *score
	m.byID[cp.RequestID] = &cp
	key := openKey(cp.Chain, cp.TokenAddress)
	m.byToken[key] = append(m.byToken[key], &cp)
	return nil
}

func (m *MemoryScores) Get(_ context.Context, requestID string) (*domain.RiskScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	score, ok := m.byID[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *score
	return &cp, nil
}

func (m *MemoryScores) History(_ context.Context, chain domain.Chain, address string, limit int) ([]*domain.RiskScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scores := m.byToken[openKey(chain, address)]
	out := make([]*domain.RiskScore, len(scores))
	for i, s := range scores {
		cp := *s
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EvaluatedAt.After(out[j].EvaluatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
