package domain

import "time"

// Tier is the submitter entitlement class; it affects only scan priority
type Tier string

const (
	TierFree       Tier = "FREE"
	TierPremium    Tier = "PREMIUM"
	TierEnterprise Tier = "ENTERPRISE"
)

// ParseTier maps a wire string to a Tier, defaulting to FREE
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierPremium:
		return TierPremium
	case TierEnterprise:
		return TierEnterprise
	}
	return TierFree
}

// Priority dispatched first is the lowest number
func (t Tier) Priority() int {
	switch t {
	case TierEnterprise:
		return 0
	case TierPremium:
		return 1
	}
	return 2
}

// JobState is the scan job lifecycle state
type JobState string

const (
	JobQueued    JobState = "QUEUED"
	JobRunning   JobState = "RUNNING"
	JobCompleted JobState = "COMPLETED"
	JobFailed    JobState = "FAILED"
)

// Open reports whether the state still counts for submission dedup
func (s JobState) Open() bool { return s == JobQueued || s == JobRunning }

// ScanJob is the persistent record of an in-flight scan
type ScanJob struct {
	RequestID    string     `json:"request_id" db:"request_id"`
	Chain        Chain      `json:"chain" db:"chain"`
	TokenAddress string     `json:"token_address" db:"token_address"`
	UserID       string     `json:"user_id" db:"user_id"`
	Tier         Tier       `json:"tier" db:"tier"`
	Priority     int        `json:"priority" db:"priority"`
	State        JobState   `json:"state" db:"state"`
	Attempts     int        `json:"attempts" db:"attempts"`
	EnqueuedAt   time.Time  `json:"enqueued_at" db:"enqueued_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ResultRef    string     `json:"result_ref,omitempty" db:"result_ref"`
	LastError    string     `json:"last_error,omitempty" db:"last_error"`
}
