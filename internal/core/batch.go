package core

import "time"

// BatchSummary aggregates a completed verification run.
type BatchSummary struct {
	RunID          string    `json:"run_id"`
	Total          int       `json:"total"`
	Valid          int       `json:"valid"`
	Invalid        int       `json:"invalid"`
	Checkpoints    int       `json:"checkpoints"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// ValidRate returns the share of valid addresses as a percentage.
func (s *BatchSummary) ValidRate() float64 {
	if s == nil || s.Total == 0 {
		return 0
	}
	return float64(s.Valid) / float64(s.Total) * 100
}

// MillisPerAddress returns the average wall-clock cost per address.
func (s *BatchSummary) MillisPerAddress() float64 {
	if s == nil || s.Total == 0 {
		return 0
	}
	return s.ElapsedSeconds * 1000 / float64(s.Total)
}

// Run statuses recorded by the store.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// RunRecord is a stored verification run. Counters reflect the last
// checkpoint until the run finishes.
type RunRecord struct {
	RunID       string     `json:"run_id"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	Total       int        `json:"total"`
	Valid       int        `json:"valid"`
	Invalid     int        `json:"invalid"`
	Checkpoints int        `json:"checkpoints"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
