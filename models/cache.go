package models

import "time"

// CacheInfo describes a cache entry returned alongside its value.
type CacheInfo struct {
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	IsStale    bool      `json:"is_stale"`
	AgeSeconds float64   `json:"age_seconds"`
}

// CacheEntryStats is the observability view of one entry.
type CacheEntryStats struct {
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	IsStale    bool      `json:"is_stale"`
	IsExpired  bool      `json:"is_expired"`
	AgeSeconds float64   `json:"age_seconds"`
	AgeMinutes float64   `json:"age_minutes"`
}

// CacheStats is a snapshot of every cache entry plus access counters.
type CacheStats struct {
	TotalEntries int                        `json:"total_entries"`
	TTLMinutes   float64                    `json:"ttl_minutes"`
	Hits         uint64                     `json:"hits"`
	Misses       uint64                     `json:"misses"`
	StaleHits    uint64                     `json:"stale_hits"`
	Entries      map[string]CacheEntryStats `json:"entries"`
}

// SourceOutcome is the result of refreshing one source during a pass.
type SourceOutcome struct {
	Source   string        `json:"source"`
	OK       bool          `json:"ok"`
	Items    int           `json:"items"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RefreshReport summarises one refresh pass.
type RefreshReport struct {
	RunID      string                   `json:"run_id"`
	Trigger    string                   `json:"trigger"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Outcomes   map[string]SourceOutcome `json:"outcomes"`
}

// Failed returns the names of the sources that failed during the pass.
func (r *RefreshReport) Failed() []string {
	var failed []string
	for name, o := range r.Outcomes {
		if !o.OK {
			failed = append(failed, name)
		}
	}
	return failed
}

// SchedulerStatus reports the scheduler job state.
type SchedulerStatus struct {
	IsRunning              bool           `json:"is_running"`
	RefreshInProgress      bool           `json:"refresh_in_progress"`
	RefreshIntervalMinutes float64        `json:"refresh_interval_minutes"`
	NextRun                *time.Time     `json:"next_run,omitempty"`
	LastRun                *RefreshReport `json:"last_run,omitempty"`
}
