package datarepo

import "time"

// SourceStatus describes the run history of one registered source.
// The zero LastAttempt/LastSuccess mean the source has never been refreshed.
type SourceStatus struct {
	Key          string        `json:"key"`
	Interval     time.Duration `json:"interval"`
	Jitter       time.Duration `json:"jitter"`
	LastAttempt  time.Time     `json:"lastAttempt"`
	LastSuccess  time.Time     `json:"lastSuccess"`
	RunCount     int64         `json:"runCount"`
	ErrorCount   int64         `json:"errorCount"`
	LastError    string        `json:"lastError,omitempty"`
	LastDuration time.Duration `json:"lastDuration"`
}
