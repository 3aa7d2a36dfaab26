package domain

import "time"

// FlushRecord remembers the outcome of the most recent flush.
type FlushRecord struct {
	At      time.Time
	RunID   string
	Flushed int
	Failed  int
	Skipped int
	Buckets int
	Seconds int64
	Err     string
}
