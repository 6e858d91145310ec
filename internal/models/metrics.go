package models

import "time"

// MetricsSnapshot is a point-in-time copy of per-stage file counts from
// /pipeline-health. Snapshots are replaced wholesale, never merged: a partial
// merge would imply zero counts for stages the response did not mention.
type MetricsSnapshot struct {
	Counts    map[Status]int `json:"counts"`
	Stale     bool           `json:"stale"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Count returns the count for a stage, zero when absent.
func (m MetricsSnapshot) Count(s Status) int {
	return m.Counts[s]
}
