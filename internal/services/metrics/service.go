package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/svidal-nlive/karaoke-console/internal/api"
	"github.com/svidal-nlive/karaoke-console/internal/models"
)

const healthEndpoint = "/pipeline-health"

// Aggregator fetches and holds the current per-stage file counts as a single
// wholesale-replaced snapshot. Metrics are advisory: a failed fetch keeps the
// last-known snapshot, flagged stale, and the error is informational only.
type Aggregator struct {
	client *api.Client

	mu   sync.Mutex
	last models.MetricsSnapshot
}

// NewAggregator creates a metrics aggregator over the given API client.
func NewAggregator(client *api.Client) *Aggregator {
	return &Aggregator{client: client}
}

// FetchSnapshot refreshes the snapshot from /pipeline-health. On failure it
// returns the previous snapshot with Stale set; callers may ignore the error.
func (a *Aggregator) FetchSnapshot(ctx context.Context) (models.MetricsSnapshot, error) {
	resp, err := a.client.Get(ctx, healthEndpoint, nil)
	if err != nil {
		return a.markStale(), api.NewFetchError("metrics", healthEndpoint, resp, err)
	}
	if !resp.IsSuccess() {
		return a.markStale(), api.NewFetchError("metrics", healthEndpoint, resp, nil)
	}

	snapshot, err := parseSnapshot(resp.Body())
	if err != nil {
		return a.markStale(), api.NewFetchError("metrics", healthEndpoint, resp, err)
	}

	a.mu.Lock()
	a.last = snapshot
	a.mu.Unlock()
	return snapshot, nil
}

// Snapshot returns the last-known snapshot without fetching.
func (a *Aggregator) Snapshot() models.MetricsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *Aggregator) markStale() models.MetricsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last.Stale = true
	return a.last
}

// parseSnapshot keeps only known stage keys carrying non-negative integer
// counts. The backend mixes other fields into the same document (an overall
// "status" string, uptime counters), which must not show up as stages.
func parseSnapshot(body []byte) (models.MetricsSnapshot, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("decode pipeline health: %w", err)
	}

	counts := make(map[models.Status]int)
	for key, value := range raw {
		num, ok := value.(float64)
		if !ok || num != float64(int(num)) || num < 0 {
			continue
		}
		status := models.NormalizeStatus(key)
		if !status.Known() {
			continue
		}
		counts[status] = int(num)
	}

	return models.MetricsSnapshot{Counts: counts, FetchedAt: time.Now()}, nil
}
