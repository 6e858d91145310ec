package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/svidal-nlive/karaoke-console/internal/api"
	"github.com/svidal-nlive/karaoke-console/internal/models"
)

// resourceEndpoints maps the abstract resource names the views use onto the
// backend's actual endpoint paths. The backend's naming is inconsistent with
// the view naming ("files" lives at /status) and must not leak upward.
// Unmapped names pass through unchanged.
var resourceEndpoints = map[string]string{
	"files": "status",
}

// cachedList is the last successfully fetched full set for one resource.
type cachedList struct {
	seq       uint64
	records   []models.PipelineRecord
	fetchedAt time.Time
}

// Adapter translates list/get/create/update/remove operations into status API
// calls and keeps the last-known-good full set per resource. Overlapping
// fetches of the same resource are safe: each fetch takes a sequence number
// and only the newest response is allowed to replace the cache.
type Adapter struct {
	client *api.Client

	mu      sync.Mutex
	nextSeq map[string]uint64
	cache   map[string]cachedList
}

// NewAdapter creates a resource adapter over the given API client.
func NewAdapter(client *api.Client) *Adapter {
	return &Adapter{
		client:  client,
		nextSeq: make(map[string]uint64),
		cache:   make(map[string]cachedList),
	}
}

// Endpoint resolves an abstract resource name to its backend path.
func Endpoint(resource string) string {
	if mapped, ok := resourceEndpoints[resource]; ok {
		return mapped
	}
	return resource
}

// List fetches the full record set for a resource and applies pagination,
// sorting and filtering client-side. Total is the filtered count. On failure
// the cache keeps its previous contents and a FetchError is returned.
func (a *Adapter) List(ctx context.Context, resource string, params ListParams) (ListResult, error) {
	endpoint := "/" + Endpoint(resource)

	a.mu.Lock()
	a.nextSeq[resource]++
	seq := a.nextSeq[resource]
	a.mu.Unlock()

	resp, err := a.client.Get(ctx, endpoint, nil)
	if err != nil {
		return ListResult{}, api.NewFetchError("list "+resource, endpoint, resp, err)
	}
	if !resp.IsSuccess() {
		return ListResult{}, api.NewFetchError("list "+resource, endpoint, resp, nil)
	}

	all, err := normalizeList(resp.Body())
	if err != nil {
		return ListResult{}, api.NewFetchError("list "+resource, endpoint, resp, err)
	}

	a.mu.Lock()
	if seq >= a.cache[resource].seq {
		a.cache[resource] = cachedList{seq: seq, records: all, fetchedAt: time.Now()}
	}
	a.mu.Unlock()

	return applyParams(all, params), nil
}

// Get fetches a single record by its derived id.
func (a *Adapter) Get(ctx context.Context, resource, id string) (models.PipelineRecord, error) {
	endpoint := fmt.Sprintf("/%s/%s", Endpoint(resource), id)

	resp, err := a.client.Get(ctx, endpoint, nil)
	if err != nil {
		return models.PipelineRecord{}, api.NewFetchError("get "+resource, endpoint, resp, err)
	}
	if !resp.IsSuccess() {
		return models.PipelineRecord{}, api.NewFetchError("get "+resource, endpoint, resp, nil)
	}

	return decodeRecord(resp.Body(), id)
}

// Create posts a new item to a resource endpoint.
func (a *Adapter) Create(ctx context.Context, resource string, payload interface{}) (models.PipelineRecord, error) {
	endpoint := "/" + Endpoint(resource)

	resp, err := a.client.Post(ctx, endpoint, payload)
	if err != nil {
		return models.PipelineRecord{}, api.NewWriteError("create "+resource, endpoint, resp, err)
	}
	if !resp.IsSuccess() {
		return models.PipelineRecord{}, api.NewWriteError("create "+resource, endpoint, resp, nil)
	}

	return decodeRecord(resp.Body(), "")
}

// Update patches a record. Repeating the same update yields the same record
// barring concurrent mutation; when the backend replies without a body the
// record is re-fetched so the caller always sees the resulting state.
func (a *Adapter) Update(ctx context.Context, resource, id string, payload interface{}) (models.PipelineRecord, error) {
	endpoint := fmt.Sprintf("/%s/%s", Endpoint(resource), id)

	resp, err := a.client.Patch(ctx, endpoint, payload)
	if err != nil {
		return models.PipelineRecord{}, api.NewWriteError("update "+resource, endpoint, resp, err)
	}
	if !resp.IsSuccess() {
		return models.PipelineRecord{}, api.NewWriteError("update "+resource, endpoint, resp, nil)
	}

	if rec, err := decodeRecord(resp.Body(), id); err == nil {
		return rec, nil
	}
	return a.Get(ctx, resource, id)
}

// Remove deletes a record. The client has no authority over the record set
// beyond issuing the call; the next refresh shows the outcome.
func (a *Adapter) Remove(ctx context.Context, resource, id string) error {
	endpoint := fmt.Sprintf("/%s/%s", Endpoint(resource), id)

	resp, err := a.client.Delete(ctx, endpoint)
	if err != nil {
		return api.NewWriteError("remove "+resource, endpoint, resp, err)
	}
	if !resp.IsSuccess() {
		return api.NewWriteError("remove "+resource, endpoint, resp, nil)
	}
	return nil
}

// Cached returns the last-known-good record set for a resource and when it
// was fetched. The returned slice is a copy.
func (a *Adapter) Cached(resource string) ([]models.PipelineRecord, time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.cache[resource]
	if !ok {
		return nil, time.Time{}, false
	}
	out := make([]models.PipelineRecord, len(entry.records))
	copy(out, entry.records)
	return out, entry.fetchedAt, true
}

// CachedRecord looks up one record in the last-known-good set.
func (a *Adapter) CachedRecord(resource, id string) (models.PipelineRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.cache[resource]
	if !ok {
		return models.PipelineRecord{}, false
	}
	for _, rec := range entry.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.PipelineRecord{}, false
}

// decodeRecord normalizes a single-object response body.
func decodeRecord(body []byte, fallbackKey string) (models.PipelineRecord, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.PipelineRecord{}, fmt.Errorf("decode record payload: %w", err)
	}
	return normalizeRecord(raw, fallbackKey), nil
}
