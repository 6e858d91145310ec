package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/svidal-nlive/karaoke-console/internal/api"
	"github.com/svidal-nlive/karaoke-console/internal/models"
	"github.com/svidal-nlive/karaoke-console/internal/services/records"
)

const retryEndpoint = "/retry"

// ErrInvalidState is returned when an action is attempted against a record
// that is not in the required state. The dispatcher rejects these itself, even
// though the surface should make them unreachable, and no network call is
// issued.
var ErrInvalidState = errors.New("record is not in a retryable state")

// ErrRetryPending is returned when a retry is already in flight for the same
// record.
var ErrRetryPending = errors.New("retry already in flight")

// Notifier receives the refresh signal a successful action publishes.
// Satisfied by livesync.Bus.
type Notifier interface {
	Publish()
}

// Dispatcher issues out-of-band actions against specific records. It never
// mutates record state locally: the outcome of an action is always re-derived
// from the next refresh. The one allowed exception is Pending, which lets the
// surface disable the retry control while the call is in flight.
type Dispatcher struct {
	client   *api.Client
	adapter  *records.Adapter
	notifier Notifier

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewDispatcher creates an action dispatcher. notifier may be nil.
func NewDispatcher(client *api.Client, adapter *records.Adapter, notifier Notifier) *Dispatcher {
	return &Dispatcher{
		client:   client,
		adapter:  adapter,
		notifier: notifier,
		inflight: make(map[string]struct{}),
	}
}

// Pending reports whether a retry is currently in flight for the record.
func (d *Dispatcher) Pending(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[id]
	return ok
}

// Retry asks the backend to reprocess a failed file. The record must be in
// error state as of the last fetch; otherwise ErrInvalidState is returned
// without touching the network. Success publishes one refresh signal and
// nothing else: the status shown to the user does not change until the next
// fetch confirms it.
func (d *Dispatcher) Retry(ctx context.Context, id string) error {
	rec, err := d.currentRecord(ctx, id)
	if err != nil {
		return err
	}
	if !rec.Status.Retryable() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, rec.Status)
	}

	d.mu.Lock()
	if _, busy := d.inflight[id]; busy {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRetryPending, id)
	}
	d.inflight[id] = struct{}{}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.inflight, id)
		d.mu.Unlock()
	}()

	payload := map[string]string{"filename": rec.Filename}
	resp, err := d.client.Post(ctx, retryEndpoint, payload)
	if err != nil {
		return api.NewWriteError("retry", retryEndpoint, resp, err)
	}
	if !resp.IsSuccess() {
		return api.NewWriteError("retry", retryEndpoint, resp, nil)
	}

	if d.notifier != nil {
		d.notifier.Publish()
	}
	return nil
}

// currentRecord resolves the record the action targets, preferring the
// adapter's last-known-good cache (what the user is looking at) and falling
// back to a direct fetch.
func (d *Dispatcher) currentRecord(ctx context.Context, id string) (models.PipelineRecord, error) {
	if rec, ok := d.adapter.CachedRecord("files", id); ok {
		return rec, nil
	}
	if rec, ok := d.adapter.CachedRecord("error-files", id); ok {
		return rec, nil
	}
	return d.adapter.Get(ctx, "files", id)
}
