package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/svidal-nlive/karaoke-console/internal/api"
	"github.com/svidal-nlive/karaoke-console/internal/models"
)

const settingsEndpoint = "/settings"

// ErrUnsupported is returned when the backend version does not implement the
// settings endpoint. Settings persistence is best-effort across backend
// versions; no durability beyond "last POST wins" is assumed.
var ErrUnsupported = errors.New("settings endpoint not available on this backend")

// Store holds the client's single copy of the pipeline settings. It is owned
// by the composition root and passed to consumers; the cached copy is only
// ever replaced wholesale, on fetch or on successful save.
type Store struct {
	client *api.Client

	mu      sync.Mutex
	current models.PipelineSettings
	loaded  bool
}

// NewStore creates a settings store over the given API client.
func NewStore(client *api.Client) *Store {
	return &Store{client: client}
}

// Get fetches the settings, replacing the cached copy.
func (s *Store) Get(ctx context.Context) (models.PipelineSettings, error) {
	resp, err := s.client.Get(ctx, settingsEndpoint, nil)
	if err != nil {
		return s.cached(), api.NewFetchError("settings", settingsEndpoint, resp, err)
	}
	if unsupported(resp.StatusCode()) {
		return s.cached(), ErrUnsupported
	}
	if !resp.IsSuccess() {
		return s.cached(), api.NewFetchError("settings", settingsEndpoint, resp, nil)
	}

	var got models.PipelineSettings
	if err := json.Unmarshal(resp.Body(), &got); err != nil {
		return s.cached(), api.NewFetchError("settings", settingsEndpoint, resp, err)
	}

	s.mu.Lock()
	s.current = got
	s.loaded = true
	s.mu.Unlock()
	return got, nil
}

// Save validates and posts new settings. On success the cached copy is
// overwritten wholesale; on any failure it is left untouched.
func (s *Store) Save(ctx context.Context, next models.PipelineSettings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	resp, err := s.client.Post(ctx, settingsEndpoint, next)
	if err != nil {
		return api.NewWriteError("save settings", settingsEndpoint, resp, err)
	}
	if unsupported(resp.StatusCode()) {
		return ErrUnsupported
	}
	if !resp.IsSuccess() {
		return api.NewWriteError("save settings", settingsEndpoint, resp, nil)
	}

	s.mu.Lock()
	s.current = next
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Cached returns the last successfully fetched or saved settings.
func (s *Store) Cached() (models.PipelineSettings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.loaded
}

func (s *Store) cached() models.PipelineSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func unsupported(status int) bool {
	return status == http.StatusNotFound || status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented
}
