package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svidal-nlive/karaoke-console/internal/api"
	"github.com/svidal-nlive/karaoke-console/internal/models"
)

type settingsBackend struct {
	server   *httptest.Server
	status   atomic.Int32
	postHits atomic.Int32
	stored   atomic.Value // models.PipelineSettings
}

func newSettingsBackend(t *testing.T) *settingsBackend {
	t.Helper()
	b := &settingsBackend{}
	b.status.Store(http.StatusOK)
	b.stored.Store(models.PipelineSettings{ChunkLengthMs: 30000, StemType: models.StemAccompaniment})
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := int(b.status.Load()); code != http.StatusOK {
			http.Error(w, `{"error": "unavailable"}`, code)
			return
		}
		switch r.Method {
		case http.MethodPost:
			b.postHits.Add(1)
			var next models.PipelineSettings
			if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
				http.Error(w, `{"error": "bad payload"}`, http.StatusBadRequest)
				return
			}
			b.stored.Store(next)
			_, _ = w.Write([]byte(`{"message": "ok"}`))
		default:
			_ = json.NewEncoder(w).Encode(b.stored.Load())
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

func newTestStore(t *testing.T) (*Store, *settingsBackend) {
	t.Helper()
	backend := newSettingsBackend(t)
	return NewStore(api.NewClient(backend.server.URL, 5*time.Second)), backend
}

func TestStoreGet(t *testing.T) {
	t.Run("Should fetch and cache the current settings", func(t *testing.T) {
		store, _ := newTestStore(t)

		got, err := store.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 30000, got.ChunkLengthMs)
		assert.Equal(t, models.StemAccompaniment, got.StemType)

		cached, ok := store.Cached()
		assert.True(t, ok)
		assert.Equal(t, got, cached)
	})

	t.Run("Should report ErrUnsupported on backends without the endpoint", func(t *testing.T) {
		store, backend := newTestStore(t)
		backend.status.Store(http.StatusNotFound)

		_, err := store.Get(context.Background())
		assert.ErrorIs(t, err, ErrUnsupported)

		_, ok := store.Cached()
		assert.False(t, ok)
	})

	t.Run("Should keep the cached copy across a failed refresh", func(t *testing.T) {
		store, backend := newTestStore(t)

		_, err := store.Get(context.Background())
		require.NoError(t, err)

		backend.status.Store(http.StatusBadGateway)
		got, err := store.Get(context.Background())
		var fetchErr *api.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, 30000, got.ChunkLengthMs, "stale value is still served")

		cached, ok := store.Cached()
		assert.True(t, ok)
		assert.Equal(t, 30000, cached.ChunkLengthMs)
	})
}

func TestStoreSave(t *testing.T) {
	t.Run("Should replace the cached copy wholesale on success", func(t *testing.T) {
		store, backend := newTestStore(t)

		next := models.PipelineSettings{ChunkLengthMs: 45000, StemType: models.StemBoth}
		require.NoError(t, store.Save(context.Background(), next))

		cached, ok := store.Cached()
		require.True(t, ok)
		assert.Equal(t, next, cached)
		assert.Equal(t, next, backend.stored.Load())
	})

	t.Run("Should reject invalid settings before touching the network", func(t *testing.T) {
		store, backend := newTestStore(t)

		err := store.Save(context.Background(), models.PipelineSettings{ChunkLengthMs: 500, StemType: models.StemVocals})
		assert.ErrorContains(t, err, "chunkLengthMs")

		err = store.Save(context.Background(), models.PipelineSettings{ChunkLengthMs: 30000, StemType: "drums"})
		assert.ErrorContains(t, err, "stemType")

		assert.Equal(t, int32(0), backend.postHits.Load())
	})

	t.Run("Should leave the cache untouched on failure", func(t *testing.T) {
		store, backend := newTestStore(t)

		_, err := store.Get(context.Background())
		require.NoError(t, err)

		backend.status.Store(http.StatusInternalServerError)
		err = store.Save(context.Background(), models.PipelineSettings{ChunkLengthMs: 60000, StemType: models.StemVocals})
		var writeErr *api.WriteError
		require.ErrorAs(t, err, &writeErr)

		cached, ok := store.Cached()
		require.True(t, ok)
		assert.Equal(t, 30000, cached.ChunkLengthMs)
		assert.Equal(t, models.StemAccompaniment, cached.StemType)
	})
}
