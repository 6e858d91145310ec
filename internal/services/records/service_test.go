package records

import (
	"context"
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

func newTestAdapter(t *testing.T, handler http.Handler) (*Adapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAdapter(api.NewClient(server.URL, 5*time.Second)), server
}

func TestAdapterList(t *testing.T) {
	t.Run("Should map the files resource onto the status endpoint", func(t *testing.T) {
		var gotPath atomic.Value
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath.Store(r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"filename": "a.mp3", "status": "queued"}]`))
		}))

		result, err := adapter.List(context.Background(), "files", ListParams{})
		require.NoError(t, err)

		assert.Equal(t, "/status", gotPath.Load())
		require.Len(t, result.Items, 1)
		assert.Equal(t, "a.mp3", result.Items[0].ID)
	})

	t.Run("Should pass unmapped resource names through", func(t *testing.T) {
		var gotPath atomic.Value
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath.Store(r.URL.Path)
			_, _ = w.Write([]byte(`[]`))
		}))

		_, err := adapter.List(context.Background(), "error-files", ListParams{})
		require.NoError(t, err)
		assert.Equal(t, "/error-files", gotPath.Load())
	})

	t.Run("Should keep last-known-good data when a fetch fails", func(t *testing.T) {
		var fail atomic.Bool
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fail.Load() {
				http.Error(w, `{"error": "backend down"}`, http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`[{"filename": "a.mp3", "status": "queued"}]`))
		}))

		_, err := adapter.List(context.Background(), "files", ListParams{})
		require.NoError(t, err)

		fail.Store(true)
		_, err = adapter.List(context.Background(), "files", ListParams{})
		require.Error(t, err)

		var fetchErr *api.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
		assert.Equal(t, "backend down", fetchErr.Message)

		cached, _, ok := adapter.Cached("files")
		require.True(t, ok, "failed fetch must not clear the cache")
		require.Len(t, cached, 1)
		assert.Equal(t, "a.mp3", cached[0].ID)
	})

	t.Run("Should derive identical ids across repeated fetches", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"b.mp3": {"status": "split"}, "a.mp3": {"status": "queued"}}`))
		}))

		first, err := adapter.List(context.Background(), "files", ListParams{})
		require.NoError(t, err)
		second, err := adapter.List(context.Background(), "files", ListParams{})
		require.NoError(t, err)

		assert.Equal(t, first.Items, second.Items)
	})
}

func TestAdapterGet(t *testing.T) {
	t.Run("Should fetch and normalize one record", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/status/a.mp3", r.URL.Path)
			_, _ = w.Write([]byte(`{"filename": "a.mp3", "status": "error", "last_error": "decode failed"}`))
		}))

		rec, err := adapter.Get(context.Background(), "files", "a.mp3")
		require.NoError(t, err)

		assert.Equal(t, "a.mp3", rec.ID)
		assert.Equal(t, models.StatusError, rec.Status)
		assert.Equal(t, "decode failed", rec.LastError)
	})

	t.Run("Should surface a typed error for missing records", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
		}))

		_, err := adapter.Get(context.Background(), "files", "missing.mp3")
		var fetchErr *api.FetchError
		require.ErrorAs(t, err, &fetchErr)
	})
}

func TestAdapterUpdate(t *testing.T) {
	t.Run("Should patch and return the resulting record", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			_, _ = w.Write([]byte(`{"filename": "a.mp3", "status": "queued"}`))
		}))

		rec, err := adapter.Update(context.Background(), "files", "a.mp3", map[string]string{"status": "queued"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusQueued, rec.Status)
	})

	t.Run("Should re-fetch when the backend replies without a record body", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPatch {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			_, _ = w.Write([]byte(`{"filename": "a.mp3", "status": "queued"}`))
		}))

		rec, err := adapter.Update(context.Background(), "files", "a.mp3", map[string]string{"status": "queued"})
		require.NoError(t, err)
		assert.Equal(t, "a.mp3", rec.ID)
	})

	t.Run("Should surface write failures without touching state", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": "no"}`, http.StatusBadRequest)
		}))

		_, err := adapter.Update(context.Background(), "files", "a.mp3", nil)
		var writeErr *api.WriteError
		require.ErrorAs(t, err, &writeErr)
		assert.Equal(t, "no", writeErr.Message)
	})
}

func TestAdapterConcurrentFetches(t *testing.T) {
	t.Run("Should let the newest response win the cache", func(t *testing.T) {
		release := make(chan struct{})
		var calls atomic.Int32
		adapter, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				// First request parks until the second has completed.
				<-release
				_, _ = w.Write([]byte(`[{"filename": "old.mp3", "status": "queued"}]`))
				return
			}
			_, _ = w.Write([]byte(`[{"filename": "new.mp3", "status": "queued"}]`))
		}))

		firstDone := make(chan struct{})
		go func() {
			defer close(firstDone)
			_, _ = adapter.List(context.Background(), "files", ListParams{})
		}()

		// Make sure the slow fetch has taken its sequence number first.
		require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

		_, err := adapter.List(context.Background(), "files", ListParams{})
		require.NoError(t, err)

		close(release)
		<-firstDone

		cached, _, ok := adapter.Cached("files")
		require.True(t, ok)
		require.Len(t, cached, 1)
		assert.Equal(t, "new.mp3", cached[0].ID, "a stale response must not overwrite a newer one")
	})
}
