package upload

import (
	"bytes"
	"context"
	"io"
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

type countingNotifier struct {
	n atomic.Int32
}

func (c *countingNotifier) Publish() { c.n.Add(1) }

func newTestManager(t *testing.T, handler http.Handler) (*Manager, *countingNotifier) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	notifier := &countingNotifier{}
	return NewManager(api.NewClient(server.URL, 5*time.Second), notifier), notifier
}

func acceptUpload(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, `{"error": "no file part"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()

		_, _ = io.Copy(io.Discard, file)
		assert.NotEmpty(t, header.Filename)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status": "success", "filename": "` + header.Filename + `"}`))
	})
}

// drippingReader hands out its chunk with a pause before each one, simulating
// a slow uplink.
type drippingReader struct {
	chunk  []byte
	chunks int
	pause  time.Duration
}

func (d *drippingReader) Read(buf []byte) (int, error) {
	if d.chunks == 0 {
		return 0, io.EOF
	}
	d.chunks--
	time.Sleep(d.pause)
	return copy(buf, d.chunk), nil
}

func awaitDone(t *testing.T, transfer *Transfer) {
	t.Helper()
	select {
	case <-transfer.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("transfer did not finish")
	}
}

func TestUpload(t *testing.T) {
	t.Run("Should reach success with 100 percent and publish one refresh", func(t *testing.T) {
		manager, notifier := newTestManager(t, acceptUpload(t))

		body := bytes.Repeat([]byte("x"), 64*1024)
		transfer, err := manager.Start(context.Background(), "song.mp3", bytes.NewReader(body), int64(len(body)))
		require.NoError(t, err)

		awaitDone(t, transfer)

		state := transfer.State()
		assert.Equal(t, models.TransferSuccess, state.Phase)
		assert.Equal(t, 100, state.Percent)
		assert.NoError(t, transfer.Err())
		assert.Equal(t, int32(1), notifier.n.Load())
	})

	t.Run("Should report monotonically non-decreasing progress", func(t *testing.T) {
		manager, _ := newTestManager(t, acceptUpload(t))

		body := bytes.Repeat([]byte("x"), 256*1024)
		transfer, err := manager.Start(context.Background(), "song.mp3", bytes.NewReader(body), int64(len(body)))
		require.NoError(t, err)

		last := -1
		for state := range transfer.Watch() {
			assert.GreaterOrEqual(t, state.Percent, last)
			last = state.Percent
			if state.Percent < 100 {
				assert.NotEqual(t, models.TransferSuccess, state.Phase,
					"success must coincide with 100 percent")
			}
		}
		awaitDone(t, transfer)
		assert.Equal(t, 100, transfer.State().Percent)
	})

	t.Run("Should fail on a non-success status without publishing", func(t *testing.T) {
		manager, notifier := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			http.Error(w, `{"error": "no file part"}`, http.StatusBadRequest)
		}))

		transfer, err := manager.Start(context.Background(), "song.mp3", bytes.NewReader([]byte("data")), 4)
		require.NoError(t, err)

		awaitDone(t, transfer)

		state := transfer.State()
		assert.Equal(t, models.TransferFailure, state.Phase)
		assert.Less(t, state.Percent, 100)

		var writeErr *api.WriteError
		require.ErrorAs(t, transfer.Err(), &writeErr)
		assert.Equal(t, "no file part", writeErr.Message)
		assert.Equal(t, int32(0), notifier.n.Load())
	})

	t.Run("Should abort on cancel without reaching 100 or publishing", func(t *testing.T) {
		blocked := make(chan struct{})
		manager, notifier := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-blocked
			_, _ = io.Copy(io.Discard, r.Body)
		}))
		defer close(blocked)

		// A pipe that never closes keeps the transfer in flight until the
		// cancel lands.
		pr, pw := io.Pipe()
		defer pw.Close()

		transfer, err := manager.Start(context.Background(), "song.mp3", pr, 1<<20)
		require.NoError(t, err)
		_, _ = pw.Write(bytes.Repeat([]byte("x"), 1024))

		transfer.Cancel()
		awaitDone(t, transfer)

		state := transfer.State()
		assert.Equal(t, models.TransferFailure, state.Phase)
		assert.Less(t, state.Percent, 100, "an aborted upload never reaches 100 percent")
		assert.ErrorIs(t, transfer.Err(), ErrTransferAborted)
		assert.Equal(t, int32(0), notifier.n.Load())
	})

	t.Run("Should complete transfers that outlast the request timeout", func(t *testing.T) {
		server := httptest.NewServer(acceptUpload(t))
		t.Cleanup(server.Close)

		notifier := &countingNotifier{}
		manager := NewManager(api.NewClient(server.URL, 500*time.Millisecond), notifier)

		// Feeds the body slower than the client's read timeout allows. The
		// transfer must still succeed: only a cancel ends it early.
		body := &drippingReader{chunk: bytes.Repeat([]byte("x"), 1024), chunks: 4, pause: 400 * time.Millisecond}
		transfer, err := manager.Start(context.Background(), "song.flac", body, int64(4*1024))
		require.NoError(t, err)

		awaitDone(t, transfer)

		state := transfer.State()
		assert.Equal(t, models.TransferSuccess, state.Phase)
		assert.Equal(t, 100, state.Percent)
		assert.NoError(t, transfer.Err())
		assert.Equal(t, int32(1), notifier.n.Load())
	})

	t.Run("Should keep concurrent transfers independent", func(t *testing.T) {
		manager, notifier := newTestManager(t, acceptUpload(t))

		a, err := manager.Start(context.Background(), "a.mp3", bytes.NewReader([]byte("aaaa")), 4)
		require.NoError(t, err)
		b, err := manager.Start(context.Background(), "b.mp3", bytes.NewReader([]byte("bbbb")), 4)
		require.NoError(t, err)

		awaitDone(t, a)
		awaitDone(t, b)

		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, models.TransferSuccess, a.State().Phase)
		assert.Equal(t, models.TransferSuccess, b.State().Phase)
		assert.Equal(t, int32(2), notifier.n.Load())
	})

	t.Run("Should track transfers by task id", func(t *testing.T) {
		manager, _ := newTestManager(t, acceptUpload(t))

		transfer, err := manager.Start(context.Background(), "song.mp3", bytes.NewReader([]byte("data")), 4)
		require.NoError(t, err)
		awaitDone(t, transfer)

		state, ok := manager.Progress(transfer.ID)
		require.True(t, ok)
		assert.Equal(t, models.TransferSuccess, state.Phase)

		_, ok = manager.Progress("unknown")
		assert.False(t, ok)
	})

	t.Run("Should reject invalid filenames before any network calls", func(t *testing.T) {
		var hits atomic.Int32
		manager, _ := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))

		_, err := manager.Start(context.Background(), "../evil.mp3", bytes.NewReader(nil), 0)
		require.Error(t, err)
		assert.Equal(t, int32(0), hits.Load())
	})
}
