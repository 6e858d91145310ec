package upload

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/svidal-nlive/karaoke-console/internal/api"
	"github.com/svidal-nlive/karaoke-console/internal/models"
)

const (
	inputEndpoint = "/input"
	formField     = "file"
)

// ErrTransferAborted marks a user-cancelled upload. An aborted transfer ends
// in failure, never reaches 100% and never triggers a refresh.
var ErrTransferAborted = errors.New("transfer aborted")

// Notifier receives the refresh signal a successful upload publishes, so the
// new file shows up in the next list fetch. Satisfied by livesync.Bus.
type Notifier interface {
	Publish()
}

// Manager performs file uploads as independent, cancellable transfers with
// observable progress. Concurrent uploads do not serialize; each call gets
// its own Transfer with its own state.
type Manager struct {
	client   *api.Client
	notifier Notifier

	mu        sync.RWMutex
	transfers map[string]*Transfer
}

// NewManager creates an upload manager. notifier may be nil.
func NewManager(client *api.Client, notifier Notifier) *Manager {
	return &Manager{
		client:    client,
		notifier:  notifier,
		transfers: make(map[string]*Transfer),
	}
}

// Start begins uploading one file and returns immediately. size may be zero
// when unknown; progress then stays at 0 until completion.
func (m *Manager) Start(ctx context.Context, filename string, body io.Reader, size int64) (*Transfer, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	t := &Transfer{
		ID:       uuid.New().String(),
		Filename: filename,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    models.TransferState{Phase: models.TransferUploading},
	}

	m.mu.Lock()
	m.transfers[t.ID] = t
	m.mu.Unlock()

	go m.run(runCtx, t, body, size)
	return t, nil
}

// Progress reports the state of a transfer by task ID.
func (m *Manager) Progress(taskID string) (models.TransferState, bool) {
	m.mu.RLock()
	t, ok := m.transfers[taskID]
	m.mu.RUnlock()
	if !ok {
		return models.TransferState{}, false
	}
	return t.State(), true
}

func (m *Manager) run(ctx context.Context, t *Transfer, body io.Reader, size int64) {
	defer t.cancel()

	reader := &progressReader{r: body, total: size, onPercent: t.setPercent}

	resp, err := m.client.Upload(ctx, inputEndpoint, formField, t.Filename, reader)
	if resp != nil {
		defer resp.Body.Close()
	}
	switch {
	case ctx.Err() != nil:
		t.finish(models.TransferFailure, ErrTransferAborted)
	case err != nil:
		t.finish(models.TransferFailure, api.NewWriteErrorFromHTTP("upload", inputEndpoint, nil, err))
	case resp.StatusCode >= 300:
		t.finish(models.TransferFailure, api.NewWriteErrorFromHTTP("upload", inputEndpoint, resp, nil))
	default:
		// 100% means the server accepted the request, not merely that all
		// bytes left the socket.
		t.setPercent(100)
		t.finish(models.TransferSuccess, nil)
		if m.notifier != nil {
			m.notifier.Publish()
		}
	}

	if err := t.Err(); err != nil && !errors.Is(err, ErrTransferAborted) {
		log.Printf("WARNING: upload %s (%s) failed: %v", t.Filename, t.ID, err)
	}
}

// Transfer is one in-flight or finished upload.
type Transfer struct {
	ID       string
	Filename string

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    models.TransferState
	err      error
	watchers []chan models.TransferState
}

// State returns the current transfer state.
func (t *Transfer) State() models.TransferState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the terminal error, nil while running or on success.
func (t *Transfer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the transfer reaches a terminal state.
func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

// Cancel aborts the transfer. Safe to call at any time; after the transfer is
// terminal it has no effect.
func (t *Transfer) Cancel() {
	t.cancel()
}

// Watch returns a channel carrying state updates. Each update supersedes the
// previous one, so slow consumers only ever see the latest state; the channel
// is closed after the terminal state is delivered.
func (t *Transfer) Watch() <-chan models.TransferState {
	ch := make(chan models.TransferState, 1)

	t.mu.Lock()
	if t.state.Terminal() {
		ch <- t.state
		close(ch)
		t.mu.Unlock()
		return ch
	}
	t.watchers = append(t.watchers, ch)
	t.mu.Unlock()
	return ch
}

// setPercent advances progress. Percent is monotonically non-decreasing and
// capped below 100 until the request has completed.
func (t *Transfer) setPercent(p int) {
	t.mu.Lock()
	if t.state.Terminal() || p <= t.state.Percent {
		t.mu.Unlock()
		return
	}
	t.state.Percent = p
	t.notifyLocked()
	t.mu.Unlock()
}

func (t *Transfer) finish(phase models.TransferPhase, err error) {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state.Phase = phase
	t.err = err
	t.notifyLocked()
	for _, ch := range t.watchers {
		close(ch)
	}
	t.watchers = nil
	t.mu.Unlock()
	close(t.done)
}

// notifyLocked pushes the current state to every watcher, replacing any
// undelivered previous update. Callers hold t.mu.
func (t *Transfer) notifyLocked() {
	for _, ch := range t.watchers {
		select {
		case ch <- t.state:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- t.state
		}
	}
}

// progressReader counts bytes handed to the transport. It reports at most 99
// percent; the final percent is owned by the response handler.
type progressReader struct {
	r         io.Reader
	total     int64
	read      int64
	onPercent func(int)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		percent := int(p.read * 100 / p.total)
		if percent > 99 {
			percent = 99
		}
		p.onPercent(percent)
	}
	return n, err
}
