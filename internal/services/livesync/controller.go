package livesync

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/svidal-nlive/karaoke-console/internal/api"
)

const streamEndpoint = "/stream"

// ErrStreamDisconnected marks loss of the push subscription. The client keeps
// serving last-known-good data while the controller reconnects.
var ErrStreamDisconnected = errors.New("real-time feed disconnected")

// State is the live sync connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDegraded     State = "degraded"
	StateReconnecting State = "reconnecting"
)

// knownEvents are the stream event names that signal a pipeline change. The
// specific type carries no extra meaning for the client: any of them triggers
// the same full refetch, so per-type handling would only invite divergence.
var knownEvents = map[string]struct{}{
	"stream:queued":    {},
	"stream:metadata":  {},
	"stream:split":     {},
	"stream:packaged":  {},
	"stream:organized": {},
	"stream:error":     {},
}

// Controller owns the one persistent /stream subscription and demultiplexes
// its named events into Bus signals. On transport failure it degrades while
// retrying with capped exponential backoff. Teardown is deterministic: once
// the context given to Run is cancelled, no further signals are published.
type Controller struct {
	client  *api.Client
	bus     *Bus
	onState func(State)

	mu    sync.Mutex
	state State

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewController creates a live sync controller publishing into bus. onState
// is invoked on every state transition (may be nil); it is the hook the
// surface uses for the "real-time feed disconnected" indicator.
func NewController(client *api.Client, bus *Bus, onState func(State)) *Controller {
	return &Controller{
		client:         client,
		bus:            bus,
		onState:        onState,
		state:          StateDisconnected,
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
	}
}

// State returns the current connection state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	if c.onState != nil {
		c.onState(s)
	}
}

// Run blocks, maintaining the subscription until ctx is cancelled. It only
// returns the context's error; transport failures are absorbed into the
// degraded/reconnecting cycle.
func (c *Controller) Run(ctx context.Context) error {
	defer c.setState(StateDisconnected)

	backoff := c.initialBackoff
	first := true

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if first {
			c.setState(StateConnecting)
		} else {
			c.setState(StateReconnecting)
		}

		connected, err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if connected {
			// The subscription was established, so the failure is fresh;
			// start the backoff ladder over.
			backoff = c.initialBackoff
		}
		if err != nil {
			log.Printf("WARNING: %v: %v (retrying in %s)", ErrStreamDisconnected, err, backoff)
		}
		c.setState(StateDegraded)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
		first = false
	}
}

// consume opens the stream and publishes one signal per known event until the
// connection fails or ctx is cancelled. The bool reports whether the
// subscription was established at all.
func (c *Controller) consume(ctx context.Context) (bool, error) {
	resp, err := c.client.Stream(ctx, streamEndpoint)
	if err != nil {
		return false, err
	}
	body := resp.RawBody()
	if body == nil {
		return false, fmt.Errorf("stream returned no body")
	}
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return false, fmt.Errorf("stream returned http %d", resp.StatusCode())
	}

	c.setState(StateConnected)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	event := ""
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case line == "":
			// Event boundary. The event's arrival is the whole payload;
			// data lines are not inspected.
			if _, known := knownEvents[event]; known && ctx.Err() == nil {
				c.bus.Publish()
			}
			event = ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, ":"):
			// Comment / keep-alive.
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return true, err
	}
	return true, nil
}
