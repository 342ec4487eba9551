package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/makerhub/makerhub/internal/api"
)

// DefaultPacingInterval is how long the consumer pauses after delivering an
// output-action response, so humans watching a live console can see one
// action's effect before the next arrives.
const DefaultPacingInterval = 1500 * time.Millisecond

// ErrAlreadyDraining is returned when a second consumer tries to run while
// one is already draining the queue.
var ErrAlreadyDraining = errors.New("dispatcher is already being drained")

// Envelope pairs a response payload with exactly one destination connection.
type Envelope struct {
	Response     api.Response
	ConnectionID string
}

// SendFunc delivers a serialized response to a connection. Delivery failures
// are the callback's concern; the dispatcher logs and moves on (at-least-once,
// best-effort).
type SendFunc func(ctx context.Context, connectionID string, payload []byte) error

// Dispatcher is a multi-producer, single-consumer FIFO queue of response
// envelopes. Enqueue never blocks; Run serializes and forwards envelopes in
// arrival order, pacing after output actions.
type Dispatcher struct {
	send   SendFunc
	pacing time.Duration

	mu       sync.Mutex
	items    []Envelope
	draining bool

	signal chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPacingInterval overrides the pause applied after output-action
// responses. This is the single override point for the documented default.
func WithPacingInterval(d time.Duration) Option {
	return func(q *Dispatcher) { q.pacing = d }
}

// New creates a dispatcher that delivers through the given send callback.
func New(send SendFunc, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		send:   send,
		pacing: DefaultPacingInterval,
		signal: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue appends an envelope to the queue. It is safe to call from multiple
// goroutines and preserves arrival order among all producers combined.
func (d *Dispatcher) Enqueue(env Envelope) {
	d.mu.Lock()
	d.items = append(d.items, env)
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// Count reports the approximate number of undelivered envelopes. It races
// with the consumer and is only useful for "is anything still pending"
// polling by a caller that owns the producer side.
func (d *Dispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

func (d *Dispatcher) pop() (Envelope, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return Envelope{}, false
	}
	env := d.items[0]
	d.items = d.items[1:]
	return env, true
}

// Run is the sole consumer loop. It dequeues, serializes and forwards
// envelopes until ctx is cancelled, suspending while the queue is empty.
// Cancellation stops dequeuing without flushing: envelopes still queued are
// simply not delivered. Only one Run may drain at a time, so overlapping
// calls cannot tear responses out of order.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return ErrAlreadyDraining
	}
	d.draining = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.draining = false
		d.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		env, ok := d.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.signal:
			}
			continue
		}

		payload, err := api.EncodeResponse(env.Response)
		if err != nil {
			slog.Error("Failed to encode response", "response_type", env.Response.ResponseType(), "error", err)
			continue
		}

		slog.Debug("Dispatching response",
			"response_type", env.Response.ResponseType(),
			"connection_id", env.ConnectionID,
		)
		if err := d.send(ctx, env.ConnectionID, payload); err != nil {
			slog.Error("Failed to send response",
				"connection_id", env.ConnectionID,
				"response_type", env.Response.ResponseType(),
				"error", err,
			)
		}

		// Always pause after an output action so users can watch results
		// arrive in real time.
		if env.Response.ResponseType() == api.ResponseTypeOutputAction {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.pacing):
			}
		}
	}
}
