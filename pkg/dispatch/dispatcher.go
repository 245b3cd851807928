package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/hearthlink/hearthlink/pkg/connection"
	"github.com/hearthlink/hearthlink/pkg/protocol"
)

const (
	// DefaultCommandTimeout is the per-attempt response wait
	DefaultCommandTimeout = 2 * time.Second

	// DefaultMaxAttempts is how many times a command is sent before
	// giving up with ErrCommandTimeout
	DefaultMaxAttempts = 3
)

var (
	// ErrCommandTimeout is returned when no valid response arrived
	// within any of the attempts.
	ErrCommandTimeout = errors.New("command timed out")

	// ErrCommandRejected is returned when the appliance answered with a
	// Rejected frame. Retrying an explicit rejection is pointless, so
	// the dispatcher never does.
	ErrCommandRejected = errors.New("command rejected by appliance")
)

// Config carries the dispatcher settings.
type Config struct {
	// CommandTimeout is the per-attempt response wait (default 2s)
	CommandTimeout time.Duration

	// MaxAttempts is the total number of sends per command (default 3)
	MaxAttempts int

	// Logger receives dispatch diagnostics; nil means no logging
	Logger *zap.Logger
}

// Dispatcher owns one connection and serializes all traffic on it.
type Dispatcher struct {
	conn        *connection.Connection
	timeout     time.Duration
	maxAttempts int
	log         *zap.Logger

	// slot is the single-outstanding-request permit. Waiters are FIFO,
	// so submission order is preserved.
	slot *semaphore.Weighted
}

// New creates a dispatcher for the given connection. The dispatcher
// assumes exclusive ownership: nothing else may read or write on conn.
func New(conn *connection.Connection, cfg Config) *Dispatcher {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{
		conn:        conn,
		timeout:     cfg.CommandTimeout,
		maxAttempts: cfg.MaxAttempts,
		log:         cfg.Logger,
		slot:        semaphore.NewWeighted(1),
	}
}

// Connection returns the connection this dispatcher drives.
func (d *Dispatcher) Connection() *connection.Connection {
	return d.conn
}

// Send transmits a command and blocks until a matching response or a
// final failure. Concurrent callers are served in submission order.
func (d *Dispatcher) Send(ctx context.Context, cmd protocol.Command) (*protocol.Response, error) {
	// Validate and encode before queueing: an out-of-range value must
	// fail with zero network writes and without taking the slot.
	frame, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}
	want, ok := protocol.ExpectedResponse(cmd.ID)
	if !ok {
		return nil, fmt.Errorf("%w: no response defined for %s", protocol.ErrInvalidCommand, cmd.ID)
	}

	if err := d.slot.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer d.slot.Release(1)

	if err := d.conn.EnsureConnected(ctx); err != nil {
		return nil, err
	}

	reconnected := false
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		resp, err := d.exchange(frame, want)
		if err == nil {
			return resp, nil
		}

		switch {
		case errors.Is(err, ErrCommandRejected):
			return nil, err

		case errors.Is(err, connection.ErrClosed):
			// Explicit close cancels the in-flight wait
			return nil, err

		case isTimeout(err) || errors.Is(err, protocol.ErrMalformedFrame):
			// Unusable data and silence look the same: re-send the
			// identical frame on the next attempt.
			d.log.Debug("attempt failed, retrying",
				zap.String("command", cmd.ID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))

		default:
			// Transport-level I/O error: one reconnect, one re-send
			if reconnected {
				d.conn.MarkFailed(err)
				return nil, fmt.Errorf("transport failed after reconnect: %w", err)
			}
			d.conn.MarkFailed(err)
			d.log.Warn("transport error, reconnecting",
				zap.String("command", cmd.ID.String()), zap.Error(err))
			if rerr := d.conn.Reconnect(ctx); rerr != nil {
				return nil, fmt.Errorf("reconnect failed: %w", rerr)
			}
			reconnected = true
			attempt-- // the reconnect re-send does not consume an attempt
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts", ErrCommandTimeout, cmd.ID, d.maxAttempts)
}

// exchange performs one send and waits for the matching response within
// the per-attempt deadline. Stray, well-formed replies with the wrong ID
// are discarded without restarting the deadline.
func (d *Dispatcher) exchange(frame []byte, want protocol.ResponseID) (*protocol.Response, error) {
	if err := d.conn.Send(frame); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(d.timeout)
	buf := make([]byte, 64)

	for {
		n, err := d.conn.Receive(buf, deadline)
		if err != nil {
			return nil, err
		}

		resp, err := protocol.ParseResponse(buf[:n])
		if err != nil {
			return nil, err
		}

		if resp.ID == protocol.RespRejected {
			return nil, fmt.Errorf("%w: reason 0x%02x", ErrCommandRejected, resp.RejectReason)
		}
		if resp.ID != want {
			d.log.Debug("discarding stray response",
				zap.String("got", resp.ID.String()),
				zap.String("want", want.String()))
			continue
		}
		return resp, nil
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
