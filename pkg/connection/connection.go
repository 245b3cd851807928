package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hearthlink/hearthlink/internal/logging"
)

// DefaultConnectTimeout bounds how long establishing the transport may
// take before Connect fails.
const DefaultConnectTimeout = 5 * time.Second

var (
	// ErrNotConnected is returned for I/O attempted while the transport
	// is down and could not be brought back up.
	ErrNotConnected = errors.New("not connected")

	// ErrClosed is returned after an explicit Close; a closed connection
	// is never reconnected.
	ErrClosed = errors.New("connection closed")
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Config carries the connection settings.
type Config struct {
	// ConnectTimeout bounds transport establishment (default 5s)
	ConnectTimeout time.Duration

	// Logger receives connection events; nil means no logging
	Logger *zap.Logger
}

// Connection is the UDP transport to one appliance.
type Connection struct {
	addr           *net.UDPAddr
	connectTimeout time.Duration
	log            *zap.Logger

	mu     sync.Mutex
	conn   *net.UDPConn
	state  State
	closed bool
}

// New creates a connection to the appliance at addr. The transport is
// not established until Connect is called.
func New(addr *net.UDPAddr, cfg Config) *Connection {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Connection{
		addr:           addr,
		connectTimeout: cfg.ConnectTimeout,
		log:            cfg.Logger,
		state:          StateDisconnected,
	}
}

// Addr returns the appliance address this connection targets.
func (c *Connection) Addr() *net.UDPAddr {
	return c.addr
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Connect establishes the transport. Calling Connect on an already
// connected connection is a no-op.
func (c *Connection) Connect(ctx context.Context) error {
	return c.dial(ctx, StateConnecting)
}

// Reconnect tears down the current transport and establishes a fresh
// one. Used by the dispatcher after a transport-level I/O failure.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	return c.dial(ctx, StateReconnecting)
}

// EnsureConnected brings the transport up if a prior transient failure
// left it down: at most one reconnect attempt is made before the error
// is propagated. A healthy connection returns immediately.
func (c *Connection) EnsureConnected(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateConnected && c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return c.dial(ctx, StateReconnecting)
}

func (c *Connection) dial(ctx context.Context, via State) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateConnected && c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.state = via
	c.mu.Unlock()

	dialer := net.Dialer{Timeout: c.connectTimeout}
	netConn, err := dialer.DialContext(ctx, "udp4", c.addr.String())

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		if netConn != nil {
			netConn.Close()
		}
		return ErrClosed
	}
	if err != nil {
		c.state = StateDisconnected
		c.log.Warn("failed to establish transport",
			zap.String("addr", c.addr.String()), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	c.conn = netConn.(*net.UDPConn)
	c.state = StateConnected
	c.log.Info("transport established",
		zap.String("addr", c.addr.String()),
		zap.String("via", via.String()))
	return nil
}

// MarkFailed records a transport-level failure: the socket is dropped
// and the state moves to Disconnected so the next EnsureConnected
// attempts a reconnect. Explicitly closed connections are unaffected.
func (c *Connection) MarkFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
	c.log.Warn("transport failed", zap.String("addr", c.addr.String()), zap.Error(err))
}

// Close releases the transport. Safe to call from any state, any number
// of times. An in-flight Receive unblocks immediately.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.state = StateDisconnected
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.log.Info("connection closed", zap.String("addr", c.addr.String()))
	return nil
}

// Send writes one frame to the appliance.
func (c *Connection) Send(frame []byte) error {
	conn, err := c.socket()
	if err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	logging.LogFrame("frame sent", c.addr.String(), frame)
	return nil
}

// Receive reads one datagram into buf, waiting no longer than deadline.
// The read is not serialized against Close on purpose: closing the
// socket is how an in-flight wait gets cancelled.
func (c *Connection) Receive(buf []byte, deadline time.Time) (int, error) {
	conn, err := c.socket()
	if err != nil {
		return 0, err
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, fmt.Errorf("failed to set read deadline: %w", err)
	}
	n, err := conn.Read(buf)
	if err != nil {
		if c.Closed() {
			return 0, ErrClosed
		}
		return 0, err
	}
	logging.LogFrame("frame received", c.addr.String(), buf[:n])
	return n, nil
}

func (c *Connection) socket() (*net.UDPConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil || c.state != StateConnected {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}
