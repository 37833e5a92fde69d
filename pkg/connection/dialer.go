package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bgapi-protocol/bgapi-go/pkg/session"
	"github.com/bgapi-protocol/bgapi-go/pkg/transport"
)

// Connection errors.
var (
	ErrNoAddress    = errors.New("no bridge address")
	ErrGaveUp       = errors.New("reconnect attempts exhausted")
	ErrDialerClosed = errors.New("dialer closed")
	ErrNotConnected = errors.New("not connected")
)

// State is the dialer state.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ResolveFunc returns the address to dial, for example from mDNS.
type ResolveFunc func(ctx context.Context) (string, error)

// DialFunc opens a port to address.
type DialFunc func(ctx context.Context, address string) (transport.Port, error)

// DialerConfig configures a Dialer.
type DialerConfig struct {
	// Address of the bridge. Ignored when Resolve is set.
	Address string

	// Resolve is called before every attempt (optional).
	Resolve ResolveFunc

	// Dial opens the port. Default: TCP with DialTimeout.
	Dial DialFunc

	// DialTimeout bounds one TCP connect. Default: 5s.
	DialTimeout time.Duration

	Backoff BackoffConfig

	// MaxAttempts is the number of attempts per Connect (0 = unlimited).
	MaxAttempts int

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// OnStateChange is called on every state transition (optional).
	OnStateChange func(old, new State)
}

// Dialer opens bridge connections with retry.
type Dialer struct {
	config  DialerConfig
	backoff *Backoff

	mu    sync.Mutex
	state State
	port  transport.Port
}

// NewDialer creates a dialer.
func NewDialer(config DialerConfig) *Dialer {
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}
	d := &Dialer{
		config:  config,
		backoff: NewBackoffWithConfig(config.Backoff),
	}
	if d.config.Dial == nil {
		d.config.Dial = d.dialTCP
	}
	return d
}

// State returns the current state.
func (d *Dialer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Port returns the current port, or nil when not connected.
func (d *Dialer) Port() transport.Port {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.port
}

// Connect dials until it succeeds, ctx is done or MaxAttempts is reached.
func (d *Dialer) Connect(ctx context.Context) (transport.Port, error) {
	if d.State() == StateClosed {
		return nil, ErrDialerClosed
	}
	d.setState(StateConnecting)
	port, err := d.dialWithRetry(ctx)
	if err != nil {
		d.setState(StateDisconnected)
		return nil, err
	}
	d.attached(port)
	return port, nil
}

// Reconnect closes the current port, dials a new one and attaches it to s.
func (d *Dialer) Reconnect(ctx context.Context, s *session.Session) error {
	if d.State() == StateClosed {
		return ErrDialerClosed
	}
	d.mu.Lock()
	old := d.port
	d.port = nil
	d.mu.Unlock()
	if old != nil {
		old.Close()
	}

	d.setState(StateReconnecting)
	port, err := d.dialWithRetry(ctx)
	if err != nil {
		d.setState(StateDisconnected)
		return err
	}
	if err := s.Attach(port); err != nil {
		port.Close()
		d.setState(StateDisconnected)
		return err
	}
	d.attached(port)
	return nil
}

// Close closes the current port. The dialer cannot be used afterwards.
func (d *Dialer) Close() error {
	d.mu.Lock()
	port := d.port
	d.port = nil
	d.mu.Unlock()

	d.setState(StateClosed)
	if port != nil {
		return port.Close()
	}
	return nil
}

func (d *Dialer) attached(port transport.Port) {
	d.mu.Lock()
	d.port = port
	d.mu.Unlock()
	d.backoff.Reset()
	d.setState(StateConnected)
}

func (d *Dialer) dialWithRetry(ctx context.Context) (transport.Port, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		port, err := d.attempt(ctx)
		if err == nil {
			return port, nil
		}
		lastErr = err
		d.debugLog("dial failed", "attempt", attempt, "error", err)

		if d.config.MaxAttempts > 0 && attempt >= d.config.MaxAttempts {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, attempt, lastErr)
		}

		delay := d.backoff.Next()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (d *Dialer) attempt(ctx context.Context) (transport.Port, error) {
	address := d.config.Address
	if d.config.Resolve != nil {
		var err error
		if address, err = d.config.Resolve(ctx); err != nil {
			return nil, fmt.Errorf("resolve: %w", err)
		}
	}
	if address == "" {
		return nil, ErrNoAddress
	}
	return d.config.Dial(ctx, address)
}

func (d *Dialer) dialTCP(ctx context.Context, address string) (transport.Port, error) {
	nd := net.Dialer{Timeout: d.config.DialTimeout}
	conn, err := nd.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return transport.NewConnPort(conn), nil
}

func (d *Dialer) setState(s State) {
	d.mu.Lock()
	old := d.state
	if old == StateClosed && s != StateClosed {
		d.mu.Unlock()
		return
	}
	d.state = s
	fn := d.config.OnStateChange
	d.mu.Unlock()

	if old != s && fn != nil {
		fn(old, s)
	}
}

// debugLog logs a debug message if logging is enabled.
func (d *Dialer) debugLog(msg string, args ...any) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, args...)
	}
}
