package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Transport errors.
var (
	// ErrPortClosed indicates the port or its peer has closed.
	ErrPortClosed = errors.New("port closed")
)

// DefaultPort is the conventional TCP port of a serial-to-TCP NCP bridge.
const DefaultPort = 4901

// Port is the byte transport a session drives.
type Port interface {
	// Write writes all of p.
	Write(p []byte) error

	// ReadAvailable returns the bytes already received without waiting.
	// It returns an empty slice when nothing is buffered.
	ReadAvailable() ([]byte, error)

	// ReadBlocking waits up to timeout for data and returns what arrived.
	// It returns an empty slice and a nil error when the timeout expires.
	ReadBlocking(timeout time.Duration) ([]byte, error)

	// Close closes the port.
	Close() error
}

// ConnPort adapts a net.Conn to Port. A background goroutine reads the
// connection into an internal buffer so ReadAvailable never blocks.
type ConnPort struct {
	conn net.Conn

	mu      sync.Mutex
	pending []byte
	readErr error
	notify  chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// NewConnPort wraps conn and starts its read goroutine.
func NewConnPort(conn net.Conn) *ConnPort {
	p := &ConnPort{
		conn:   conn,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go p.readLoop()
	return p
}

// DialTCP connects to a TCP bridge at address and wraps the connection.
func DialTCP(address string, timeout time.Duration) (*ConnPort, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return NewConnPort(conn), nil
}

// String describes the remote end, e.g. "tcp://10.0.0.5:4901".
func (p *ConnPort) String() string {
	addr := p.conn.RemoteAddr()
	if addr == nil {
		return "conn"
	}
	return addr.Network() + "://" + addr.String()
}

// Write writes p to the connection.
func (p *ConnPort) Write(b []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	select {
	case <-p.done:
		return ErrPortClosed
	default:
	}
	if _, err := p.conn.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ReadAvailable returns buffered bytes. Once the buffer is empty it returns
// ErrPortClosed if the connection has ended.
func (p *ConnPort) ReadAvailable() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pending) > 0 {
		out := p.pending
		p.pending = nil
		return out, nil
	}
	if p.readErr != nil {
		return nil, p.readErr
	}
	return nil, nil
}

// ReadBlocking waits up to timeout for data. A timeout of zero or less
// behaves like ReadAvailable.
func (p *ConnPort) ReadBlocking(timeout time.Duration) ([]byte, error) {
	data, err := p.ReadAvailable()
	if len(data) > 0 || err != nil || timeout <= 0 {
		return data, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-p.notify:
		case <-timer.C:
			return nil, nil
		}
		data, err := p.ReadAvailable()
		if len(data) > 0 || err != nil {
			return data, err
		}
	}
}

// Close closes the connection. It is safe to call more than once.
func (p *ConnPort) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return err
}

func (p *ConnPort) readLoop() {
	chunk := make([]byte, 4096)
	for {
		n, err := p.conn.Read(chunk)

		p.mu.Lock()
		if n > 0 {
			p.pending = append(p.pending, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				p.readErr = ErrPortClosed
			} else {
				p.readErr = fmt.Errorf("%w: %v", ErrPortClosed, err)
			}
		}
		p.mu.Unlock()

		select {
		case p.notify <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
	}
}

// NewPipe returns two connected in-memory ports. Bytes written to one are
// read from the other.
func NewPipe() (*ConnPort, *ConnPort) {
	a, b := net.Pipe()
	return NewConnPort(a), NewConnPort(b)
}

var (
	_ Port         = (*ConnPort)(nil)
	_ fmt.Stringer = (*ConnPort)(nil)
)
