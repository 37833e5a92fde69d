package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bgapi-protocol/bgapi-go/pkg/log"
	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

const (
	acceptRetryMin = 5 * time.Millisecond
	acceptRetryMax = time.Second
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on (e.g., ":4901" or "127.0.0.1:0").
	Address string

	// LengthMode used to reassemble incoming frames.
	LengthMode wire.LengthMode

	// Logger for protocol capture (optional).
	Logger log.Logger

	// OnConnect is called when a new connection is established.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called when a connection is closed.
	OnDisconnect func(conn *ServerConn)

	// OnFrame is called for every frame a client sends.
	OnFrame func(conn *ServerConn, frame wire.Frame)

	// OnError is called when an error occurs. conn is nil for listener
	// errors.
	OnError func(conn *ServerConn, err error)
}

// Server accepts TCP connections and reassembles the frames clients send.
// It is the device side of a serial-to-TCP bridge.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and every connection and waits for their
// goroutines.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Broadcast sends data to every connected client.
func (s *Server) Broadcast(data []byte) {
	s.connsMu.RLock()
	conns := make([]*ServerConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()

	for _, c := range conns {
		if err := c.Send(data); err != nil {
			s.reportError(c, err)
		}
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	var delay time.Duration
	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.running.Load() {
				return
			}
			s.reportError(nil, fmt.Errorf("accept: %w", err))

			// Persistent failures such as EMFILE back off up to a second.
			delay *= 2
			if delay == 0 {
				delay = acceptRetryMin
			}
			if delay > acceptRetryMax {
				delay = acceptRetryMax
			}
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// track registers c unless the server is stopping, in which case it
// closes c and returns false.
func (s *Server) track(c *ServerConn) bool {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if s.ctx.Err() != nil {
		c.Close()
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	sconn := &ServerConn{
		conn:    conn,
		server:  s,
		connID:  uuid.New().String(),
		closeCh: make(chan struct{}),
	}
	sconn.reassembler = NewReassembler(s.config.LengthMode)
	if s.config.Logger != nil {
		sconn.reassembler.SetLogger(s.config.Logger, sconn.connID)
	}

	if !s.track(sconn) {
		return
	}
	s.logConnection(sconn, "", "CONNECTED")

	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	sconn.readLoop()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()

	s.logConnection(sconn, "CONNECTED", "DISCONNECTED")

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

func (s *Server) logConnection(c *ServerConn, oldState, newState string) {
	if s.config.Logger == nil {
		return
	}
	event := log.NewStateEvent(c.connID, log.StateEntityConnection, oldState, newState, "")
	event.Layer = log.LayerTransport
	event.Port = "tcp://" + c.conn.RemoteAddr().String()
	s.config.Logger.Log(event)
}

func (s *Server) reportError(c *ServerConn, err error) {
	if s.config.OnError != nil {
		s.config.OnError(c, err)
	}
}

// ServerConn is one client connection.
type ServerConn struct {
	conn        net.Conn
	server      *Server
	reassembler *Reassembler
	connID      string

	writeMu   sync.Mutex
	closeCh   chan struct{}
	closeOnce sync.Once
}

// RemoteAddr returns the client address.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ConnID returns the unique connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// Send writes one encoded frame to the client.
func (c *ServerConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if l := c.server.config.Logger; l != nil {
		l.Log(log.NewFrameEvent(c.connID, log.DirectionOut, data))
	}
	return nil
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	buf := make([]byte, 1024)
	for {
		n, err := c.conn.Read(buf)
		for _, f := range c.reassembler.Write(buf[:n]) {
			if c.server.config.OnFrame != nil {
				c.server.config.OnFrame(c, f)
			}
		}
		if err != nil {
			select {
			case <-c.closeCh:
			case <-c.server.ctx.Done():
			default:
				if !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
					c.server.reportError(c, err)
				}
			}
			return
		}
	}
}
