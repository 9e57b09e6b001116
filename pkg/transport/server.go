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
	"github.com/hatrpc/hatrpc-go/pkg/log"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// ErrServerRunning is returned by Start on a server that is already serving.
var ErrServerRunning = errors.New("server already running")

// ServerConfig configures a framed TCP server.
type ServerConfig struct {
	// Address to listen on (e.g. "0.0.0.0:8002" or "127.0.0.1:0").
	Address string

	// Service names what is served, recorded in capture events.
	Service string

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// Logger for protocol capture (optional).
	Logger log.Logger

	// OnConnect is called when a new connection is established.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called after a connection's read loop ended.
	OnDisconnect func(conn *ServerConn)

	// OnMessage is called for every non-control frame, on the
	// connection's read goroutine. Frames of one connection are therefore
	// handled in arrival order.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called when an error occurs.
	OnError func(conn *ServerConn, err error)
}

// Server accepts TCP connections and hands complete frames to OnMessage.
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

// NewServer creates a new server. It does not bind until Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}, nil
}

// Start binds the listener synchronously and accepts connections on a
// background goroutine. A bind failure is returned to the caller.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrServerRunning
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and every open connection, then waits for the
// connection goroutines (including their OnDisconnect callbacks).
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()

	err := s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return err
}

// Running reports whether the server is accepting connections.
func (s *Server) Running() bool {
	return s.running.Load()
}

// Addr returns the server's listen address, or nil before Start.
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

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			if s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	connID := uuid.New().String()
	framer := NewFramer(conn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, connID, s.config.Service, log.RoleServer)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	sconn := &ServerConn{
		conn:       conn,
		framer:     framer,
		server:     s,
		ctx:        ctx,
		cancel:     cancel,
		remoteAddr: conn.RemoteAddr(),
		connID:     connID,
	}

	s.connsMu.Lock()
	if !s.running.Load() {
		s.connsMu.Unlock()
		conn.Close()
		cancel()
		return
	}
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	s.logState(sconn, "", "CONNECTED")
	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	sconn.readLoop()
	sconn.Close()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()

	s.logState(sconn, "CONNECTED", "DISCONNECTED")
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

func (s *Server) logState(c *ServerConn, oldState, newState string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		LocalRole:    log.RoleServer,
		RemoteAddr:   c.remoteAddr.String(),
		Service:      s.config.Service,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
		},
	})
}

// ServerConn is one accepted client connection.
type ServerConn struct {
	conn       net.Conn
	framer     *Framer
	server     *Server
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
	remoteAddr net.Addr
	connID     string
}

// ID returns the unique connection identifier.
func (c *ServerConn) ID() string {
	return c.connID
}

// RemoteAddr returns the remote address of the client.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// Context returns a context that is canceled once the connection closes.
func (c *ServerConn) Context() context.Context {
	return c.ctx
}

// Send sends one frame to the client.
func (c *ServerConn) Send(data []byte) error {
	if c.ctx.Err() != nil {
		return ErrConnectionClosed
	}
	return c.framer.WriteFrame(data)
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		data, err := c.framer.ReadFrame()
		if err != nil {
			if c.ctx.Err() == nil && !errors.Is(err, io.EOF) && c.server.config.OnError != nil {
				c.server.config.OnError(c, err)
			}
			return
		}

		// Control messages are answered here and never reach OnMessage.
		if msgType, peekErr := wire.PeekMessageType(data); peekErr == nil && msgType == wire.MessageTypeControl {
			if ctrl, err := wire.DecodeControlMessage(data); err == nil {
				if !c.handleControlMessage(ctrl) {
					return
				}
				continue
			}
		}

		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}

// handleControlMessage answers a control message. It returns false when
// the connection should be closed.
func (c *ServerConn) handleControlMessage(msg *wire.ControlMessage) bool {
	c.logControl(msg.Type, msg.Sequence, log.DirectionIn)

	switch msg.Type {
	case wire.ControlPing:
		if pong, err := EncodePong(msg.Sequence); err == nil {
			c.Send(pong)
			c.logControl(wire.ControlPong, msg.Sequence, log.DirectionOut)
		}
	case wire.ControlClose:
		if ack, err := EncodeClose(); err == nil {
			c.Send(ack)
			c.logControl(wire.ControlClose, 0, log.DirectionOut)
		}
		return false
	}
	return true
}

func (c *ServerConn) logControl(t wire.ControlMessageType, seq uint32, direction log.Direction) {
	logger := c.server.config.Logger
	if logger == nil {
		return
	}
	ct, ok := log.ControlMsgTypeFromWire(t)
	if !ok {
		return
	}
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		LocalRole:    log.RoleServer,
		RemoteAddr:   c.remoteAddr.String(),
		Service:      c.server.config.Service,
		ControlMsg:   &log.ControlMsgEvent{Type: ct, Sequence: seq},
	})
}

// EncodePing encodes a ping control message.
func EncodePing(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{Type: wire.ControlPing, Sequence: seq})
}

// EncodePong encodes a pong control message.
func EncodePong(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{Type: wire.ControlPong, Sequence: seq})
}

// EncodeClose encodes a close control message.
func EncodeClose() ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{Type: wire.ControlClose})
}
