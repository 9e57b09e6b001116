package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/log"
	"github.com/hatrpc/hatrpc-go/pkg/transport"
)

// Endpoint serves one capability on its own port. The port is assigned
// when the endpoint is created and never changes; the listener is bound
// the first time the endpoint is started.
type Endpoint struct {
	name string
	host string
	port int

	rpc     *interaction.Server
	capture log.Logger
	logger  *slog.Logger

	// ctx outlives individual requests: connections accepted by the
	// endpoint derive their context from it.
	ctx context.Context

	mu     sync.Mutex
	server *transport.Server
	active bool
	closed bool
}

func newEndpoint(ctx context.Context, name, host string, port int, handler interaction.Handler, logger *slog.Logger, capture log.Logger) *Endpoint {
	logger = logger.With(slog.String("service", name))
	rpc := interaction.NewServer(name, handler)
	rpc.SetLogger(logger)
	rpc.SetProtocolLogger(capture)
	return &Endpoint{
		name:    name,
		host:    host,
		port:    port,
		rpc:     rpc,
		capture: capture,
		logger:  logger,
		ctx:     ctx,
	}
}

// Name returns the capability name.
func (e *Endpoint) Name() string {
	return e.name
}

// Port returns the assigned port, whether or not the endpoint is started.
func (e *Endpoint) Port() int {
	return e.port
}

// Address returns host:port.
func (e *Endpoint) Address() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

// Active reports whether the endpoint is listening.
func (e *Endpoint) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// ConnectionCount returns the number of connected clients.
func (e *Endpoint) ConnectionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.server == nil {
		return 0
	}
	return e.server.ConnectionCount()
}

// EnsureStarted binds the listener unless the endpoint is already active.
// Concurrent callers are serialized; only the first one binds.
func (e *Endpoint) EnsureStarted() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("%w: %s", ErrClosed, e.name)
	}
	if e.active {
		return nil
	}

	srv, err := transport.NewServer(transport.ServerConfig{
		Address: e.Address(),
		Service: e.name,
		Logger:  e.capture,
		OnConnect: func(c *transport.ServerConn) {
			e.logger.Debug("client connected", slog.String("conn_id", c.ID()), slog.Any("remote", c.RemoteAddr()))
		},
		OnDisconnect: func(c *transport.ServerConn) {
			e.rpc.ConnectionClosed(c)
			e.logger.Debug("client disconnected", slog.String("conn_id", c.ID()))
		},
		OnMessage: func(c *transport.ServerConn, msg []byte) {
			e.rpc.HandleFrame(c, msg)
		},
		OnError: func(c *transport.ServerConn, err error) {
			e.logger.Debug("connection error", slog.Any("error", err))
		},
	})
	if err != nil {
		return err
	}
	if err := srv.Start(e.ctx); err != nil {
		return fmt.Errorf("start %s: %w", e.name, err)
	}
	e.server = srv
	e.active = true
	e.logger.Info("endpoint started", slog.String("address", e.Address()))
	return nil
}

// Stop closes the listener and every client connection. Stopping an
// inactive endpoint does nothing.
func (e *Endpoint) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

// Close stops the endpoint for good: later EnsureStarted calls fail with
// ErrClosed.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return e.stopLocked()
}

func (e *Endpoint) stopLocked() error {
	if !e.active {
		return nil
	}
	e.active = false
	err := e.server.Stop()
	e.server = nil
	e.logger.Info("endpoint stopped")
	return err
}
