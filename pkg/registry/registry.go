package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"go.uber.org/multierr"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/log"
	"github.com/hatrpc/hatrpc-go/pkg/model"
	"github.com/hatrpc/hatrpc-go/pkg/transport"
	"github.com/hatrpc/hatrpc-go/pkg/version"
)

// ServiceName labels the registry in logs and capture events.
const ServiceName = "Registry"

// NoPort is returned by GetServicePort when a capability has no endpoint.
const NoPort = -1

// portOffset is the distance between the registry port and the first
// endpoint port.
const portOffset = 2

// Wire method names of the registry.
const (
	MethodGetServicePort = "get_service_port"
	MethodGetVersion     = "get_version"
	MethodListServices   = "list_services"
)

// ErrDuplicateService is returned by New when two entries share a name.
var ErrDuplicateService = errors.New("duplicate service")

// ErrClosed is returned when starting an endpoint after CloseEndpoints,
// or the registry listener after Shutdown.
var ErrClosed = errors.New("registry closed")

// Service is one capability to serve.
type Service struct {
	Name    string
	Handler interaction.Handler
}

// Config configures a Registry.
type Config struct {
	// Host the registry and every endpoint listen on.
	Host string

	// Port of the registry. Endpoints get Port+2, Port+3, ... in the order
	// of the services.
	Port int

	// Logger is the operational logger (optional).
	Logger *slog.Logger

	// ProtocolLogger captures traffic of the registry and every endpoint
	// (optional).
	ProtocolLogger log.Logger
}

// Registry maps capability names to endpoints and serves port lookups on
// its own port.
type Registry struct {
	host   string
	port   int
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	endpoints []*Endpoint
	byName    map[string]*Endpoint

	rpc      *interaction.Server
	capture  log.Logger
	mu       sync.Mutex
	listener *transport.Server
	closed   bool
}

// New creates a registry with one endpoint per service. Nothing is bound
// yet.
func New(cfg Config, services []Service) (*Registry, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("component", "registry"))

	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		host:    cfg.Host,
		port:    cfg.Port,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		byName:  make(map[string]*Endpoint, len(services)),
		capture: cfg.ProtocolLogger,
	}
	for i, svc := range services {
		if _, dup := r.byName[svc.Name]; dup {
			cancel()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateService, svc.Name)
		}
		port := cfg.Port + portOffset + i
		logger.Debug("creating endpoint", slog.String("service", svc.Name), slog.Int("port", port))
		ep := newEndpoint(ctx, svc.Name, cfg.Host, port, svc.Handler, logger, cfg.ProtocolLogger)
		r.endpoints = append(r.endpoints, ep)
		r.byName[svc.Name] = ep
	}

	r.rpc = interaction.NewServer(ServiceName, r.commands())
	r.rpc.SetLogger(logger)
	r.rpc.SetProtocolLogger(cfg.ProtocolLogger)
	return r, nil
}

// Port returns the registry port.
func (r *Registry) Port() int {
	return r.port
}

// Address returns the registry's host:port.
func (r *Registry) Address() string {
	return net.JoinHostPort(r.host, strconv.Itoa(r.port))
}

// Endpoint returns the endpoint of name.
func (r *Registry) Endpoint(name string) (*Endpoint, bool) {
	ep, ok := r.byName[name]
	return ep, ok
}

// Names returns the service names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.endpoints))
	for i, ep := range r.endpoints {
		names[i] = ep.Name()
	}
	return names
}

// Ports returns the assigned port of every service.
func (r *Registry) Ports() map[string]int {
	ports := make(map[string]int, len(r.endpoints))
	for _, ep := range r.endpoints {
		ports[ep.Name()] = ep.Port()
	}
	return ports
}

// GetServicePort starts the endpoint of name if needed and returns its
// port. Unknown names and endpoints that fail to bind yield NoPort.
func (r *Registry) GetServicePort(name string) int {
	r.logger.Debug("retrieving port", slog.String("service", name))
	ep, ok := r.byName[name]
	if !ok {
		r.logger.Debug("service not available", slog.String("service", name))
		return NoPort
	}
	if err := ep.EnsureStarted(); err != nil {
		if errors.Is(err, ErrClosed) {
			r.logger.Debug("registry shutting down", slog.String("service", name))
			return NoPort
		}
		r.logger.Error("failed to start endpoint", slog.String("service", name), slog.Any("error", err))
		return NoPort
	}
	return ep.Port()
}

// Start starts every endpoint that is not active yet. A failing endpoint
// does not prevent the others from starting.
func (r *Registry) Start() error {
	var errs error
	for _, ep := range r.endpoints {
		if ep.Active() {
			r.logger.Debug("endpoint already started", slog.String("service", ep.Name()))
			continue
		}
		errs = multierr.Append(errs, ep.EnsureStarted())
	}
	return errs
}

// Stop stops every active endpoint.
func (r *Registry) Stop() error {
	var errs error
	for _, ep := range r.endpoints {
		if !ep.Active() {
			r.logger.Debug("endpoint already stopped", slog.String("service", ep.Name()))
			continue
		}
		errs = multierr.Append(errs, ep.Stop())
	}
	return errs
}

// CloseEndpoints stops every endpoint and keeps them from being started
// again, also by lookups still arriving on the registry port.
func (r *Registry) CloseEndpoints() error {
	var errs error
	for _, ep := range r.endpoints {
		errs = multierr.Append(errs, ep.Close())
	}
	return errs
}

// Listen binds the registry port and serves lookups on it.
func (r *Registry) Listen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("%w: %s", ErrClosed, ServiceName)
	}
	if r.listener != nil && r.listener.Running() {
		return nil
	}
	srv, err := transport.NewServer(transport.ServerConfig{
		Address: r.Address(),
		Service: ServiceName,
		Logger:  r.capture,
		OnMessage: func(c *transport.ServerConn, msg []byte) {
			r.rpc.HandleFrame(c, msg)
		},
		OnError: func(c *transport.ServerConn, err error) {
			r.logger.Debug("connection error", slog.Any("error", err))
		},
	})
	if err != nil {
		return err
	}
	if err := srv.Start(r.ctx); err != nil {
		return err
	}
	r.listener = srv
	r.logger.Info("registry started", slog.String("address", r.Address()))
	return nil
}

// Listening reports whether the registry port is bound.
func (r *Registry) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listener != nil && r.listener.Running()
}

// Close closes the registry listener and its connections. Endpoints are
// left alone; see Stop.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	err := r.listener.Stop()
	r.listener = nil
	r.logger.Info("registry stopped")
	return err
}

// Shutdown stops the endpoints and the registry listener and cancels the
// context their connections derive from. Listen fails afterwards.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	err := multierr.Combine(r.CloseEndpoints(), r.Close())
	r.cancel()
	return err
}

func (r *Registry) commands() *model.CommandSet {
	return model.NewCommandSet(
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodGetServicePort,
			Description: "Start a capability endpoint if needed and return its port",
			Parameters:  []model.ParameterMetadata{{Name: "name", Type: model.DataTypeString}},
			Result:      model.DataTypeInt,
		}, func(ctx context.Context, args model.Args) (any, error) {
			name, err := args.Text(0)
			if err != nil {
				return nil, err
			}
			return r.GetServicePort(name), nil
		}),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodGetVersion,
			Description: "Protocol version of the server",
			Result:      model.DataTypeString,
		}, func(ctx context.Context, args model.Args) (any, error) {
			return version.Current, nil
		}),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodListServices,
			Description: "Names of the served capabilities",
			Result:      model.DataTypeAny,
		}, func(ctx context.Context, args model.Args) (any, error) {
			return r.Names(), nil
		}),
	)
}
