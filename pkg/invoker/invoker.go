package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/hatrpc/hatrpc-go/pkg/capabilities"
	"github.com/hatrpc/hatrpc-go/pkg/capability"
	"github.com/hatrpc/hatrpc-go/pkg/log"
	"github.com/hatrpc/hatrpc-go/pkg/registry"
	"github.com/hatrpc/hatrpc-go/pkg/transport"
	"github.com/hatrpc/hatrpc-go/pkg/version"
)

// DefaultPort is the registry port used when Initialize gets port 0.
const DefaultPort = 8000

// RPCTimeout bounds every remote call made through an invoker.
const RPCTimeout = 300 * time.Second

// Invoker errors.
var (
	// ErrIllegalInvocation is returned for operations the current mode
	// does not allow, such as Start on a client.
	ErrIllegalInvocation = errors.New("illegal invocation")

	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("invoker stopped")
)

// State is the mode of an invoker.
type State int

const (
	StateUninitialized State = iota
	StateLocal
	StateServer
	StateClient
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLocal:
		return "local"
	case StateServer:
		return "server"
	case StateClient:
		return "client"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config configures an Invoker.
type Config struct {
	// Registrations lists the capabilities, in port order.
	Registrations []capability.Registration

	// Logger is the operational logger (optional).
	Logger *slog.Logger

	// ProtocolLogger captures the traffic of every connection (optional).
	ProtocolLogger log.Logger

	// CallTimeout bounds every remote call.
	CallTimeout time.Duration

	// ConnectTimeout bounds connecting to the registry and to endpoints.
	ConnectTimeout time.Duration

	// Probe reports whether the process runs on the target hardware.
	Probe capability.Probe

	// ForceMock selects mock implementations regardless of Probe.
	ForceMock bool
}

// DefaultConfig returns a configuration serving the shipped capabilities.
func DefaultConfig() Config {
	return Config{
		Registrations:  capabilities.Default(),
		CallTimeout:    RPCTimeout,
		ConnectTimeout: transport.DefaultConnectTimeout,
		Probe:          capability.DetectPlatform,
	}
}

// Invoker hands out capability handles. Depending on how it was
// initialized they call implementations in-process, or go over TCP to a
// server process.
type Invoker struct {
	cfg    Config
	base   *slog.Logger
	logger *slog.Logger

	initMu sync.Mutex
	state  State
	host   string
	port   int
	mock   bool

	regs  map[string]capability.Registration
	impls map[string]capability.Implementation
	order []string

	registry *registry.Registry

	root       *conn
	rootRemote *registry.Remote

	resolveMu sync.Mutex
	cacheMu   sync.Mutex
	cache     map[string]*conn

	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates an uninitialized invoker. Zero Config fields take their
// defaults, except Registrations.
func New(cfg Config) *Invoker {
	def := DefaultConfig()
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.Probe == nil {
		cfg.Probe = def.Probe
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	inv := &Invoker{
		cfg:     cfg,
		base:    logger,
		logger:  logger.With(slog.String("component", "invoker")),
		regs:    make(map[string]capability.Registration, len(cfg.Registrations)),
		impls:   make(map[string]capability.Implementation, len(cfg.Registrations)),
		cache:   make(map[string]*conn),
		stopped: make(chan struct{}),
	}
	for _, reg := range cfg.Registrations {
		if err := reg.Validate(); err != nil {
			inv.logger.Error("ignoring capability", slog.Any("error", err))
			continue
		}
		if _, dup := inv.regs[reg.Name]; dup {
			inv.logger.Error("ignoring duplicate capability", slog.String("name", reg.Name))
			continue
		}
		inv.regs[reg.Name] = reg
		inv.order = append(inv.order, reg.Name)
	}
	return inv
}

// Initialize selects the mode of the invoker. An empty host runs every
// capability in-process; otherwise host:port is served (asServer) or
// connected to. Port 0 means DefaultPort. Calls after the first are
// no-ops.
func (inv *Invoker) Initialize(ctx context.Context, host string, port int, asServer bool) error {
	inv.initMu.Lock()
	defer inv.initMu.Unlock()

	switch inv.state {
	case StateUninitialized:
	case StateStopped:
		return ErrStopped
	default:
		return nil
	}

	if port == 0 {
		port = DefaultPort
	}
	mock := inv.cfg.ForceMock || !inv.cfg.Probe()

	switch {
	case host == "":
		inv.host, inv.port, inv.mock = host, port, mock
		inv.instantiate()
		inv.state = StateLocal

	case asServer:
		inv.host, inv.port, inv.mock = host, port, mock
		inv.instantiate()
		services := make([]registry.Service, 0, len(inv.impls))
		for _, name := range inv.order {
			impl, ok := inv.impls[name]
			if !ok {
				continue
			}
			services = append(services, registry.Service{
				Name:    name,
				Handler: inv.regs[name].Commands(impl, inv.base),
			})
		}
		inv.logger.Debug("creating registry", slog.String("host", host), slog.Int("port", port))
		reg, err := registry.New(registry.Config{
			Host:           host,
			Port:           port,
			Logger:         inv.base,
			ProtocolLogger: inv.cfg.ProtocolLogger,
		}, services)
		if err != nil {
			return err
		}
		inv.registry = reg
		inv.state = StateServer

	default:
		inv.logger.Debug("connecting to registry", slog.String("host", host), slog.Int("port", port))
		root, err := dial(ctx, inv.dialConfig(), registry.ServiceName, host, port, nil)
		if err != nil {
			return fmt.Errorf("connect registry: %w", err)
		}
		remote := registry.NewRemote(root.client)

		callCtx, cancel := context.WithTimeout(ctx, inv.cfg.CallTimeout)
		defer cancel()
		v, err := remote.Version(callCtx)
		if err == nil {
			err = version.CheckRemote(v)
		}
		if err != nil {
			root.Close()
			return fmt.Errorf("registry at %s:%d: %w", host, port, err)
		}
		inv.host, inv.port, inv.mock = host, port, mock
		inv.root, inv.rootRemote = root, remote
		inv.state = StateClient
	}
	inv.logger.Info("invoker initialized",
		slog.String("state", inv.state.String()),
		slog.String("host", host),
		slog.Int("port", port),
		slog.Bool("mock", mock))
	return nil
}

func (inv *Invoker) instantiate() {
	env := capability.Env{Mock: inv.mock, Logger: inv.base}
	for _, name := range inv.order {
		if _, ok := inv.impls[name]; ok {
			continue
		}
		impl, err := inv.regs[name].New(env)
		if err != nil {
			inv.logger.Error("failed to instantiate capability", slog.String("name", name), slog.Any("error", err))
			continue
		}
		inv.logger.Info("instantiated capability", slog.String("name", name), slog.Bool("mock", inv.mock))
		inv.impls[name] = impl
	}
}

func (inv *Invoker) dialConfig() dialConfig {
	return dialConfig{
		connectTimeout: inv.cfg.ConnectTimeout,
		callTimeout:    inv.cfg.CallTimeout,
		logger:         inv.logger,
		capture:        inv.cfg.ProtocolLogger,
	}
}

// GetProvider returns the handle of capability name: the local adapter in
// local and server mode, a remote stub in client mode. A capability that
// is not available yields nil and no error. Transport faults are
// returned.
func (inv *Invoker) GetProvider(name capability.Name) (any, error) {
	inv.resolveMu.Lock()
	defer inv.resolveMu.Unlock()

	inv.logger.Debug("searching provider", slog.String("name", name))
	switch state := inv.State(); state {
	case StateLocal, StateServer:
		impl, ok := inv.impls[name]
		if !ok {
			inv.logger.Warn("provider not found", slog.String("name", name))
			return nil, nil
		}
		return inv.regs[name].Local(impl), nil
	case StateClient:
		return inv.remoteProvider(name)
	case StateStopped:
		return nil, ErrStopped
	default:
		return nil, fmt.Errorf("%w: get provider %s while %s", ErrIllegalInvocation, name, state)
	}
}

func (inv *Invoker) remoteProvider(name string) (any, error) {
	inv.cacheMu.Lock()
	c, ok := inv.cache[name]
	inv.cacheMu.Unlock()
	if ok {
		inv.logger.Debug("retrieving cached proxy", slog.String("name", name))
		return c.handle, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), inv.cfg.CallTimeout)
	defer cancel()
	port, err := inv.rootRemote.GetServicePort(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	if port <= 0 {
		inv.logger.Warn("provider not found", slog.String("name", name))
		return nil, nil
	}
	reg, ok := inv.regs[name]
	if !ok {
		inv.logger.Warn("no client stub for provider", slog.String("name", name))
		return nil, nil
	}

	inv.logger.Debug("connecting proxy", slog.String("name", name), slog.String("host", inv.host), slog.Int("port", port))
	c, err = dial(context.Background(), inv.dialConfig(), name, inv.host, port, inv.evict)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}
	c.handle = reg.Remote(c.client)

	// Stop may have swept the cache while we were dialing.
	inv.cacheMu.Lock()
	if inv.State() == StateStopped {
		inv.cacheMu.Unlock()
		c.Close()
		return nil, ErrStopped
	}
	inv.cache[name] = c
	inv.cacheMu.Unlock()
	return c.handle, nil
}

func (inv *Invoker) evict(c *conn) {
	inv.cacheMu.Lock()
	defer inv.cacheMu.Unlock()
	if inv.cache[c.name] == c {
		delete(inv.cache, c.name)
	}
}

// Start opens the registry port. Endpoints start on their first lookup.
func (inv *Invoker) Start() error {
	if s := inv.State(); s != StateServer {
		return fmt.Errorf("%w: cannot start server in %s mode", ErrIllegalInvocation, s)
	}
	inv.logger.Debug("starting registry", slog.String("host", inv.host), slog.Int("port", inv.port))
	return inv.registry.Listen()
}

// StartAll opens the registry port and every endpoint.
func (inv *Invoker) StartAll() error {
	if err := inv.Start(); err != nil {
		return err
	}
	return inv.registry.Start()
}

// Stop shuts the invoker down. Only the first call does anything; each
// teardown step runs even when an earlier one failed.
func (inv *Invoker) Stop() {
	inv.stopOnce.Do(func() {
		inv.initMu.Lock()
		inv.state = StateStopped
		inv.initMu.Unlock()

		inv.step("stop registry", func() error {
			if inv.registry == nil {
				return nil
			}
			return inv.registry.CloseEndpoints()
		})
		for _, name := range inv.order {
			impl, ok := inv.impls[name]
			if !ok {
				continue
			}
			inv.step("finalize "+name, impl.Finalize)
		}
		inv.step("close proxies", inv.closeCache)
		inv.step("close registry connection", func() error {
			if inv.root == nil {
				return nil
			}
			return inv.root.Close()
		})
		inv.step("close registry listener", func() error {
			if inv.registry == nil {
				return nil
			}
			return inv.registry.Shutdown()
		})
		close(inv.stopped)
		inv.logger.Info("invoker stopped")
	})
}

func (inv *Invoker) closeCache() error {
	inv.cacheMu.Lock()
	conns := make([]*conn, 0, len(inv.cache))
	for _, c := range inv.cache {
		conns = append(conns, c)
	}
	inv.cacheMu.Unlock()

	var errs error
	for _, c := range conns {
		inv.logger.Debug("closing proxy", slog.String("name", c.name))
		if err := c.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errs
}

func (inv *Invoker) step(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			inv.logger.Error("shutdown step panicked", slog.String("step", name), slog.Any("panic", r))
		}
	}()
	inv.logger.Debug("shutdown", slog.String("step", name))
	if err := fn(); err != nil {
		inv.logger.Error("shutdown step failed", slog.String("step", name), slog.Any("error", err))
	}
}

// Done is closed when Stop has finished.
func (inv *Invoker) Done() <-chan struct{} {
	return inv.stopped
}

// Run blocks until ctx is done or the invoker is stopped, then stops it.
func (inv *Invoker) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-inv.stopped:
	}
	inv.Stop()
}

// State returns the current mode.
func (inv *Invoker) State() State {
	inv.initMu.Lock()
	defer inv.initMu.Unlock()
	return inv.state
}

// IsMock reports whether mock implementations were chosen.
func (inv *Invoker) IsMock() bool {
	inv.initMu.Lock()
	defer inv.initMu.Unlock()
	return inv.mock
}

// IsLocal reports whether capabilities run in-process without a server.
func (inv *Invoker) IsLocal() bool {
	return inv.State() == StateLocal
}

// IsServer reports whether the invoker serves its capabilities.
func (inv *Invoker) IsServer() bool {
	return inv.State() == StateServer
}

// Host returns the host passed to Initialize.
func (inv *Invoker) Host() string {
	inv.initMu.Lock()
	defer inv.initMu.Unlock()
	return inv.host
}

// Port returns the registry port.
func (inv *Invoker) Port() int {
	inv.initMu.Lock()
	defer inv.initMu.Unlock()
	return inv.port
}

// Version returns the protocol version spoken by this library.
func (inv *Invoker) Version() string {
	return version.Current
}

// Names returns the names of the registered capabilities, in order.
func (inv *Invoker) Names() []string {
	return append([]string(nil), inv.order...)
}

// Implementation returns the live implementation of name in local and
// server mode.
func (inv *Invoker) Implementation(name capability.Name) (capability.Implementation, bool) {
	inv.initMu.Lock()
	defer inv.initMu.Unlock()
	impl, ok := inv.impls[name]
	return impl, ok
}

// Registry returns the registry of a server invoker, nil otherwise.
func (inv *Invoker) Registry() *registry.Registry {
	inv.initMu.Lock()
	defer inv.initMu.Unlock()
	return inv.registry
}

// Services asks the remote registry of a client invoker for the served
// capabilities.
func (inv *Invoker) Services(ctx context.Context) ([]string, error) {
	switch s := inv.State(); s {
	case StateClient:
		return inv.rootRemote.ListServices(ctx)
	case StateLocal, StateServer:
		var names []string
		for _, name := range inv.order {
			if _, ok := inv.impls[name]; ok {
				names = append(names, name)
			}
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%w: list services while %s", ErrIllegalInvocation, s)
	}
}

var _ capability.Resolver = (*Invoker)(nil)
