package registry_test

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatrpc/hatrpc-go/internal/rpctest"
	"github.com/hatrpc/hatrpc-go/pkg/model"
	"github.com/hatrpc/hatrpc-go/pkg/registry"
	"github.com/hatrpc/hatrpc-go/pkg/version"
)

func echoCommands() *model.CommandSet {
	return model.NewCommandSet(
		model.NewCommand(&model.CommandMetadata{
			Name:       "echo",
			Parameters: []model.ParameterMetadata{{Name: "text", Type: model.DataTypeString}},
			Result:     model.DataTypeString,
		}, func(ctx context.Context, args model.Args) (any, error) {
			return args.Text(0)
		}),
	)
}

func newRegistry(t *testing.T) (*registry.Registry, int) {
	t.Helper()
	base := rpctest.FreePortRange(t, 3)
	r, err := registry.New(registry.Config{Host: "127.0.0.1", Port: base}, []registry.Service{
		{Name: "A", Handler: echoCommands()},
		{Name: "B", Handler: echoCommands()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { r.Shutdown() })
	return r, base
}

func TestPortsAssignedInOrder(t *testing.T) {
	r, base := newRegistry(t)

	assert.Equal(t, map[string]int{"A": base + 2, "B": base + 3}, r.Ports())
	assert.Equal(t, []string{"A", "B"}, r.Names())

	for _, name := range r.Names() {
		ep, ok := r.Endpoint(name)
		require.True(t, ok)
		assert.False(t, ep.Active(), "%s must not be bound before first lookup", name)
	}
}

func TestDuplicateService(t *testing.T) {
	_, err := registry.New(registry.Config{Host: "127.0.0.1", Port: 9000}, []registry.Service{
		{Name: "A", Handler: echoCommands()},
		{Name: "A", Handler: echoCommands()},
	})
	assert.ErrorIs(t, err, registry.ErrDuplicateService)
}

func TestGetServicePortUnknown(t *testing.T) {
	r, _ := newRegistry(t)

	assert.Equal(t, registry.NoPort, r.GetServicePort("Z"))
	for _, name := range r.Names() {
		ep, _ := r.Endpoint(name)
		assert.False(t, ep.Active())
	}
}

func TestGetServicePortStartsEndpointOnce(t *testing.T) {
	r, base := newRegistry(t)

	const callers = 16
	ports := make([]int, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ports[i] = r.GetServicePort("B")
		}()
	}
	wg.Wait()

	for _, p := range ports {
		assert.Equal(t, base+3, p)
	}
	b, _ := r.Endpoint("B")
	a, _ := r.Endpoint("A")
	assert.True(t, b.Active())
	assert.False(t, a.Active())

	client := rpctest.Dial(t, b.Address())
	res, err := client.Call(context.Background(), "echo", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", res)
}

func TestGetServicePortBindFailure(t *testing.T) {
	r, base := newRegistry(t)

	busy, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(base+2)))
	require.NoError(t, err)
	defer busy.Close()

	assert.Equal(t, registry.NoPort, r.GetServicePort("A"))
	a, _ := r.Endpoint("A")
	assert.False(t, a.Active())

	busy.Close()
	assert.Equal(t, base+2, r.GetServicePort("A"))
	assert.True(t, a.Active())
}

func TestStartAndStop(t *testing.T) {
	r, _ := newRegistry(t)

	require.Equal(t, r.Ports()["A"], r.GetServicePort("A"))
	require.NoError(t, r.Start())
	for _, name := range r.Names() {
		ep, _ := r.Endpoint(name)
		assert.True(t, ep.Active(), name)
	}

	a, _ := r.Endpoint("A")
	c, err := net.Dial("tcp", a.Address())
	require.NoError(t, err)
	c.Close()

	require.NoError(t, r.Stop())
	for _, name := range r.Names() {
		ep, _ := r.Endpoint(name)
		assert.False(t, ep.Active(), name)
		_, err := net.Dial("tcp", ep.Address())
		assert.Error(t, err, "%s still accepting", name)
	}

	// Stopping again skips the inactive endpoints.
	assert.NoError(t, r.Stop())
}

func TestRemoteSurface(t *testing.T) {
	r, base := newRegistry(t)
	require.NoError(t, r.Listen())
	assert.True(t, r.Listening())

	remote := registry.NewRemote(rpctest.Dial(t, r.Address()))
	ctx := context.Background()

	v, err := remote.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, version.Current, v)

	names, err := remote.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)

	port, err := remote.GetServicePort(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, base+2, port)

	port, err = remote.GetServicePort(ctx, "Z")
	require.NoError(t, err)
	assert.Equal(t, registry.NoPort, port)

	require.NoError(t, r.Close())
	assert.False(t, r.Listening())
}

func TestCloseEndpointsRefusesRestart(t *testing.T) {
	r, base := newRegistry(t)
	require.NoError(t, r.Listen())
	require.Equal(t, base+2, r.GetServicePort("A"))

	require.NoError(t, r.CloseEndpoints())
	a, _ := r.Endpoint("A")
	assert.False(t, a.Active())
	assert.ErrorIs(t, a.EnsureStarted(), registry.ErrClosed)
	assert.ErrorIs(t, r.Start(), registry.ErrClosed)

	// Lookups still reaching the registry port cannot start an endpoint.
	remote := registry.NewRemote(rpctest.Dial(t, r.Address()))
	for _, name := range []string{"A", "B"} {
		port, err := remote.GetServicePort(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, registry.NoPort, port, name)
		ep, _ := r.Endpoint(name)
		assert.False(t, ep.Active(), name)
	}

	require.NoError(t, r.Shutdown())
	assert.ErrorIs(t, r.Listen(), registry.ErrClosed)
	assert.False(t, r.Listening())
}
