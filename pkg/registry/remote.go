package registry

import (
	"context"
	"fmt"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// Remote is the client view of a registry served by another process.
type Remote struct {
	c interaction.Caller
}

// NewRemote returns a registry stub issuing calls through c.
func NewRemote(c interaction.Caller) *Remote {
	return &Remote{c: c}
}

// GetServicePort asks the registry for the port of name, starting its
// endpoint if needed. NoPort means the server does not know name.
func (r *Remote) GetServicePort(ctx context.Context, name string) (int, error) {
	res, err := r.c.Call(ctx, MethodGetServicePort, name)
	if err != nil {
		return NoPort, err
	}
	port, ok := wire.AsInt(res)
	if !ok {
		return NoPort, fmt.Errorf("%w: %s returned %T", interaction.ErrUnexpectedReply, MethodGetServicePort, res)
	}
	return port, nil
}

// Version returns the protocol version of the server.
func (r *Remote) Version(ctx context.Context) (string, error) {
	res, err := r.c.Call(ctx, MethodGetVersion)
	if err != nil {
		return "", err
	}
	v, ok := wire.AsString(res)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %T", interaction.ErrUnexpectedReply, MethodGetVersion, res)
	}
	return v, nil
}

// ListServices returns the served capability names in registration order.
func (r *Remote) ListServices(ctx context.Context) ([]string, error) {
	res, err := r.c.Call(ctx, MethodListServices)
	if err != nil {
		return nil, err
	}
	items, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", interaction.ErrUnexpectedReply, MethodListServices, res)
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := wire.AsString(it)
		if !ok {
			return nil, fmt.Errorf("%w: %s returned %T entry", interaction.ErrUnexpectedReply, MethodListServices, it)
		}
		names = append(names, s)
	}
	return names, nil
}
