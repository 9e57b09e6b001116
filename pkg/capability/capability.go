package capability

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
)

// Resolution errors.
var (
	ErrNotAvailable = errors.New("capability not available")
	ErrWrongType    = errors.New("capability handle has unexpected type")
)

// Name identifies a capability, e.g. "GpioBus".
type Name = string

// Implementation owns the state of one capability, real hardware or mock.
type Implementation interface {
	// Finalize releases the hardware. It is called at most once, at
	// shutdown.
	Finalize() error
}

// Env is what a factory gets to build an implementation.
type Env struct {
	// Mock selects the in-memory variant.
	Mock bool

	// Logger is the operational logger. Never nil.
	Logger *slog.Logger
}

// Registration plugs one capability into the invoker.
type Registration struct {
	Name Name

	// New builds the implementation.
	New func(env Env) (Implementation, error)

	// Commands returns the command table serving impl over the wire.
	Commands func(impl Implementation, logger *slog.Logger) interaction.Handler

	// Local wraps impl in the in-process adapter handed to consumers.
	Local func(impl Implementation) any

	// Remote wraps a call connection in the stub handed to consumers.
	Remote func(c interaction.Caller) any
}

// Validate checks that every hook is set.
func (r Registration) Validate() error {
	switch {
	case r.Name == "":
		return errors.New("registration without name")
	case r.New == nil, r.Commands == nil, r.Local == nil, r.Remote == nil:
		return fmt.Errorf("registration %s is incomplete", r.Name)
	}
	return nil
}

// Resolver hands out capability handles by name. *invoker.Invoker
// implements it.
type Resolver interface {
	GetProvider(name Name) (any, error)
}

// Resolve fetches the capability name from r and converts it to T.
// A missing capability yields ErrNotAvailable.
func Resolve[T any](r Resolver, name Name) (T, error) {
	var zero T
	h, err := r.GetProvider(name)
	if err != nil {
		return zero, err
	}
	if h == nil {
		return zero, fmt.Errorf("%w: %s", ErrNotAvailable, name)
	}
	v, ok := h.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrWrongType, name, h)
	}
	return v, nil
}
