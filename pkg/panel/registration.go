package panel

import (
	"log/slog"

	"github.com/hatrpc/hatrpc-go/pkg/capability"
	"github.com/hatrpc/hatrpc-go/pkg/interaction"
)

// Registration plugs the GFX HAT into the invoker.
func Registration() capability.Registration {
	return capability.Registration{
		Name: Name,
		New: func(env capability.Env) (capability.Implementation, error) {
			if env.Mock {
				return New(NewMock().Drivers(), env.Logger), nil
			}
			d, err := OpenHardware(DefaultHardwareConfig(), env.Logger)
			if err != nil {
				return nil, err
			}
			return New(d, env.Logger), nil
		},
		Commands: func(impl capability.Implementation, logger *slog.Logger) interaction.Handler {
			return NewServer(impl.(*HAT), logger)
		},
		Local: func(impl capability.Implementation) any {
			return Panel(impl.(*HAT))
		},
		Remote: func(c interaction.Caller) any {
			return Panel(NewRemote(c))
		},
	}
}

// Resolve returns the Panel capability of r.
func Resolve(r capability.Resolver) (Panel, error) {
	return capability.Resolve[Panel](r, Name)
}
