package gpio

import (
	"log/slog"

	"github.com/hatrpc/hatrpc-go/pkg/capability"
	"github.com/hatrpc/hatrpc-go/pkg/interaction"
)

// Registration plugs the GPIO bus into the invoker.
func Registration() capability.Registration {
	return capability.Registration{
		Name: Name,
		New: func(env capability.Env) (capability.Implementation, error) {
			if env.Mock {
				return NewBus(NewMockDriver(), env.Logger), nil
			}
			drv, err := NewHardwareDriver()
			if err != nil {
				return nil, err
			}
			return NewBus(drv, env.Logger), nil
		},
		Commands: func(impl capability.Implementation, _ *slog.Logger) interaction.Handler {
			return Commands(impl.(*Bus))
		},
		Local: func(impl capability.Implementation) any {
			return GPIO(impl.(*Bus))
		},
		Remote: func(c interaction.Caller) any {
			return GPIO(NewRemote(c))
		},
	}
}

// Resolve returns the GPIO capability of r.
func Resolve(r capability.Resolver) (GPIO, error) {
	return capability.Resolve[GPIO](r, Name)
}
