package sensor

import (
	"log/slog"

	"github.com/hatrpc/hatrpc-go/pkg/capability"
	"github.com/hatrpc/hatrpc-go/pkg/interaction"
)

// Registration plugs the AM2302 sensor into the invoker.
func Registration() capability.Registration {
	return capability.Registration{
		Name: Name,
		New: func(env capability.Env) (capability.Implementation, error) {
			cfg := DefaultConfig()
			cfg.Logger = env.Logger
			if env.Mock {
				return New(NewMockDevice(), cfg), nil
			}
			return New(NewIIODevice(""), cfg), nil
		},
		Commands: func(impl capability.Implementation, _ *slog.Logger) interaction.Handler {
			return Commands(impl.(*AM2302))
		},
		Local: func(impl capability.Implementation) any {
			return Sensor(impl.(*AM2302))
		},
		Remote: func(c interaction.Caller) any {
			return Sensor(NewRemote(c))
		},
	}
}

// Resolve returns the Sensor capability of r.
func Resolve(r capability.Resolver) (Sensor, error) {
	return capability.Resolve[Sensor](r, Name)
}
