// Package capabilities lists the capabilities shipped with hatrpc.
package capabilities

import (
	"github.com/hatrpc/hatrpc-go/pkg/capability"
	"github.com/hatrpc/hatrpc-go/pkg/gpio"
	"github.com/hatrpc/hatrpc-go/pkg/panel"
	"github.com/hatrpc/hatrpc-go/pkg/sensor"
)

// Default returns the registrations in their stable order. The order
// fixes the endpoint ports: registry port + 2 + index.
func Default() []capability.Registration {
	return []capability.Registration{
		gpio.Registration(),
		sensor.Registration(),
		panel.Registration(),
	}
}

// Names returns the names of Default, in order.
func Names() []string {
	regs := Default()
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.Name
	}
	return names
}
