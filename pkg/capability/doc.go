// Package capability defines how hardware capabilities plug into the
// invoker.
//
// A capability is registered by name with four hooks: a factory building
// the Implementation, the command table that serves it on its endpoint, a
// local adapter and a remote stub. Both adapters implement the same Go
// interface (gpio.GPIO, sensor.Sensor, panel.Panel), so consumers do not
// care where the hardware is.
//
//	bus, err := capability.Resolve[gpio.GPIO](inv, gpio.Name)
package capability
