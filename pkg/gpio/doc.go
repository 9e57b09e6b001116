// Package gpio implements the GpioBus capability: wiringPi-style digital
// I/O on the 32 header pins.
//
// A Bus validates arguments and serializes access to a Driver. On the
// target board the driver requests lines from /dev/gpiochip0; elsewhere
// MockDriver keeps the pins in memory.
//
//	bus := gpio.NewBus(gpio.NewMockDriver(), logger)
//	bus.Setup(ctx)
//	bus.PinMode(ctx, 3, int(gpio.ModeOutput))
//	bus.DigitalWrite(ctx, 3, 1)
//
// Pin numbers outside 0..31 are rejected with
// "Pin must be a valid number in range 0 to 31." before any pin is touched.
package gpio
