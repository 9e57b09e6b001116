package panel

import (
	"errors"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// HardwareConfig names the buses and pins of the HAT.
type HardwareConfig struct {
	SPIPort   string
	SPISpeed  physic.Frequency
	DCPin     string
	ResetPin  string
	I2CBus    string
	Backlight uint16
	Touch     uint16
}

// DefaultHardwareConfig returns the wiring of the Pimoroni GFX HAT.
func DefaultHardwareConfig() HardwareConfig {
	return HardwareConfig{
		SPIPort:   "SPI0.0",
		SPISpeed:  1 * physic.MegaHertz,
		DCPin:     "GPIO6",
		ResetPin:  "GPIO5",
		I2CBus:    "1",
		Backlight: SN3218Addr,
		Touch:     CAP1166Addr,
	}
}

// OpenHardware initializes the host drivers and opens the LCD, backlight
// and touch controller.
func OpenHardware(cfg HardwareConfig, logger *slog.Logger) (d Drivers, err error) {
	if _, err := host.Init(); err != nil {
		return Drivers{}, fmt.Errorf("periph host init: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return Drivers{}, fmt.Errorf("open %s: %w", cfg.SPIPort, err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, port.Close())
		}
	}()
	conn, err := port.Connect(cfg.SPISpeed, spi.Mode0, 8)
	if err != nil {
		return Drivers{}, fmt.Errorf("connect %s: %w", cfg.SPIPort, err)
	}

	dc := gpioreg.ByName(cfg.DCPin)
	rst := gpioreg.ByName(cfg.ResetPin)
	if dc == nil || rst == nil {
		return Drivers{}, errors.New("lcd control pins not found")
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return Drivers{}, fmt.Errorf("open i2c bus %s: %w", cfg.I2CBus, err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, bus.Close())
		}
	}()

	lcd, err := NewST7567(conn, dc, rst, port.Close)
	if err != nil {
		return Drivers{}, err
	}

	return Drivers{
		LCD:       lcd,
		Backlight: NewSN3218(&i2c.Dev{Addr: cfg.Backlight, Bus: bus}),
		Touch:     NewCAP1166(&i2c.Dev{Addr: cfg.Touch, Bus: bus}, logger),
		Release:   bus.Close,
	}, nil
}
