package gpio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// finalizePins is the number of pins reset by Finalize, starting at 0.
const finalizePins = 31

// Bus serializes access to a Driver and validates every argument before
// the driver sees it.
type Bus struct {
	mu          sync.Mutex
	driver      Driver
	logger      *slog.Logger
	initialized bool
	numbering   Numbering
}

// NewBus creates a bus over driver.
func NewBus(driver Driver, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		driver: driver,
		logger: logger.With(slog.String("component", "gpio")),
	}
}

// Driver returns the underlying driver.
func (b *Bus) Driver() Driver {
	return b.driver
}

// Initialized reports whether one of the setup operations ran.
func (b *Bus) Initialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

func (b *Bus) setup(n Numbering) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Debug("setup", slog.String("numbering", n.String()))
	if err := b.driver.Setup(n); err != nil {
		return false, fmt.Errorf("gpio setup %s: %w", n, err)
	}
	b.initialized = true
	b.numbering = n
	return true, nil
}

// Setup initializes the bus with wiringPi pin numbers.
func (b *Bus) Setup(ctx context.Context) (bool, error) {
	return b.setup(NumberingWiringPi)
}

// SetupSys initializes the bus with BCM numbers through sysfs.
func (b *Bus) SetupSys(ctx context.Context) (bool, error) {
	return b.setup(NumberingSys)
}

// SetupGpio initializes the bus with BCM numbers.
func (b *Bus) SetupGpio(ctx context.Context) (bool, error) {
	return b.setup(NumberingGpio)
}

// PinMode sets the mode of pin.
func (b *Bus) PinMode(ctx context.Context, pin, mode int) (bool, error) {
	if err := CheckPin(pin); err != nil {
		return false, err
	}
	if err := CheckMode(mode); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Debug("pinMode", slog.Int("pin", pin), slog.String("mode", Mode(mode).String()))
	if err := b.driver.SetMode(pin, Mode(mode)); err != nil {
		return false, fmt.Errorf("pin %d mode %s: %w", pin, Mode(mode), err)
	}
	return true, nil
}

// DigitalWrite drives pin high for a non-zero value, low otherwise.
func (b *Bus) DigitalWrite(ctx context.Context, pin, value int) (bool, error) {
	if err := CheckPin(pin); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.driver.Write(pin, level(value)); err != nil {
		return false, fmt.Errorf("write pin %d: %w", pin, err)
	}
	return true, nil
}

// DigitalWrites writes value to every pin. No pin is written unless all
// of them are valid.
func (b *Bus) DigitalWrites(ctx context.Context, pins []int, value int) (bool, error) {
	for _, pin := range pins {
		if err := CheckPin(pin); err != nil {
			return false, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Debug("digitalWrites", slog.Int("value", value), slog.Int("pins", len(pins)))
	lv := level(value)
	for _, pin := range pins {
		if err := b.driver.Write(pin, lv); err != nil {
			return false, fmt.Errorf("write pin %d: %w", pin, err)
		}
	}
	return true, nil
}

// DigitalRead returns the level of pin.
func (b *Bus) DigitalRead(ctx context.Context, pin int) (int, error) {
	if err := CheckPin(pin); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := b.driver.Read(pin)
	if err != nil {
		return 0, fmt.Errorf("read pin %d: %w", pin, err)
	}
	return v, nil
}

// DigitalReads returns the level of every pin, in order.
func (b *Bus) DigitalReads(ctx context.Context, pins []int) ([]int, error) {
	for _, pin := range pins {
		if err := CheckPin(pin); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Debug("digitalReads", slog.Int("pins", len(pins)))
	out := make([]int, 0, len(pins))
	for _, pin := range pins {
		v, err := b.driver.Read(pin)
		if err != nil {
			return nil, fmt.Errorf("read pin %d: %w", pin, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Finalize drives pins low and back to input when the bus was set up,
// then closes the driver.
func (b *Bus) Finalize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Debug("finalizing")
	if b.initialized {
		for pin := 0; pin < finalizePins; pin++ {
			if err := b.driver.Write(pin, 0); err != nil {
				b.logger.Error("reset pin", slog.Int("pin", pin), slog.Any("error", err))
				break
			}
			if err := b.driver.SetMode(pin, ModeInput); err != nil {
				b.logger.Error("reset pin mode", slog.Int("pin", pin), slog.Any("error", err))
				break
			}
		}
	}
	return b.driver.Close()
}

func level(value int) int {
	if value != 0 {
		return 1
	}
	return 0
}

var _ GPIO = (*Bus)(nil)
