//go:build linux

package gpio

import (
	"fmt"
	"sync"

	chipgpio "github.com/mkch/gpio"
	"go.uber.org/multierr"

	"github.com/hatrpc/hatrpc-go/pkg/model"
)

// DefaultChip is the character device of the header's GPIO controller.
const DefaultChip = "/dev/gpiochip0"

const consumer = "hatrpc"

type chipLine struct {
	line *chipgpio.Line
	mode Mode
}

// ChipDriver drives pins through the GPIO character device. A line is
// requested when a pin first gets a mode and requested again when the
// mode changes.
type ChipDriver struct {
	mu        sync.Mutex
	path      string
	chip      *chipgpio.Chip
	numbering Numbering
	lines     map[int]*chipLine
}

// NewChipDriver returns a driver for the chip at path.
func NewChipDriver(path string) *ChipDriver {
	if path == "" {
		path = DefaultChip
	}
	return &ChipDriver{path: path, lines: make(map[int]*chipLine)}
}

func (d *ChipDriver) Setup(n Numbering) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chip == nil {
		chip, err := chipgpio.OpenChip(d.path)
		if err != nil {
			return fmt.Errorf("open %s: %w", d.path, err)
		}
		d.chip = chip
	}
	if n != d.numbering {
		if err := d.releaseLocked(); err != nil {
			return err
		}
	}
	d.numbering = n
	return nil
}

func (d *ChipDriver) SetMode(pin int, mode Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if mode == ModePWM {
		return fmt.Errorf("%w: PWM on pin %d", model.ErrUnsupported, pin)
	}
	if d.chip == nil {
		return fmt.Errorf("pin %d: bus not set up", pin)
	}
	if l, ok := d.lines[pin]; ok {
		if l.mode == mode {
			return nil
		}
		if err := l.line.Close(); err != nil {
			return err
		}
		delete(d.lines, pin)
	}

	flag := chipgpio.Input
	if mode == ModeOutput {
		flag = chipgpio.Output
	}
	line, err := d.chip.OpenLine(LineOffset(d.numbering, pin), 0, flag, consumer)
	if err != nil {
		return fmt.Errorf("request line for pin %d: %w", pin, err)
	}
	d.lines[pin] = &chipLine{line: line, mode: mode}
	return nil
}

// Write ignores pins that are not in OUTPUT mode.
func (d *ChipDriver) Write(pin, level int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.lines[pin]
	if !ok || l.mode != ModeOutput {
		return nil
	}
	return l.line.SetValue(byte(level))
}

// Read reports 0 for pins that were never given a mode.
func (d *ChipDriver) Read(pin int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.lines[pin]
	if !ok {
		return 0, nil
	}
	v, err := l.line.Value()
	if err != nil {
		return 0, err
	}
	if v != 0 {
		return 1, nil
	}
	return 0, nil
}

func (d *ChipDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.releaseLocked()
	if d.chip != nil {
		err = multierr.Append(err, d.chip.Close())
		d.chip = nil
	}
	return err
}

func (d *ChipDriver) releaseLocked() error {
	var err error
	for pin, l := range d.lines {
		err = multierr.Append(err, l.line.Close())
		delete(d.lines, pin)
	}
	return err
}

// NewHardwareDriver returns the driver used on the target board.
func NewHardwareDriver() (Driver, error) {
	return NewChipDriver(DefaultChip), nil
}
