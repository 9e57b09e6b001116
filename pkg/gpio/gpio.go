package gpio

import (
	"context"

	"github.com/hatrpc/hatrpc-go/pkg/model"
)

// Name is the capability name of the GPIO bus.
const Name = "GpioBus"

// Pin numbering limits.
const (
	NumPins = 32
	MinPin  = 0
	MaxPin  = NumPins - 1
)

// Numbering selects how pin numbers are interpreted.
type Numbering uint8

const (
	// NumberingWiringPi uses the wiringPi pin numbers.
	NumberingWiringPi Numbering = iota
	// NumberingSys uses BCM numbers through the sysfs interface.
	NumberingSys
	// NumberingGpio uses BCM numbers directly.
	NumberingGpio
)

func (n Numbering) String() string {
	switch n {
	case NumberingWiringPi:
		return "wiringpi"
	case NumberingSys:
		return "sys"
	case NumberingGpio:
		return "gpio"
	}
	return "unknown"
}

// Mode is the I/O mode of a pin.
type Mode uint8

const (
	ModeInput  Mode = 0
	ModeOutput Mode = 1
	ModePWM    Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "INPUT"
	case ModeOutput:
		return "OUTPUT"
	case ModePWM:
		return "PWM"
	}
	return "UNKNOWN"
}

// GPIO is the digital I/O surface of the bus, served locally by *Bus and
// remotely by the stub returned from NewRemote.
//
// Boolean operations return true on success.
type GPIO interface {
	Setup(ctx context.Context) (bool, error)
	SetupSys(ctx context.Context) (bool, error)
	SetupGpio(ctx context.Context) (bool, error)
	PinMode(ctx context.Context, pin, mode int) (bool, error)
	DigitalWrite(ctx context.Context, pin, value int) (bool, error)
	DigitalWrites(ctx context.Context, pins []int, value int) (bool, error)
	DigitalRead(ctx context.Context, pin int) (int, error)
	DigitalReads(ctx context.Context, pins []int) ([]int, error)
}

// Driver is the hardware below a Bus. Pins it receives are validated.
type Driver interface {
	Setup(n Numbering) error
	SetMode(pin int, mode Mode) error
	Write(pin, level int) error
	Read(pin int) (int, error)
	Close() error
}

// CheckPin rejects pins outside 0..31.
func CheckPin(pin int) error {
	return model.CheckRange("Pin", pin, MinPin, MaxPin)
}

// CheckMode rejects modes outside 0..2.
func CheckMode(mode int) error {
	return model.CheckRange("Mode", mode, int(ModeInput), int(ModePWM))
}
