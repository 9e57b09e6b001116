package panel

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// ST7567 commands.
const (
	st7567DisplayOff   = 0xae
	st7567DisplayOn    = 0xaf
	st7567StartLine    = 0x40
	st7567PageStart    = 0xb0
	st7567ColumnLow    = 0x00
	st7567ColumnHigh   = 0x10
	st7567SegNormal    = 0xa0
	st7567DispNormal   = 0xa6
	st7567Bias17       = 0xa3
	st7567EnterRMW     = 0xe0
	st7567ExitRMW      = 0xee
	st7567SoftReset    = 0xe2
	st7567ComReverse   = 0xc8
	st7567PowerControl = 0x2f
	st7567RegRatio     = 0x20
	st7567SetContrast  = 0x81

	st7567DefaultContrast = 58
	st7567Pages           = Height / 8
)

// Tx is a full-duplex transfer, as done by spi.Conn and *i2c.Dev.
type Tx interface {
	Tx(w, r []byte) error
}

// OutputPin is a GPIO line driven by the display driver.
type OutputPin interface {
	Out(l gpio.Level) error
}

// ST7567 drives the 128x64 monochrome LCD over SPI. The DC pin selects
// between commands (low) and display data (high).
type ST7567 struct {
	spi      Tx
	dc       OutputPin
	rst      OutputPin
	contrast byte
	closer   func() error
	sleep    func(time.Duration)
}

// NewST7567 resets and initializes the display. closer, when set, runs on
// Close and releases the SPI port.
func NewST7567(spi Tx, dc, rst OutputPin, closer func() error) (*ST7567, error) {
	d := &ST7567{
		spi:      spi,
		dc:       dc,
		rst:      rst,
		contrast: st7567DefaultContrast,
		closer:   closer,
		sleep:    time.Sleep,
	}
	if err := d.init(); err != nil {
		return nil, fmt.Errorf("st7567 init: %w", err)
	}
	return d, nil
}

func (d *ST7567) init() error {
	if err := d.reset(); err != nil {
		return err
	}
	return d.command(
		st7567Bias17,
		st7567SegNormal,
		st7567ComReverse,
		st7567DispNormal,
		st7567StartLine|0,
		st7567PowerControl,
		st7567RegRatio|3,
		st7567DisplayOn,
		st7567SetContrast,
		d.contrast,
	)
}

func (d *ST7567) reset() error {
	if d.rst != nil {
		if err := d.rst.Out(gpio.Low); err != nil {
			return err
		}
		d.sleep(10 * time.Millisecond)
		if err := d.rst.Out(gpio.High); err != nil {
			return err
		}
		d.sleep(100 * time.Millisecond)
	}
	return d.command(st7567SoftReset)
}

func (d *ST7567) command(cmd ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.spi.Tx(cmd, nil)
}

func (d *ST7567) data(b []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	return d.spi.Tx(b, nil)
}

// Show writes buf page by page.
func (d *ST7567) Show(buf []byte) error {
	if len(buf) != Width*st7567Pages {
		return fmt.Errorf("st7567: framebuffer is %d bytes, want %d", len(buf), Width*st7567Pages)
	}
	if err := d.command(st7567EnterRMW); err != nil {
		return err
	}
	for page := 0; page < st7567Pages; page++ {
		if err := d.command(st7567PageStart|byte(page), st7567ColumnLow, st7567ColumnHigh); err != nil {
			return err
		}
		offset := page * Width
		if err := d.data(buf[offset : offset+Width]); err != nil {
			return err
		}
	}
	return d.command(st7567ExitRMW)
}

// Close turns the display off and releases the port.
func (d *ST7567) Close() error {
	err := d.command(st7567DisplayOff)
	if d.closer != nil {
		if cerr := d.closer(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ LCDDriver = (*ST7567)(nil)
