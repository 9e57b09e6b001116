package panel

import "fmt"

// SN3218 registers.
const (
	sn3218Shutdown   = 0x00
	sn3218PWMBase    = 0x01
	sn3218LEDControl = 0x13
	sn3218Update     = 0x16
	sn3218Reset      = 0x17

	sn3218Channels = 18

	// SN3218Addr is the I2C address of the backlight driver.
	SN3218Addr = 0x54
)

// backlightMap gives the SN3218 channel triplet of each zone, left to
// right.
var backlightMap = [BacklightZones]int{2, 1, 0, 5, 4, 3}

// SN3218 drives the 18-channel LED controller behind the six backlight
// zones.
type SN3218 struct {
	dev Tx
}

// NewSN3218 returns a driver talking to dev.
func NewSN3218(dev Tx) *SN3218 {
	return &SN3218{dev: dev}
}

func (d *SN3218) write(reg byte, values ...byte) error {
	return d.dev.Tx(append([]byte{reg}, values...), nil)
}

// Setup resets the chip, wakes it and enables every channel.
func (d *SN3218) Setup() error {
	if err := d.write(sn3218Reset, 0xff); err != nil {
		return fmt.Errorf("sn3218 reset: %w", err)
	}
	if err := d.write(sn3218Shutdown, 0x01); err != nil {
		return fmt.Errorf("sn3218 enable: %w", err)
	}
	if err := d.write(sn3218LEDControl, 0x3f, 0x3f, 0x3f); err != nil {
		return fmt.Errorf("sn3218 led control: %w", err)
	}
	return d.write(sn3218Update, 0xff)
}

// Show writes the zone colors and latches them.
func (d *SN3218) Show(zones [BacklightZones]Color) error {
	var pwm [sn3218Channels]byte
	for x, c := range zones {
		base := backlightMap[x] * 3
		pwm[base] = c.B
		pwm[base+1] = c.G
		pwm[base+2] = c.R
	}
	if err := d.write(sn3218PWMBase, pwm[:]...); err != nil {
		return fmt.Errorf("sn3218 pwm: %w", err)
	}
	return d.write(sn3218Update, 0xff)
}

// Close puts the chip in shutdown mode.
func (d *SN3218) Close() error {
	return d.write(sn3218Shutdown, 0x00)
}

var _ BacklightDriver = (*SN3218)(nil)
