package panel

// LCDDriver pushes a page-layout framebuffer to the display: byte
// x+(y/8)*Width holds the pixels (x, y..y+7), least significant bit on top.
type LCDDriver interface {
	Show(buf []byte) error
	Close() error
}

// BacklightDriver drives the six RGB zones.
type BacklightDriver interface {
	Setup() error
	Show(zones [BacklightZones]Color) error
	Close() error
}

// TouchEvent is a transition reported by a TouchDriver.
type TouchEvent struct {
	Button int
	Event  Event
}

// TouchDriver reads the capacitive buttons and drives their LEDs.
type TouchDriver interface {
	Setup() error
	SetLED(led int, on bool) error
	EnableRepeat(flag bool) error
	SetRepeatRate(ms int) error
	HighSensitivity() error

	// Events delivers touch transitions. It is never closed.
	Events() <-chan TouchEvent

	Close() error
}

// Drivers is the hardware of one HAT.
type Drivers struct {
	LCD       LCDDriver
	Backlight BacklightDriver
	Touch     TouchDriver

	// Release runs after the drivers are closed, for shared buses.
	Release func() error
}
