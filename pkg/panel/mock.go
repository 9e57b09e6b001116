package panel

import "sync"

// mockEventQueue bounds injected touch events.
const mockEventQueue = 16

// Mock is an in-memory HAT: what was shown last, LED states and touch
// controller settings are kept for inspection, and Press injects touch
// events.
type Mock struct {
	mu          sync.Mutex
	shown       []byte
	lcdShows    int
	zones       [BacklightZones]Color
	backlightOn bool
	leds        [Buttons]bool
	repeat      bool
	repeatRate  int
	highSens    bool
	touchSetup  bool
	closed      bool

	events chan TouchEvent
}

// NewMock returns a mock with a dark display.
func NewMock() *Mock {
	return &Mock{
		shown:  make([]byte, Width*Height/8),
		events: make(chan TouchEvent, mockEventQueue),
	}
}

// Drivers returns the mock as the three HAT drivers.
func (m *Mock) Drivers() Drivers {
	return Drivers{LCD: mockLCD{m}, Backlight: mockBacklight{m}, Touch: mockTouch{m}}
}

// Press injects a touch event.
func (m *Mock) Press(button int, event Event) {
	m.events <- TouchEvent{Button: button, Event: event}
}

// Snapshot returns a copy of the framebuffer shown last.
func (m *Mock) Snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.shown...)
}

// Pixel reports whether (x, y) was lit in the framebuffer shown last.
func (m *Mock) Pixel(x, y int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown[(y/8)*Width+x]&(1<<(y%8)) != 0
}

// LCDShows returns how often the LCD was shown.
func (m *Mock) LCDShows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lcdShows
}

// Zones returns the backlight colors shown last.
func (m *Mock) Zones() [BacklightZones]Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zones
}

// LED reports the state of one touch LED.
func (m *Mock) LED(led int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leds[led]
}

// Repeat returns the repeat flag and rate.
func (m *Mock) Repeat() (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repeat, m.repeatRate
}

// HighSensitivity reports whether high sensitivity was selected.
func (m *Mock) HighSensitivity() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.highSens
}

// Closed reports whether the drivers were closed.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockLCD struct{ m *Mock }

func (l mockLCD) Show(buf []byte) error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	copy(l.m.shown, buf)
	l.m.lcdShows++
	return nil
}

func (l mockLCD) Close() error {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	l.m.closed = true
	return nil
}

type mockBacklight struct{ m *Mock }

func (b mockBacklight) Setup() error {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	b.m.backlightOn = true
	return nil
}

func (b mockBacklight) Show(zones [BacklightZones]Color) error {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	b.m.zones = zones
	return nil
}

func (b mockBacklight) Close() error { return nil }

type mockTouch struct{ m *Mock }

func (t mockTouch) Setup() error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.touchSetup = true
	return nil
}

func (t mockTouch) SetLED(led int, on bool) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.leds[led] = on
	return nil
}

func (t mockTouch) EnableRepeat(flag bool) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.repeat = flag
	return nil
}

func (t mockTouch) SetRepeatRate(ms int) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.repeatRate = ms
	return nil
}

func (t mockTouch) HighSensitivity() error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.highSens = true
	return nil
}

func (t mockTouch) Events() <-chan TouchEvent { return t.m.events }

func (t mockTouch) Close() error { return nil }
