package gpio

import "sync"

// MockDriver keeps 32 pins in memory. Like the wiringPi mock it models,
// writes only land on OUTPUT pins and reads only report the level of
// INPUT pins.
type MockDriver struct {
	mu        sync.Mutex
	levels    [NumPins]int
	modes     [NumPins]Mode
	numbering Numbering
	setups    int
	closed    bool
}

// NewMockDriver returns a driver with every pin low and in INPUT mode.
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

func (m *MockDriver) Setup(n Numbering) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.numbering = n
	m.setups++
	return nil
}

func (m *MockDriver) SetMode(pin int, mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[pin] = mode
	return nil
}

func (m *MockDriver) Write(pin, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modes[pin] == ModeOutput {
		m.levels[pin] = level
	}
	return nil
}

func (m *MockDriver) Read(pin int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modes[pin] == ModeInput {
		return m.levels[pin], nil
	}
	return 0, nil
}

func (m *MockDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetLevel forces the level of pin regardless of its mode, simulating an
// external signal.
func (m *MockDriver) SetLevel(pin, level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[pin] = level
}

// Level returns the stored level of pin.
func (m *MockDriver) Level(pin int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[pin]
}

// Mode returns the mode of pin.
func (m *MockDriver) Mode(pin int) Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modes[pin]
}

// Numbering returns the numbering of the last setup.
func (m *MockDriver) Numbering() Numbering {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numbering
}

// Closed reports whether Close was called.
func (m *MockDriver) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Driver = (*MockDriver)(nil)
