package sensor

import (
	"context"
	"math/rand/v2"
	"sync"
)

// MockDevice returns fixed values, random unless set.
type MockDevice struct {
	mu          sync.Mutex
	humidity    float64
	temperature float64
	reads       int
	err         error
}

// NewMockDevice returns a device with a random humidity in 0..25.4 and a
// random temperature in -10.5..39.5.
func NewMockDevice() *MockDevice {
	return &MockDevice{
		humidity:    round2(rand.Float64() * 25.4),
		temperature: round2(-10.5 + rand.Float64()*50),
	}
}

func (m *MockDevice) Read(ctx context.Context, pin int) (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return 0, 0, m.err
	}
	return m.humidity, m.temperature, nil
}

// SetHumidity sets the humidity returned by later reads.
func (m *MockDevice) SetHumidity(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.humidity = v
}

// SetTemperature sets the temperature returned by later reads.
func (m *MockDevice) SetTemperature(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temperature = v
}

// SetError makes later reads fail with err. Nil restores them.
func (m *MockDevice) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Reads returns the number of device reads so far.
func (m *MockDevice) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

var _ Device = (*MockDevice)(nil)
