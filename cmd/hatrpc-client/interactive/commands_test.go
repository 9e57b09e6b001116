package interactive

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hatrpc/hatrpc-go/pkg/capability"
	"github.com/hatrpc/hatrpc-go/pkg/gpio"
	"github.com/hatrpc/hatrpc-go/pkg/model"
	"github.com/hatrpc/hatrpc-go/pkg/panel"
	"github.com/hatrpc/hatrpc-go/pkg/sensor"
)

type fakeClient map[string]any

func (c fakeClient) GetProvider(name capability.Name) (any, error) {
	return c[name], nil
}

func (c fakeClient) Services(context.Context) ([]string, error) {
	var names []string
	for _, name := range []string{gpio.Name, sensor.Name, panel.Name} {
		if _, ok := c[name]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

type mockGPIO struct {
	mock.Mock
}

func (m *mockGPIO) Setup(ctx context.Context) (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *mockGPIO) SetupSys(ctx context.Context) (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *mockGPIO) SetupGpio(ctx context.Context) (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *mockGPIO) PinMode(ctx context.Context, pin, mode int) (bool, error) {
	args := m.Called(pin, mode)
	return args.Bool(0), args.Error(1)
}

func (m *mockGPIO) DigitalWrite(ctx context.Context, pin, value int) (bool, error) {
	args := m.Called(pin, value)
	return args.Bool(0), args.Error(1)
}

func (m *mockGPIO) DigitalWrites(ctx context.Context, pins []int, value int) (bool, error) {
	args := m.Called(pins, value)
	return args.Bool(0), args.Error(1)
}

func (m *mockGPIO) DigitalRead(ctx context.Context, pin int) (int, error) {
	args := m.Called(pin)
	return args.Int(0), args.Error(1)
}

func (m *mockGPIO) DigitalReads(ctx context.Context, pins []int) ([]int, error) {
	args := m.Called(pins)
	return args.Get(0).([]int), args.Error(1)
}

// syncBuffer is written by the touch delivery goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestGPIOCommands(t *testing.T) {
	bus := &mockGPIO{}
	bus.On("SetupSys").Return(true, nil).Once()
	bus.On("PinMode", 3, int(gpio.ModeOutput)).Return(true, nil).Once()
	bus.On("DigitalWrite", 3, 1).Return(true, nil).Once()
	bus.On("DigitalWrites", []int{4, 5}, 0).Return(true, nil).Once()
	bus.On("DigitalReads", []int{3, 4}).Return([]int{1, 0}, nil).Once()

	var out bytes.Buffer
	s := NewSession(fakeClient{gpio.Name: gpio.GPIO(bus)}, &out)
	ctx := context.Background()

	for _, line := range []string{
		"gpio setup sys",
		"gpio mode 3 out",
		"gpio write 3 1",
		"g w 4,5 0",
		"gpio read 3,4",
	} {
		require.NoError(t, s.Exec(ctx, strings.Fields(line)), line)
	}

	bus.AssertExpectations(t)
	assert.Equal(t, "true\ntrue\ntrue\ntrue\n3: 1\n4: 0\n", out.String())
}

func TestCommandErrors(t *testing.T) {
	s := NewSession(fakeClient{gpio.Name: gpio.GPIO(&mockGPIO{})}, &bytes.Buffer{})
	ctx := context.Background()

	assert.ErrorIs(t, s.Exec(ctx, []string{"reboot"}), ErrUnknownCommand)
	assert.ErrorIs(t, s.Exec(ctx, []string{"gpio", "mode", "3", "sideways"}), ErrUsage)
	assert.ErrorIs(t, s.Exec(ctx, []string{"gpio", "write", "x", "1"}), ErrUsage)
	assert.ErrorIs(t, s.Exec(ctx, []string{"sensor", "read"}), capability.ErrNotAvailable)
	assert.NoError(t, s.Exec(ctx, nil))
}

func TestLocalBusRejectsInvalidPin(t *testing.T) {
	drv := gpio.NewMockDriver()
	bus := gpio.NewBus(drv, nil)
	s := NewSession(fakeClient{gpio.Name: gpio.GPIO(bus)}, &bytes.Buffer{})
	ctx := context.Background()

	require.NoError(t, s.Exec(ctx, []string{"gpio", "setup"}))
	err := s.Exec(ctx, []string{"gpio", "write", "99", "1"})
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestSensorCommands(t *testing.T) {
	dev := sensor.NewMockDevice()
	dev.SetHumidity(41.5)
	dev.SetTemperature(21.5)

	var out bytes.Buffer
	s := NewSession(fakeClient{sensor.Name: sensor.Sensor(sensor.New(dev, sensor.DefaultConfig()))}, &out)
	ctx := context.Background()

	require.NoError(t, s.Exec(ctx, []string{"sensor", "setup", "4"}))
	require.NoError(t, s.Exec(ctx, []string{"sensor", "read"}))
	assert.Contains(t, out.String(), "humidity: 41.5 %")
	assert.Contains(t, out.String(), "temperature: 21.5")
}

func TestTouchEcho(t *testing.T) {
	hw := panel.NewMock()
	hat := panel.New(hw.Drivers(), nil)
	defer hat.Finalize()

	out := &syncBuffer{}
	s := NewSession(fakeClient{panel.Name: panel.Panel(hat)}, out)
	ctx := context.Background()

	require.NoError(t, s.Exec(ctx, []string{"panel", "touch"}))
	assert.True(t, s.Echoing(4))
	assert.True(t, hat.HasHandler(4))

	hw.Press(4, panel.EventPress)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "touch select (4): press")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Exec(ctx, []string{"panel", "touch", "off"}))
	assert.False(t, s.Echoing(4))
	assert.False(t, hat.HasHandler(4))
}

func TestServicesCommand(t *testing.T) {
	var out bytes.Buffer
	s := NewSession(fakeClient{gpio.Name: nil, panel.Name: nil}, &out)
	require.NoError(t, s.Exec(context.Background(), []string{"services"}))
	assert.Equal(t, "GpioBus\nPanel\n", out.String())
}
