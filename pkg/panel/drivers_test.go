package panel

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

// fakeBus records writes and answers register reads from regs.
type fakeBus struct {
	mu     sync.Mutex
	writes [][]byte
	regs   map[byte]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: make(map[byte]byte)}
}

func (b *fakeBus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = append(b.writes, append([]byte(nil), w...))
	if len(r) > 0 && len(w) == 1 {
		r[0] = b.regs[w[0]]
	}
	if len(w) == 2 && len(r) == 0 {
		b.regs[w[0]] = w[1]
	}
	return nil
}

func (b *fakeBus) reg(r byte) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[r]
}

type fakePin struct {
	levels []gpio.Level
}

func (p *fakePin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return nil
}

func TestST7567Show(t *testing.T) {
	spi := newFakeBus()
	dc, rst := &fakePin{}, &fakePin{}
	lcd, err := NewST7567(spi, dc, rst, nil)
	require.NoError(t, err)
	assert.Equal(t, []gpio.Level{gpio.Low, gpio.High}, rst.levels)

	spi.writes = nil
	dc.levels = nil
	buf := make([]byte, Width*Height/8)
	buf[Width] = 0xff // page 1, column 0
	require.NoError(t, lcd.Show(buf))

	// RMW enter, 8 x (address, data), RMW exit.
	require.Len(t, spi.writes, 1+8*2+1)
	assert.Equal(t, []byte{st7567EnterRMW}, spi.writes[0])
	assert.Equal(t, []byte{st7567PageStart | 1, st7567ColumnLow, st7567ColumnHigh}, spi.writes[3])
	assert.Equal(t, byte(0xff), spi.writes[4][0])
	assert.Len(t, spi.writes[4], Width)
	assert.Equal(t, []byte{st7567ExitRMW}, spi.writes[len(spi.writes)-1])
	assert.Equal(t, gpio.High, dc.levels[2], "data phase")

	assert.Error(t, lcd.Show(make([]byte, 10)))
}

func TestSN3218Show(t *testing.T) {
	bus := newFakeBus()
	bl := NewSN3218(bus)
	require.NoError(t, bl.Setup())

	bus.writes = nil
	var zones [BacklightZones]Color
	zones[0] = Color{R: 1, G: 2, B: 3}
	require.NoError(t, bl.Show(zones))

	require.Len(t, bus.writes, 2)
	pwm := bus.writes[0]
	assert.Equal(t, byte(sn3218PWMBase), pwm[0])
	require.Len(t, pwm, 1+sn3218Channels)
	// Zone 0 sits on channel triplet 2, stored b, g, r.
	assert.True(t, bytes.Equal([]byte{3, 2, 1}, pwm[1+6:1+9]))
	assert.Equal(t, []byte{sn3218Update, 0xff}, bus.writes[1])
}

func TestCAP1166Events(t *testing.T) {
	bus := newFakeBus()
	d := NewCAP1166(bus, nil)
	now := time.Unix(0, 0)
	d.now = func() time.Time { return now }

	d.update(0b000001)
	now = now.Add(100 * time.Millisecond)
	d.update(0b000001)
	now = now.Add(DefaultHoldDelay)
	d.update(0b000001)
	now = now.Add(time.Second)
	d.update(0b000001) // no repeat
	d.update(0b000000)

	var got []TouchEvent
	for len(d.events) > 0 {
		got = append(got, <-d.events)
	}
	assert.Equal(t, []TouchEvent{
		{0, EventPress},
		{0, EventHeld},
		{0, EventRelease},
	}, got)
}

func TestCAP1166Repeat(t *testing.T) {
	bus := newFakeBus()
	d := NewCAP1166(bus, nil)
	now := time.Unix(0, 0)
	d.now = func() time.Time { return now }
	require.NoError(t, d.EnableRepeat(true))
	require.NoError(t, d.SetRepeatRate(70))
	assert.Equal(t, byte(1), bus.reg(capInputConfig)&0x0f)

	d.update(0b100000)
	for i := 0; i < 3; i++ {
		now = now.Add(DefaultHoldDelay)
		d.update(0b100000)
	}
	var held int
	for len(d.events) > 0 {
		if ev := <-d.events; ev.Event == EventHeld {
			assert.Equal(t, 5, ev.Button)
			held++
		}
	}
	assert.Equal(t, 3, held)
}

func TestCAP1166SetupAndLEDs(t *testing.T) {
	bus := newFakeBus()
	bus.regs[capProductID] = 0x00
	d := NewCAP1166(bus, nil)
	assert.Error(t, d.Setup(), "wrong product id")

	bus.regs[capProductID] = capProductCAP1166
	require.NoError(t, d.Setup())
	assert.Equal(t, byte(0x3f), bus.reg(capInputEnable))

	require.NoError(t, d.SetLED(0, true))
	assert.Equal(t, byte(1<<5), bus.reg(capLEDOutput))
	require.NoError(t, d.SetLED(5, true))
	require.NoError(t, d.SetLED(0, false))
	assert.Equal(t, byte(1), bus.reg(capLEDOutput))

	require.NoError(t, d.HighSensitivity())
	assert.Equal(t, byte(capHighGain), bus.reg(capMainControl))

	require.NoError(t, d.Close())
	assert.Equal(t, byte(0), bus.reg(capLEDOutput))
}
