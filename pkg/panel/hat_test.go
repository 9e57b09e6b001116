package panel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatrpc/hatrpc-go/pkg/model"
)

func newMockHAT(t *testing.T) (*HAT, *Mock) {
	t.Helper()
	m := NewMock()
	h := New(m.Drivers(), nil)
	t.Cleanup(func() { _ = h.Finalize() })
	return h, m
}

func TestLCDDrawAndShow(t *testing.T) {
	ctx := context.Background()
	h, m := newMockHAT(t)

	ok, err := h.LCDSetPixel(ctx, 10, 20, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, m.Pixel(10, 20), "not shown yet")

	_, err = h.LCDShow(ctx)
	require.NoError(t, err)
	assert.True(t, m.Pixel(10, 20))

	_, _ = h.LCDSetPixels(ctx, []int{0, 127}, []int{0, 63}, true)
	_, _ = h.LCDSetPixel(ctx, 10, 20, false)
	_, _ = h.LCDShow(ctx)
	assert.True(t, m.Pixel(0, 0))
	assert.True(t, m.Pixel(127, 63))
	assert.False(t, m.Pixel(10, 20))

	_, _ = h.LCDClear(ctx)
	_, _ = h.LCDShow(ctx)
	assert.Equal(t, make([]byte, Width*Height/8), m.Snapshot())

	w, hh, err := h.LCDDimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, [2]int{128, 64}, [2]int{w, hh})
}

func TestLCDRejectsPixels(t *testing.T) {
	ctx := context.Background()
	h, m := newMockHAT(t)

	for _, xy := range [][2]int{{128, 0}, {-1, 0}, {0, 64}, {0, -1}} {
		_, err := h.LCDSetPixel(ctx, xy[0], xy[1], true)
		assert.EqualError(t, err, "Pixel must be a valid number in range 0 to 5.")
	}

	_, err := h.LCDSetPixels(ctx, []int{1, 2}, []int{1}, true)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)

	_, err = h.LCDSetPixels(ctx, []int{1, 200}, []int{1, 1}, true)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
	_, _ = h.LCDShow(ctx)
	assert.False(t, m.Pixel(1, 1), "batch rejected as a whole")
}

func TestBacklight(t *testing.T) {
	ctx := context.Background()
	h, m := newMockHAT(t)

	_, err := h.BacklightSetup(ctx)
	require.NoError(t, err)
	_, _ = h.BacklightSetAll(ctx, 1, 2, 3)
	_, _ = h.BacklightSetPixel(ctx, 0, 255, 0, 0)
	_, _ = h.BacklightSetPixels(ctx, []int{4, 5}, 0, 0, 255)
	_, err = h.BacklightShow(ctx)
	require.NoError(t, err)

	zones := m.Zones()
	assert.Equal(t, Color{255, 0, 0}, zones[0])
	assert.Equal(t, Color{1, 2, 3}, zones[1])
	assert.Equal(t, Color{0, 0, 255}, zones[5])

	_, err = h.BacklightSetPixel(ctx, 6, 0, 0, 0)
	assert.EqualError(t, err, "Pixel must be a valid number in range 0 to 5.")
	_, err = h.BacklightSetAll(ctx, 0, 256, 0)
	assert.EqualError(t, err, "Color must be a valid number in range 0 to 255.")
	_, err = h.BacklightSetPixels(ctx, []int{1, 9}, 0, 0, 0)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestTouchSettings(t *testing.T) {
	ctx := context.Background()
	h, m := newMockHAT(t)

	_, _ = h.TouchSetup(ctx)
	_, _ = h.TouchEnableRepeat(ctx, true)
	_, err := h.TouchSetRepeatRate(ctx, 70)
	require.NoError(t, err)
	_, _ = h.TouchHighSensitivity(ctx)
	repeat, rate := m.Repeat()
	assert.True(t, repeat)
	assert.Equal(t, 70, rate)
	assert.True(t, m.HighSensitivity())

	_, err = h.TouchSetRepeatRate(ctx, 20)
	assert.EqualError(t, err, "Rate must be a valid number in range 35 to 560.")

	_, _ = h.TouchSetLEDs(ctx, []int{0, 2}, true)
	assert.True(t, m.LED(0))
	assert.False(t, m.LED(1))
	assert.True(t, m.LED(2))

	_, err = h.TouchSetLED(ctx, 6, true)
	assert.EqualError(t, err, "Button must be a valid number in range 0 to 5.")

	name, err := h.TouchGetName(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "select", name)
}

func TestLCDFont(t *testing.T) {
	h, _ := newMockHAT(t)
	for _, name := range FontNames() {
		f, err := h.LCDFont(context.Background(), name)
		require.NoError(t, err)
		assert.NotEmpty(t, f)
	}
	_, err := h.LCDFont(context.Background(), "ComicSans")
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

type recorder struct {
	mu     sync.Mutex
	events []TouchEvent
}

func (r *recorder) handle(button int, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, TouchEvent{button, ev})
}

func (r *recorder) all() []TouchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TouchEvent(nil), r.events...)
}

func TestTouchDelivery(t *testing.T) {
	ctx := context.Background()
	h, m := newMockHAT(t)

	var rec recorder
	_, err := h.TouchOn(ctx, 2, rec.handle)
	require.NoError(t, err)
	assert.True(t, h.HasHandler(2))

	m.Press(2, EventPress)
	m.Press(3, EventPress) // no handler
	m.Press(2, EventRelease)

	require.Eventually(t, func() bool { return len(rec.all()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []TouchEvent{{2, EventPress}, {2, EventRelease}}, rec.all())

	_, _ = h.TouchOn(ctx, 2, nil)
	assert.False(t, h.HasHandler(2))

	_, err = h.TouchOn(ctx, 7, rec.handle)
	assert.EqualError(t, err, "Button must be a valid number in range 0 to 5.")
}

func TestTouchHandlerMayReenter(t *testing.T) {
	ctx := context.Background()
	h, m := newMockHAT(t)

	done := make(chan struct{})
	_, _ = h.TouchOn(ctx, 0, func(button int, ev Event) {
		// Disconnecting from inside a handler must not deadlock.
		_, _ = h.TouchOn(ctx, button, nil)
		_, _ = h.TouchSetLED(ctx, button, true)
		close(done)
	})
	m.Press(0, EventPress)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
	}
	assert.False(t, h.HasHandler(0))
}

func TestTouchHandlerPanicRecovered(t *testing.T) {
	ctx := context.Background()
	h, m := newMockHAT(t)

	var rec recorder
	_, _ = h.TouchOn(ctx, 1, func(int, Event) { panic("boom") })
	_, _ = h.TouchOn(ctx, 2, rec.handle)
	m.Press(1, EventPress)
	m.Press(2, EventHeld)

	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, h.HasHandler(1), "handler stays registered")
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("blanks what was shown", func(t *testing.T) {
		m := NewMock()
		h := New(m.Drivers(), nil)
		_, _ = h.TouchOn(ctx, 0, func(int, Event) {})
		_, _ = h.TouchSetLED(ctx, 3, true)
		_, _ = h.BacklightSetAll(ctx, 9, 9, 9)
		_, _ = h.BacklightShow(ctx)
		_, _ = h.LCDSetPixel(ctx, 5, 5, true)
		_, _ = h.LCDShow(ctx)

		require.NoError(t, h.Finalize())
		assert.False(t, h.HasHandler(0))
		assert.False(t, m.LED(3))
		assert.Equal(t, [BacklightZones]Color{}, m.Zones())
		assert.False(t, m.Pixel(5, 5))
		assert.True(t, m.Closed())

		// Second call is a no-op.
		shows := m.LCDShows()
		require.NoError(t, h.Finalize())
		assert.Equal(t, shows, m.LCDShows())
	})

	t.Run("leaves cleared displays alone", func(t *testing.T) {
		m := NewMock()
		h := New(m.Drivers(), nil)
		_, _ = h.LCDShow(ctx)
		_, _ = h.LCDClear(ctx)
		require.NoError(t, h.Finalize())
		assert.Equal(t, 1, m.LCDShows())
	})
}
