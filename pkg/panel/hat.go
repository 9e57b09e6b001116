package panel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
)

// HAT is the panel implementation: it keeps the LCD framebuffer, the
// backlight colors and the touch handlers, and drives the hardware
// through Drivers.
type HAT struct {
	drivers Drivers
	logger  *slog.Logger

	mu               sync.Mutex
	fb               [Width * Height / 8]byte
	zones            [BacklightZones]Color
	leds             [Buttons]bool
	lcdCleared       bool
	backlightCleared bool

	handlersMu sync.RWMutex
	handlers   [Buttons]TouchHandler

	done      chan struct{}
	wg        sync.WaitGroup
	finalized bool
}

// New creates a HAT over d and starts touch event delivery.
func New(d Drivers, logger *slog.Logger) *HAT {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &HAT{
		drivers:          d,
		logger:           logger.With(slog.String("component", "panel")),
		lcdCleared:       true,
		backlightCleared: true,
		done:             make(chan struct{}),
	}
	h.wg.Add(1)
	go h.deliver()
	return h
}

// deliver dispatches touch events without holding the handler lock while
// a handler runs.
func (h *HAT) deliver() {
	defer h.wg.Done()
	events := h.drivers.Touch.Events()
	for {
		select {
		case <-h.done:
			return
		case ev := <-events:
			if ev.Button < 0 || ev.Button >= Buttons {
				continue
			}
			h.handlersMu.RLock()
			fn := h.handlers[ev.Button]
			h.handlersMu.RUnlock()
			if fn == nil {
				h.logger.Debug("no handler for button", slog.Int("button", ev.Button))
				continue
			}
			h.dispatch(fn, ev)
		}
	}
}

func (h *HAT) dispatch(fn TouchHandler, ev TouchEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("touch handler panicked", slog.Int("button", ev.Button), slog.Any("panic", r))
		}
	}()
	fn(ev.Button, ev.Event)
}

// LCDFont returns the font file of name.
func (h *HAT) LCDFont(ctx context.Context, name string) (string, error) {
	h.logger.Debug("lcd_font", slog.String("name", name))
	return fontFile(name)
}

// LCDDimensions returns the display size in pixels.
func (h *HAT) LCDDimensions(ctx context.Context) (int, int, error) {
	return Width, Height, nil
}

// LCDClear blanks the framebuffer. The display changes on the next show.
func (h *HAT) LCDClear(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fb = [Width * Height / 8]byte{}
	h.lcdCleared = true
	return true, nil
}

// LCDShow pushes the framebuffer to the display.
func (h *HAT) LCDShow(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.drivers.LCD.Show(h.fb[:]); err != nil {
		return false, fmt.Errorf("lcd show: %w", err)
	}
	h.lcdCleared = false
	return true, nil
}

// LCDSetPixel sets one framebuffer pixel.
func (h *HAT) LCDSetPixel(ctx context.Context, x, y int, state bool) (bool, error) {
	if err := checkLCDPixel(x, y); err != nil {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setPixel(x, y, state)
	return true, nil
}

// LCDSetPixels sets the pixels (xs[i], ys[i]). Nothing is drawn unless
// every pixel is valid.
func (h *HAT) LCDSetPixels(ctx context.Context, xs, ys []int, state bool) (bool, error) {
	if err := checkPixelLists(xs, ys); err != nil {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range xs {
		h.setPixel(xs[i], ys[i], state)
	}
	return true, nil
}

func (h *HAT) setPixel(x, y int, state bool) {
	offset := (y/8)*Width + x
	bit := byte(1) << (y % 8)
	if state {
		h.fb[offset] |= bit
	} else {
		h.fb[offset] &^= bit
	}
}

// BacklightClear turns every zone off in the buffer.
func (h *HAT) BacklightClear(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.zones = [BacklightZones]Color{}
	h.backlightCleared = true
	return true, nil
}

// BacklightSetPixel sets the color of zone x.
func (h *HAT) BacklightSetPixel(ctx context.Context, x, r, g, b int) (bool, error) {
	if err := checkZone(x); err != nil {
		return false, err
	}
	if err := checkColor(r, g, b); err != nil {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.zones[x] = Color{uint8(r), uint8(g), uint8(b)}
	return true, nil
}

// BacklightSetPixels sets the color of several zones.
func (h *HAT) BacklightSetPixels(ctx context.Context, xs []int, r, g, b int) (bool, error) {
	for _, x := range xs {
		if err := checkZone(x); err != nil {
			return false, err
		}
	}
	if err := checkColor(r, g, b); err != nil {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, x := range xs {
		h.zones[x] = Color{uint8(r), uint8(g), uint8(b)}
	}
	return true, nil
}

// BacklightSetAll sets every zone to one color.
func (h *HAT) BacklightSetAll(ctx context.Context, r, g, b int) (bool, error) {
	if err := checkColor(r, g, b); err != nil {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for x := range h.zones {
		h.zones[x] = Color{uint8(r), uint8(g), uint8(b)}
	}
	return true, nil
}

// BacklightShow pushes the zone colors to the LEDs.
func (h *HAT) BacklightShow(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.drivers.Backlight.Show(h.zones); err != nil {
		return false, fmt.Errorf("backlight show: %w", err)
	}
	h.backlightCleared = false
	return true, nil
}

// BacklightSetup initializes the LED driver.
func (h *HAT) BacklightSetup(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.drivers.Backlight.Setup(); err != nil {
		return false, fmt.Errorf("backlight setup: %w", err)
	}
	return true, nil
}

// TouchOn sets the handler of button, replacing the previous one.
func (h *HAT) TouchOn(ctx context.Context, button int, handler TouchHandler) (bool, error) {
	if err := CheckButton(button); err != nil {
		return false, err
	}
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	if handler == nil && h.handlers[button] != nil {
		h.logger.Debug("disconnecting touch handler", slog.Int("button", button))
	}
	h.handlers[button] = handler
	return true, nil
}

// HasHandler reports whether button has a handler.
func (h *HAT) HasHandler(button int) bool {
	if button < 0 || button >= Buttons {
		return false
	}
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	return h.handlers[button] != nil
}

// TouchSetup initializes the touch controller.
func (h *HAT) TouchSetup(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.drivers.Touch.Setup(); err != nil {
		return false, fmt.Errorf("touch setup: %w", err)
	}
	return true, nil
}

// TouchSetLED switches the LED of one button.
func (h *HAT) TouchSetLED(ctx context.Context, led int, state bool) (bool, error) {
	if err := CheckButton(led); err != nil {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.setLED(led, state); err != nil {
		return false, err
	}
	return true, nil
}

// TouchSetLEDs switches several LEDs.
func (h *HAT) TouchSetLEDs(ctx context.Context, leds []int, state bool) (bool, error) {
	for _, led := range leds {
		if err := CheckButton(led); err != nil {
			return false, err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, led := range leds {
		if err := h.setLED(led, state); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (h *HAT) setLED(led int, state bool) error {
	if err := h.drivers.Touch.SetLED(led, state); err != nil {
		return fmt.Errorf("led %d: %w", led, err)
	}
	h.leds[led] = state
	return nil
}

// TouchEnableRepeat turns held-event repetition on or off.
func (h *HAT) TouchEnableRepeat(ctx context.Context, flag bool) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.drivers.Touch.EnableRepeat(flag); err != nil {
		return false, fmt.Errorf("touch repeat: %w", err)
	}
	return true, nil
}

// TouchGetName returns the label of button index.
func (h *HAT) TouchGetName(ctx context.Context, index int) (string, error) {
	if err := CheckButton(index); err != nil {
		return "", err
	}
	return ButtonNames[index], nil
}

// TouchHighSensitivity raises the touch controller gain.
func (h *HAT) TouchHighSensitivity(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.drivers.Touch.HighSensitivity(); err != nil {
		return false, fmt.Errorf("touch sensitivity: %w", err)
	}
	return true, nil
}

// TouchSetRepeatRate sets the interval of held events, 35 to 560 ms.
func (h *HAT) TouchSetRepeatRate(ctx context.Context, rate int) (bool, error) {
	if err := checkRate(rate); err != nil {
		return false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.drivers.Touch.SetRepeatRate(rate); err != nil {
		return false, fmt.Errorf("touch repeat rate: %w", err)
	}
	return true, nil
}

// Disconnect releases what a departed client held: the handlers of
// buttons are removed, every LED is turned off and the backlight and the
// LCD are blanked. Each step runs even when an earlier one failed.
func (h *HAT) Disconnect(ctx context.Context, buttons []int) error {
	if len(buttons) == 0 {
		buttons = []int{}
	}
	return multierr.Combine(
		h.resetTouch(ctx, buttons),
		h.blankBacklight(ctx),
		h.blankLCD(ctx),
	)
}

// resetTouch disconnects the given handlers (all when buttons is nil) and
// turns every LED off.
func (h *HAT) resetTouch(ctx context.Context, buttons []int) error {
	if buttons == nil {
		buttons = []int{0, 1, 2, 3, 4, 5}
	}
	var err error
	for _, b := range buttons {
		_, e := h.TouchOn(ctx, b, nil)
		err = multierr.Append(err, e)
	}
	for led := 0; led < Buttons; led++ {
		_, e := h.TouchSetLED(ctx, led, false)
		err = multierr.Append(err, e)
	}
	return err
}

func (h *HAT) blankBacklight(ctx context.Context) error {
	if _, err := h.BacklightClear(ctx); err != nil {
		return err
	}
	_, err := h.BacklightShow(ctx)
	return err
}

func (h *HAT) blankLCD(ctx context.Context) error {
	if _, err := h.LCDClear(ctx); err != nil {
		return err
	}
	_, err := h.LCDShow(ctx)
	return err
}

// Finalize disconnects the handlers, turns the LEDs off, blanks whatever
// was shown since its last clear, stops event delivery and closes the
// drivers.
func (h *HAT) Finalize() error {
	h.mu.Lock()
	if h.finalized {
		h.mu.Unlock()
		return nil
	}
	h.finalized = true
	backlightShown := !h.backlightCleared
	lcdShown := !h.lcdCleared
	h.mu.Unlock()

	ctx := context.Background()
	h.logger.Debug("finalizing")
	err := h.resetTouch(ctx, nil)
	if backlightShown {
		err = multierr.Append(err, h.blankBacklight(ctx))
	}
	if lcdShown {
		err = multierr.Append(err, h.blankLCD(ctx))
	}

	close(h.done)
	h.wg.Wait()

	err = multierr.Combine(err,
		h.drivers.Touch.Close(),
		h.drivers.Backlight.Close(),
		h.drivers.LCD.Close(),
	)
	if h.drivers.Release != nil {
		err = multierr.Append(err, h.drivers.Release())
	}
	if err != nil {
		h.logger.Error("finalize", slog.Any("error", err))
	}
	return err
}

var _ Panel = (*HAT)(nil)
