package panel

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// CAP1166 registers.
const (
	capMainControl  = 0x00
	capInputStatus  = 0x03
	capSensitivity  = 0x1f
	capInputEnable  = 0x21
	capInputConfig  = 0x22
	capInterruptEn  = 0x27
	capRepeatEnable = 0x28
	capLEDLinking   = 0x72
	capLEDOutput    = 0x74
	capProductID    = 0xfd

	capProductCAP1166 = 0x51
	capMainInt        = 0x01
	capHighGain       = 0xc0

	// CAP1166Addr is the I2C address of the touch controller.
	CAP1166Addr = 0x2c
)

// Touch timing.
const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultHoldDelay    = 500 * time.Millisecond
	defaultRepeatRate   = 210 * time.Millisecond
	touchEventQueue     = 32
)

// touchLEDMap gives the controller LED output of each button.
var touchLEDMap = [Buttons]uint{5, 4, 3, 2, 1, 0}

// CAP1166 polls the six-channel capacitive touch controller and turns
// its input status into press, release and held events.
type CAP1166 struct {
	dev          Tx
	logger       *slog.Logger
	pollInterval time.Duration
	holdDelay    time.Duration
	now          func() time.Time

	mu         sync.Mutex
	repeat     bool
	repeatRate time.Duration
	pressed    [Buttons]bool
	nextHeld   [Buttons]time.Time
	watching   bool

	events chan TouchEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewCAP1166 returns a driver talking to dev. Polling starts on Setup.
func NewCAP1166(dev Tx, logger *slog.Logger) *CAP1166 {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CAP1166{
		dev:          dev,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		holdDelay:    DefaultHoldDelay,
		repeatRate:   defaultRepeatRate,
		now:          time.Now,
		events:       make(chan TouchEvent, touchEventQueue),
		stop:         make(chan struct{}),
	}
}

func (d *CAP1166) read(reg byte) (byte, error) {
	var b [1]byte
	if err := d.dev.Tx([]byte{reg}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *CAP1166) write(reg, v byte) error {
	return d.dev.Tx([]byte{reg, v}, nil)
}

// Setup checks the product ID, enables the inputs and starts polling.
func (d *CAP1166) Setup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watching {
		return nil
	}
	id, err := d.read(capProductID)
	if err != nil {
		return fmt.Errorf("cap1166 product id: %w", err)
	}
	if id != capProductCAP1166 {
		return fmt.Errorf("cap1166: unexpected product id %#02x", id)
	}
	for _, w := range [][2]byte{
		{capInputEnable, 0x3f},
		{capInterruptEn, 0x3f},
		{capRepeatEnable, 0x00},
		{capLEDLinking, 0x00},
		{capLEDOutput, 0x00},
	} {
		if err := d.write(w[0], w[1]); err != nil {
			return fmt.Errorf("cap1166 register %#02x: %w", w[0], err)
		}
	}
	d.watching = true
	d.wg.Add(1)
	go d.poll()
	return nil
}

func (d *CAP1166) poll() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			status, err := d.read(capInputStatus)
			if err != nil {
				d.logger.Debug("cap1166 poll", slog.Any("error", err))
				continue
			}
			d.clearInterrupt()
			d.update(status)
		}
	}
}

func (d *CAP1166) clearInterrupt() {
	main, err := d.read(capMainControl)
	if err != nil {
		return
	}
	if main&capMainInt != 0 {
		_ = d.write(capMainControl, main&^capMainInt)
	}
}

// update derives events from one input status sample.
func (d *CAP1166) update(status byte) {
	d.mu.Lock()
	now := d.now()
	var out []TouchEvent
	for b := 0; b < Buttons; b++ {
		down := status&(1<<b) != 0
		switch {
		case down && !d.pressed[b]:
			d.pressed[b] = true
			d.nextHeld[b] = now.Add(d.holdDelay)
			out = append(out, TouchEvent{Button: b, Event: EventPress})
		case !down && d.pressed[b]:
			d.pressed[b] = false
			out = append(out, TouchEvent{Button: b, Event: EventRelease})
		case down && !d.nextHeld[b].IsZero() && !now.Before(d.nextHeld[b]):
			out = append(out, TouchEvent{Button: b, Event: EventHeld})
			if d.repeat {
				d.nextHeld[b] = now.Add(d.repeatRate)
			} else {
				d.nextHeld[b] = time.Time{}
			}
		}
	}
	d.mu.Unlock()

	for _, ev := range out {
		select {
		case d.events <- ev:
		default:
			d.logger.Warn("touch event queue full, dropping", slog.Int("button", ev.Button), slog.String("event", string(ev.Event)))
		}
	}
}

// SetLED switches the LED next to button led.
func (d *CAP1166) SetLED(led int, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, err := d.read(capLEDOutput)
	if err != nil {
		return err
	}
	bit := byte(1) << touchLEDMap[led]
	if on {
		cur |= bit
	} else {
		cur &^= bit
	}
	return d.write(capLEDOutput, cur)
}

// EnableRepeat makes held events repeat at the repeat rate.
func (d *CAP1166) EnableRepeat(flag bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.repeat = flag
	return nil
}

// SetRepeatRate sets the repeat interval, in 35 ms steps.
func (d *CAP1166) SetRepeatRate(ms int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	steps := int(math.Round(float64(ms)/35)) - 1
	cfg, err := d.read(capInputConfig)
	if err != nil {
		return err
	}
	if err := d.write(capInputConfig, cfg&^0x0f|byte(steps)&0x0f); err != nil {
		return err
	}
	d.repeatRate = time.Duration(steps+1) * 35 * time.Millisecond
	return nil
}

// HighSensitivity selects the highest gain and sensitivity.
func (d *CAP1166) HighSensitivity() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.write(capMainControl, capHighGain); err != nil {
		return err
	}
	return d.write(capSensitivity, 0x00)
}

func (d *CAP1166) Events() <-chan TouchEvent {
	return d.events
}

// Close stops polling and turns the LEDs off.
func (d *CAP1166) Close() error {
	d.mu.Lock()
	watching := d.watching
	d.watching = false
	d.mu.Unlock()
	if watching {
		close(d.stop)
		d.wg.Wait()
	}
	return d.write(capLEDOutput, 0x00)
}

var _ TouchDriver = (*CAP1166)(nil)
