package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/hatrpc/hatrpc-go/pkg/capability"
	"github.com/hatrpc/hatrpc-go/pkg/gpio"
	"github.com/hatrpc/hatrpc-go/pkg/panel"
	"github.com/hatrpc/hatrpc-go/pkg/sensor"
)

// Command errors.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// Client is what a Session needs from an invoker.
type Client interface {
	capability.Resolver
	Services(ctx context.Context) ([]string, error)
}

// Session runs capability commands against a client and prints the
// results. One-shot commands and the shell share it.
type Session struct {
	client Client

	outMu sync.Mutex
	out   io.Writer

	echoMu sync.Mutex
	echo   [panel.Buttons]bool
}

// NewSession creates a session writing to out.
func NewSession(client Client, out io.Writer) *Session {
	return &Session{client: client, out: out}
}

func (s *Session) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func usage(format string) error {
	return fmt.Errorf("%w: %s", ErrUsage, format)
}

// Exec runs one command line, already split into fields.
func (s *Session) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "gpio", "g":
		return s.cmdGPIO(ctx, rest)
	case "sensor", "s":
		return s.cmdSensor(ctx, rest)
	case "panel", "p":
		return s.cmdPanel(ctx, rest)
	case "services", "ls":
		return s.cmdServices(ctx)
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
}

func (s *Session) cmdServices(ctx context.Context) error {
	names, err := s.client.Services(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		s.printf("%s\n", name)
	}
	return nil
}

func (s *Session) cmdGPIO(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("gpio setup|mode|write|read ...")
	}
	bus, err := gpio.Resolve(s.client)
	if err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "setup":
		numbering := "wiringpi"
		if len(args) > 1 {
			numbering = strings.ToLower(args[1])
		}
		var ok bool
		switch numbering {
		case "wiringpi":
			ok, err = bus.Setup(ctx)
		case "sys":
			ok, err = bus.SetupSys(ctx)
		case "gpio":
			ok, err = bus.SetupGpio(ctx)
		default:
			return usage("gpio setup [wiringpi|sys|gpio]")
		}
		return s.result(ok, err)

	case "mode":
		if len(args) != 3 {
			return usage("gpio mode <pin> <in|out|pwm>")
		}
		pin, err := strconv.Atoi(args[1])
		if err != nil {
			return usage("gpio mode <pin> <in|out|pwm>")
		}
		mode, err := parseMode(args[2])
		if err != nil {
			return err
		}
		return s.result(bus.PinMode(ctx, pin, int(mode)))

	case "write", "w":
		if len(args) != 3 {
			return usage("gpio write <pin[,pin...]> <0|1>")
		}
		pins, err := parseInts(args[1])
		if err != nil {
			return usage("gpio write <pin[,pin...]> <0|1>")
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return usage("gpio write <pin[,pin...]> <0|1>")
		}
		if len(pins) == 1 {
			return s.result(bus.DigitalWrite(ctx, pins[0], value))
		}
		return s.result(bus.DigitalWrites(ctx, pins, value))

	case "read", "r":
		if len(args) != 2 {
			return usage("gpio read <pin[,pin...]>")
		}
		pins, err := parseInts(args[1])
		if err != nil {
			return usage("gpio read <pin[,pin...]>")
		}
		if len(pins) == 1 {
			v, err := bus.DigitalRead(ctx, pins[0])
			if err != nil {
				return err
			}
			s.printf("%d: %d\n", pins[0], v)
			return nil
		}
		values, err := bus.DigitalReads(ctx, pins)
		if err != nil {
			return err
		}
		for i, pin := range pins {
			s.printf("%d: %d\n", pin, values[i])
		}
		return nil
	}
	return usage("gpio setup|mode|write|read ...")
}

func (s *Session) cmdSensor(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("sensor setup <pin> | read | humidity | temperature")
	}
	th, err := sensor.Resolve(s.client)
	if err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "setup":
		if len(args) != 2 {
			return usage("sensor setup <pin>")
		}
		pin, err := strconv.Atoi(args[1])
		if err != nil {
			return usage("sensor setup <pin>")
		}
		return s.result(th.Setup(ctx, pin))
	case "humidity", "h":
		v, err := th.Humidity(ctx)
		if err != nil {
			return err
		}
		s.printf("humidity: %.1f %%\n", v)
		return nil
	case "temperature", "temp", "t":
		v, err := th.Temperature(ctx)
		if err != nil {
			return err
		}
		s.printf("temperature: %.1f °C\n", v)
		return nil
	case "read":
		h, err := th.Humidity(ctx)
		if err != nil {
			return err
		}
		t, err := th.Temperature(ctx)
		if err != nil {
			return err
		}
		s.printf("humidity: %.1f %%  temperature: %.1f °C\n", h, t)
		return nil
	}
	return usage("sensor setup <pin> | read | humidity | temperature")
}

func (s *Session) cmdPanel(ctx context.Context, args []string) error {
	const panelUsage = "panel dims|clear|show|pixel|font|backlight|led|touch|name|repeat ..."
	if len(args) == 0 {
		return usage(panelUsage)
	}
	p, err := panel.Resolve(s.client)
	if err != nil {
		return err
	}

	switch strings.ToLower(args[0]) {
	case "dims":
		w, h, err := p.LCDDimensions(ctx)
		if err != nil {
			return err
		}
		s.printf("%dx%d\n", w, h)
		return nil

	case "clear":
		if _, err := p.LCDClear(ctx); err != nil {
			return err
		}
		return s.result(p.BacklightClear(ctx))

	case "show":
		if _, err := p.LCDShow(ctx); err != nil {
			return err
		}
		return s.result(p.BacklightShow(ctx))

	case "pixel":
		if len(args) != 4 {
			return usage("panel pixel <x> <y> <on|off>")
		}
		x, errX := strconv.Atoi(args[1])
		y, errY := strconv.Atoi(args[2])
		on, errS := parseOnOff(args[3])
		if errX != nil || errY != nil || errS != nil {
			return usage("panel pixel <x> <y> <on|off>")
		}
		return s.result(p.LCDSetPixel(ctx, x, y, on))

	case "font":
		if len(args) != 2 {
			return usage("panel font <name>")
		}
		path, err := p.LCDFont(ctx, args[1])
		if err != nil {
			return err
		}
		s.printf("%s\n", path)
		return nil

	case "backlight", "bl":
		if len(args) < 4 || len(args) > 5 {
			return usage("panel backlight <r> <g> <b> [zone[,zone...]]")
		}
		rgb, err := parseInts(strings.Join(args[1:4], ","))
		if err != nil {
			return usage("panel backlight <r> <g> <b> [zone[,zone...]]")
		}
		if len(args) == 5 {
			zones, err := parseInts(args[4])
			if err != nil {
				return usage("panel backlight <r> <g> <b> [zone[,zone...]]")
			}
			return s.result(p.BacklightSetPixels(ctx, zones, rgb[0], rgb[1], rgb[2]))
		}
		return s.result(p.BacklightSetAll(ctx, rgb[0], rgb[1], rgb[2]))

	case "led":
		if len(args) != 3 {
			return usage("panel led <led[,led...]> <on|off>")
		}
		leds, err := parseInts(args[1])
		on, errS := parseOnOff(args[2])
		if err != nil || errS != nil {
			return usage("panel led <led[,led...]> <on|off>")
		}
		if len(leds) == 1 {
			return s.result(p.TouchSetLED(ctx, leds[0], on))
		}
		return s.result(p.TouchSetLEDs(ctx, leds, on))

	case "touch":
		on := true
		if len(args) > 1 {
			if on, err = parseOnOff(args[1]); err != nil {
				return usage("panel touch [on|off]")
			}
		}
		return s.touchEcho(ctx, p, on)

	case "name":
		if len(args) != 2 {
			return usage("panel name <button>")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return usage("panel name <button>")
		}
		name, err := p.TouchGetName(ctx, idx)
		if err != nil {
			return err
		}
		s.printf("%s\n", name)
		return nil

	case "repeat":
		if len(args) != 2 {
			return usage("panel repeat <on|off|rate-ms>")
		}
		if rate, err := strconv.Atoi(args[1]); err == nil {
			return s.result(p.TouchSetRepeatRate(ctx, rate))
		}
		on, err := parseOnOff(args[1])
		if err != nil {
			return usage("panel repeat <on|off|rate-ms>")
		}
		return s.result(p.TouchEnableRepeat(ctx, on))
	}
	return usage(panelUsage)
}

// touchEcho connects (or disconnects) a handler printing the events of
// every button.
func (s *Session) touchEcho(ctx context.Context, p panel.Panel, on bool) error {
	if on {
		if _, err := p.TouchSetup(ctx); err != nil {
			return err
		}
	}
	var handler panel.TouchHandler
	if on {
		handler = func(button int, event panel.Event) {
			s.printf("touch %s (%d): %s\n", panel.ButtonNames[button], button, event)
		}
	}
	for button := range panel.Buttons {
		if _, err := p.TouchOn(ctx, button, handler); err != nil {
			return err
		}
		s.echoMu.Lock()
		s.echo[button] = on
		s.echoMu.Unlock()
	}
	if on {
		s.printf("touch echo on\n")
	} else {
		s.printf("touch echo off\n")
	}
	return nil
}

// Echoing reports whether touch events of button are printed.
func (s *Session) Echoing(button int) bool {
	s.echoMu.Lock()
	defer s.echoMu.Unlock()
	return button >= 0 && button < panel.Buttons && s.echo[button]
}

func (s *Session) result(ok bool, err error) error {
	if err != nil {
		return err
	}
	s.printf("%t\n", ok)
	return nil
}

func parseMode(s string) (gpio.Mode, error) {
	switch strings.ToLower(s) {
	case "in", "input":
		return gpio.ModeInput, nil
	case "out", "output":
		return gpio.ModeOutput, nil
	case "pwm":
		return gpio.ModePWM, nil
	}
	return 0, usage("mode must be in, out, or pwm")
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("not on/off: %s", s)
}

func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
