package panel

import (
	"context"
	"fmt"
	"sort"

	"github.com/hatrpc/hatrpc-go/pkg/model"
)

// Name is the capability name of the GFX HAT panel.
const Name = "Panel"

// Panel geometry.
const (
	Width          = 128
	Height         = 64
	BacklightZones = 6
	Buttons        = 6
)

// Touch repeat rate limits in milliseconds.
const (
	MinRepeatRate = 35
	MaxRepeatRate = 560
)

// Event is a touch transition.
type Event string

const (
	EventPress   Event = "press"
	EventRelease Event = "release"
	EventHeld    Event = "held"
)

// Valid reports whether e is one of the known events.
func (e Event) Valid() bool {
	return e == EventPress || e == EventRelease || e == EventHeld
}

// TouchHandler receives the events of one button. It runs on the panel's
// delivery goroutine.
type TouchHandler func(button int, event Event)

// ButtonNames are the labels printed next to the buttons, by index.
var ButtonNames = [Buttons]string{"up", "down", "back", "minus", "select", "plus"}

// Fonts maps the bundled font names to their files.
var Fonts = map[string]string{
	"AmaticSCBold":        "fonts/AmaticSC-Bold.ttf",
	"AmaticSCRegular":     "fonts/AmaticSC-Regular.ttf",
	"BitbuntuFull":        "fonts/Bitbuntu-Full.ttf",
	"Bitbuntu":            "fonts/Bitbuntu.ttf",
	"Bitocra13Full":       "fonts/Bitocra-13-Full.ttf",
	"BitocraFull":         "fonts/Bitocra-Full.ttf",
	"FredokaOneRegular":   "fonts/FredokaOne-Regular.ttf",
	"PressStart2PRegular": "fonts/PressStart2P-Regular.ttf",
}

// FontNames returns the font names sorted.
func FontNames() []string {
	names := make([]string, 0, len(Fonts))
	for n := range Fonts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Color is one backlight zone.
type Color struct {
	R, G, B uint8
}

// Panel is the GFX HAT surface, served locally by *HAT and remotely by the
// stub returned from NewRemote. Boolean operations return true on success.
type Panel interface {
	LCDFont(ctx context.Context, name string) (string, error)
	LCDDimensions(ctx context.Context) (width, height int, err error)
	LCDClear(ctx context.Context) (bool, error)
	LCDShow(ctx context.Context) (bool, error)
	LCDSetPixel(ctx context.Context, x, y int, state bool) (bool, error)
	LCDSetPixels(ctx context.Context, xs, ys []int, state bool) (bool, error)

	BacklightClear(ctx context.Context) (bool, error)
	BacklightSetPixel(ctx context.Context, x, r, g, b int) (bool, error)
	BacklightSetPixels(ctx context.Context, xs []int, r, g, b int) (bool, error)
	BacklightSetAll(ctx context.Context, r, g, b int) (bool, error)
	BacklightShow(ctx context.Context) (bool, error)
	BacklightSetup(ctx context.Context) (bool, error)

	// TouchOn sets the handler of button. A nil handler disconnects it.
	TouchOn(ctx context.Context, button int, handler TouchHandler) (bool, error)
	TouchSetup(ctx context.Context) (bool, error)
	TouchSetLED(ctx context.Context, led int, state bool) (bool, error)
	TouchSetLEDs(ctx context.Context, leds []int, state bool) (bool, error)
	TouchEnableRepeat(ctx context.Context, flag bool) (bool, error)
	TouchGetName(ctx context.Context, index int) (string, error)
	TouchHighSensitivity(ctx context.Context) (bool, error)
	TouchSetRepeatRate(ctx context.Context, rate int) (bool, error)
}

// The pixel message is shared by LCD and backlight coordinates.
var errPixel = model.RangeError("Pixel", 0, BacklightZones-1)

func checkLCDPixel(x, y int) error {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return errPixel
	}
	return nil
}

func checkZone(x int) error {
	if x < 0 || x >= BacklightZones {
		return errPixel
	}
	return nil
}

func checkColor(r, g, b int) error {
	for _, c := range []int{r, g, b} {
		if err := model.CheckRange("Color", c, 0, 255); err != nil {
			return err
		}
	}
	return nil
}

// CheckButton rejects button and LED indexes outside 0..5.
func CheckButton(i int) error {
	return model.CheckRange("Button", i, 0, Buttons-1)
}

func checkRate(rate int) error {
	return model.CheckRange("Rate", rate, MinRepeatRate, MaxRepeatRate)
}

func fontFile(name string) (string, error) {
	f, ok := Fonts[name]
	if !ok {
		return "", model.InvalidValue("Unknown font: %s.", name)
	}
	return f, nil
}

func checkPixelLists(xs, ys []int) error {
	if len(xs) != len(ys) {
		return model.InvalidValue("Pixel lists differ in length: %d x values, %d y values.", len(xs), len(ys))
	}
	for i := range xs {
		if err := checkLCDPixel(xs[i], ys[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
