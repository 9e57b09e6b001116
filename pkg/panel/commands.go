package panel

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/model"
)

// TouchTopic is the notification topic of touch events. The payload is
// [button, event].
const TouchTopic = "touch"

// Wire method names.
const (
	MethodLCDFont              = "lcd_font"
	MethodLCDDimensions        = "lcd_dimensions"
	MethodLCDClear             = "lcd_clear"
	MethodLCDShow              = "lcd_show"
	MethodLCDSetPixel          = "lcd_set_pixel"
	MethodLCDSetPixels         = "lcd_set_pixels"
	MethodBacklightClear       = "backlight_clear"
	MethodBacklightSetPixel    = "backlight_set_pixel"
	MethodBacklightSetPixels   = "backlight_set_pixels"
	MethodBacklightSetAll      = "backlight_set_all"
	MethodBacklightShow        = "backlight_show"
	MethodBacklightSetup       = "backlight_setup"
	MethodTouchOn              = "touch_on"
	MethodTouchSetup           = "touch_setup"
	MethodTouchSetLED          = "touch_set_led"
	MethodTouchSetLEDs         = "touch_set_leds"
	MethodTouchEnableRepeat    = "touch_enable_repeat"
	MethodTouchGetName         = "touch_get_name"
	MethodTouchHighSensitivity = "touch_high_sensitivity"
	MethodTouchSetRepeatRate   = "touch_set_repeat_rate"
)

func p(name string, t model.DataType) model.ParameterMetadata {
	return model.ParameterMetadata{Name: name, Type: t}
}

// Server serves a HAT to remote clients. Touch handlers registered by a
// client forward events to that client as notifications and are removed
// when its connection closes.
type Server struct {
	*model.CommandSet

	hat    *HAT
	logger *slog.Logger

	mu     sync.Mutex
	owners map[int]string
}

// NewServer builds the command table of hat.
func NewServer(hat *HAT, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		hat:    hat,
		logger: logger.With(slog.String("component", "panel")),
		owners: make(map[int]string),
	}
	s.CommandSet = s.commands()
	return s
}

// SessionClosed disconnects the handlers the session registered and
// blanks the panel.
func (s *Server) SessionClosed(sess interaction.Session) {
	var buttons []int
	s.mu.Lock()
	for b, owner := range s.owners {
		if owner == sess.ID() {
			buttons = append(buttons, b)
			delete(s.owners, b)
		}
	}
	s.mu.Unlock()
	sort.Ints(buttons)

	s.logger.Debug("client disconnected", slog.String("session", sess.ID()), slog.Any("buttons", buttons))
	if err := s.hat.Disconnect(context.Background(), buttons); err != nil {
		s.logger.Error("disconnect cleanup", slog.String("session", sess.ID()), slog.Any("error", err))
	}
}

func (s *Server) touchOn(ctx context.Context, button int, enabled bool) (bool, error) {
	if err := CheckButton(button); err != nil {
		return false, err
	}
	if !enabled {
		s.mu.Lock()
		delete(s.owners, button)
		s.mu.Unlock()
		return s.hat.TouchOn(ctx, button, nil)
	}

	sess, ok := interaction.SessionFromContext(ctx)
	if !ok {
		return false, interaction.ErrNoSession
	}
	handler := func(b int, ev Event) {
		// A failed delivery leaves the handler in place; the session's
		// close removes it.
		if err := sess.Notify(TouchTopic, []any{b, string(ev)}); err != nil {
			s.logger.Warn("touch event delivery failed",
				slog.String("session", sess.ID()), slog.Int("button", b), slog.Any("error", err))
		}
	}
	s.mu.Lock()
	s.owners[button] = sess.ID()
	s.mu.Unlock()
	return s.hat.TouchOn(ctx, button, handler)
}

func (s *Server) commands() *model.CommandSet {
	h := s.hat
	noArgs := func(name, desc string, fn func(context.Context) (bool, error)) *model.Command {
		return model.NewCommand(&model.CommandMetadata{Name: name, Description: desc, Result: model.DataTypeBool},
			func(ctx context.Context, _ model.Args) (any, error) {
				return fn(ctx)
			})
	}

	return model.NewCommandSet(
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodLCDFont,
			Description: "Font file of a bundled font",
			Parameters:  []model.ParameterMetadata{p("name", model.DataTypeString)},
			Result:      model.DataTypeString,
		}, func(ctx context.Context, args model.Args) (any, error) {
			name, err := args.Text(0)
			if err != nil {
				return nil, err
			}
			return h.LCDFont(ctx, name)
		}),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodLCDDimensions,
			Description: "Display size [width, height]",
			Result:      model.DataTypeIntList,
		}, func(ctx context.Context, _ model.Args) (any, error) {
			w, hh, err := h.LCDDimensions(ctx)
			if err != nil {
				return nil, err
			}
			return []int{w, hh}, nil
		}),
		noArgs(MethodLCDClear, "Blank the framebuffer", h.LCDClear),
		noArgs(MethodLCDShow, "Push the framebuffer to the display", h.LCDShow),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodLCDSetPixel,
			Description: "Set one pixel",
			Parameters:  []model.ParameterMetadata{p("x", model.DataTypeInt), p("y", model.DataTypeInt), p("state", model.DataTypeBool)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			x, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			y, err := args.Int(1)
			if err != nil {
				return nil, err
			}
			state, err := args.Bool(2)
			if err != nil {
				return nil, err
			}
			return h.LCDSetPixel(ctx, x, y, state)
		}),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodLCDSetPixels,
			Description: "Set the pixels (xs[i], ys[i])",
			Parameters:  []model.ParameterMetadata{p("xs", model.DataTypeIntList), p("ys", model.DataTypeIntList), p("state", model.DataTypeBool)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			xs, err := args.Ints(0)
			if err != nil {
				return nil, err
			}
			ys, err := args.Ints(1)
			if err != nil {
				return nil, err
			}
			state, err := args.Bool(2)
			if err != nil {
				return nil, err
			}
			return h.LCDSetPixels(ctx, xs, ys, state)
		}),

		noArgs(MethodBacklightClear, "Turn every backlight zone off", h.BacklightClear),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodBacklightSetPixel,
			Description: "Set the color of one zone",
			Parameters:  []model.ParameterMetadata{p("x", model.DataTypeInt), p("r", model.DataTypeInt), p("g", model.DataTypeInt), p("b", model.DataTypeInt)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			v, err := ints(args, 4)
			if err != nil {
				return nil, err
			}
			return h.BacklightSetPixel(ctx, v[0], v[1], v[2], v[3])
		}),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodBacklightSetPixels,
			Description: "Set the color of several zones",
			Parameters:  []model.ParameterMetadata{p("xs", model.DataTypeIntList), p("r", model.DataTypeInt), p("g", model.DataTypeInt), p("b", model.DataTypeInt)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			xs, err := args.Ints(0)
			if err != nil {
				return nil, err
			}
			r, err := args.Int(1)
			if err != nil {
				return nil, err
			}
			g, err := args.Int(2)
			if err != nil {
				return nil, err
			}
			b, err := args.Int(3)
			if err != nil {
				return nil, err
			}
			return h.BacklightSetPixels(ctx, xs, r, g, b)
		}),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodBacklightSetAll,
			Description: "Set every zone to one color",
			Parameters:  []model.ParameterMetadata{p("r", model.DataTypeInt), p("g", model.DataTypeInt), p("b", model.DataTypeInt)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			v, err := ints(args, 3)
			if err != nil {
				return nil, err
			}
			return h.BacklightSetAll(ctx, v[0], v[1], v[2])
		}),
		noArgs(MethodBacklightShow, "Push the zone colors to the LEDs", h.BacklightShow),
		noArgs(MethodBacklightSetup, "Initialize the backlight driver", h.BacklightSetup),

		model.NewCommand(&model.CommandMetadata{
			Name:        MethodTouchOn,
			Description: "Forward the events of a button to this client, or stop",
			Parameters:  []model.ParameterMetadata{p("button", model.DataTypeInt), p("enabled", model.DataTypeBool)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			button, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			enabled, err := args.Bool(1)
			if err != nil {
				return nil, err
			}
			return s.touchOn(ctx, button, enabled)
		}),
		noArgs(MethodTouchSetup, "Initialize the touch controller", h.TouchSetup),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodTouchSetLED,
			Description: "Switch the LED of one button",
			Parameters:  []model.ParameterMetadata{p("led", model.DataTypeInt), p("state", model.DataTypeBool)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			led, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			state, err := args.Bool(1)
			if err != nil {
				return nil, err
			}
			return h.TouchSetLED(ctx, led, state)
		}),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodTouchSetLEDs,
			Description: "Switch several LEDs",
			Parameters:  []model.ParameterMetadata{p("leds", model.DataTypeIntList), p("state", model.DataTypeBool)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			leds, err := args.Ints(0)
			if err != nil {
				return nil, err
			}
			state, err := args.Bool(1)
			if err != nil {
				return nil, err
			}
			return h.TouchSetLEDs(ctx, leds, state)
		}),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodTouchEnableRepeat,
			Description: "Repeat held events",
			Parameters:  []model.ParameterMetadata{p("flag", model.DataTypeBool)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			flag, err := args.Bool(0)
			if err != nil {
				return nil, err
			}
			return h.TouchEnableRepeat(ctx, flag)
		}),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodTouchGetName,
			Description: "Label of a button",
			Parameters:  []model.ParameterMetadata{p("index", model.DataTypeInt)},
			Result:      model.DataTypeString,
		}, func(ctx context.Context, args model.Args) (any, error) {
			i, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			return h.TouchGetName(ctx, i)
		}),
		noArgs(MethodTouchHighSensitivity, "Raise the touch sensitivity", h.TouchHighSensitivity),
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodTouchSetRepeatRate,
			Description: "Interval of repeated held events in ms",
			Parameters:  []model.ParameterMetadata{p("rate", model.DataTypeInt)},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			rate, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			return h.TouchSetRepeatRate(ctx, rate)
		}),
	)
}

func ints(args model.Args, n int) ([]int, error) {
	out := make([]int, n)
	for i := range out {
		v, err := args.Int(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

var _ interaction.SessionObserver = (*Server)(nil)
