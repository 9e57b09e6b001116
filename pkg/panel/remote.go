package panel

import (
	"context"
	"fmt"
	"sync"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// Remote is the Panel stub for a HAT served by another process. Touch
// handlers stay on the client side; the server only learns which buttons
// to forward.
type Remote struct {
	c interaction.Caller

	mu       sync.RWMutex
	handlers [Buttons]TouchHandler
}

// NewRemote returns a stub issuing calls through c and subscribes to
// touch notifications.
func NewRemote(c interaction.Caller) *Remote {
	r := &Remote{c: c}
	c.OnNotification(TouchTopic, r.onTouch)
	return r
}

func (r *Remote) onTouch(payload any) {
	arr, ok := payload.([]any)
	if !ok || len(arr) != 2 {
		return
	}
	button, ok := wire.AsInt(arr[0])
	if !ok || button < 0 || button >= Buttons {
		return
	}
	event, _ := wire.AsString(arr[1])

	r.mu.RLock()
	fn := r.handlers[button]
	r.mu.RUnlock()
	if fn != nil {
		fn(button, Event(event))
	}
}

func (r *Remote) boolCall(ctx context.Context, method string, args ...any) (bool, error) {
	res, err := r.c.Call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	if ok, _ := res.(bool); !ok {
		return false, fmt.Errorf("%w: %s returned %v", interaction.ErrUnexpectedReply, method, res)
	}
	return true, nil
}

func (r *Remote) stringCall(ctx context.Context, method string, args ...any) (string, error) {
	res, err := r.c.Call(ctx, method, args...)
	if err != nil {
		return "", err
	}
	s, ok := wire.AsString(res)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %T", interaction.ErrUnexpectedReply, method, res)
	}
	return s, nil
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func (r *Remote) LCDFont(ctx context.Context, name string) (string, error) {
	return r.stringCall(ctx, MethodLCDFont, name)
}

func (r *Remote) LCDDimensions(ctx context.Context) (int, int, error) {
	res, err := r.c.Call(ctx, MethodLCDDimensions)
	if err != nil {
		return 0, 0, err
	}
	dims, ok := wire.AsInts(res)
	if !ok || len(dims) != 2 {
		return 0, 0, fmt.Errorf("%w: %s returned %v", interaction.ErrUnexpectedReply, MethodLCDDimensions, res)
	}
	return dims[0], dims[1], nil
}

func (r *Remote) LCDClear(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodLCDClear)
}

func (r *Remote) LCDShow(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodLCDShow)
}

func (r *Remote) LCDSetPixel(ctx context.Context, x, y int, state bool) (bool, error) {
	return r.boolCall(ctx, MethodLCDSetPixel, x, y, state)
}

func (r *Remote) LCDSetPixels(ctx context.Context, xs, ys []int, state bool) (bool, error) {
	return r.boolCall(ctx, MethodLCDSetPixels, nonNil(xs), nonNil(ys), state)
}

func (r *Remote) BacklightClear(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodBacklightClear)
}

func (r *Remote) BacklightSetPixel(ctx context.Context, x, red, green, blue int) (bool, error) {
	return r.boolCall(ctx, MethodBacklightSetPixel, x, red, green, blue)
}

func (r *Remote) BacklightSetPixels(ctx context.Context, xs []int, red, green, blue int) (bool, error) {
	return r.boolCall(ctx, MethodBacklightSetPixels, nonNil(xs), red, green, blue)
}

func (r *Remote) BacklightSetAll(ctx context.Context, red, green, blue int) (bool, error) {
	return r.boolCall(ctx, MethodBacklightSetAll, red, green, blue)
}

func (r *Remote) BacklightShow(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodBacklightShow)
}

func (r *Remote) BacklightSetup(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodBacklightSetup)
}

// TouchOn registers handler locally and asks the server to forward the
// events of button. A nil handler stops forwarding.
func (r *Remote) TouchOn(ctx context.Context, button int, handler TouchHandler) (bool, error) {
	if err := CheckButton(button); err != nil {
		return false, err
	}
	ok, err := r.boolCall(ctx, MethodTouchOn, button, handler != nil)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	r.handlers[button] = handler
	r.mu.Unlock()
	return ok, nil
}

func (r *Remote) TouchSetup(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodTouchSetup)
}

func (r *Remote) TouchSetLED(ctx context.Context, led int, state bool) (bool, error) {
	return r.boolCall(ctx, MethodTouchSetLED, led, state)
}

func (r *Remote) TouchSetLEDs(ctx context.Context, leds []int, state bool) (bool, error) {
	return r.boolCall(ctx, MethodTouchSetLEDs, nonNil(leds), state)
}

func (r *Remote) TouchEnableRepeat(ctx context.Context, flag bool) (bool, error) {
	return r.boolCall(ctx, MethodTouchEnableRepeat, flag)
}

func (r *Remote) TouchGetName(ctx context.Context, index int) (string, error) {
	return r.stringCall(ctx, MethodTouchGetName, index)
}

func (r *Remote) TouchHighSensitivity(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodTouchHighSensitivity)
}

func (r *Remote) TouchSetRepeatRate(ctx context.Context, rate int) (bool, error) {
	return r.boolCall(ctx, MethodTouchSetRepeatRate, rate)
}

var _ Panel = (*Remote)(nil)
