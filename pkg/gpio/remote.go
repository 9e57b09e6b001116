package gpio

import (
	"context"
	"fmt"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// Remote is the GPIO stub for a bus served by another process.
type Remote struct {
	c interaction.Caller
}

// NewRemote returns a stub issuing calls through c.
func NewRemote(c interaction.Caller) *Remote {
	return &Remote{c: c}
}

func (r *Remote) Setup(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodSetup)
}

func (r *Remote) SetupSys(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodSetupSys)
}

func (r *Remote) SetupGpio(ctx context.Context) (bool, error) {
	return r.boolCall(ctx, MethodSetupGpio)
}

func (r *Remote) PinMode(ctx context.Context, pin, mode int) (bool, error) {
	return r.boolCall(ctx, MethodPinMode, pin, mode)
}

func (r *Remote) DigitalWrite(ctx context.Context, pin, value int) (bool, error) {
	return r.boolCall(ctx, MethodDigitalWrite, pin, value)
}

func (r *Remote) DigitalWrites(ctx context.Context, pins []int, value int) (bool, error) {
	if pins == nil {
		pins = []int{}
	}
	return r.boolCall(ctx, MethodDigitalWrites, pins, value)
}

func (r *Remote) DigitalRead(ctx context.Context, pin int) (int, error) {
	res, err := r.c.Call(ctx, MethodDigitalRead, pin)
	if err != nil {
		return 0, err
	}
	v, ok := wire.AsInt(res)
	if !ok {
		return 0, fmt.Errorf("%w: %s returned %T", interaction.ErrUnexpectedReply, MethodDigitalRead, res)
	}
	return v, nil
}

func (r *Remote) DigitalReads(ctx context.Context, pins []int) ([]int, error) {
	if pins == nil {
		pins = []int{}
	}
	res, err := r.c.Call(ctx, MethodDigitalReads, pins)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return []int{}, nil
	}
	v, ok := wire.AsInts(res)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", interaction.ErrUnexpectedReply, MethodDigitalReads, res)
	}
	return v, nil
}

func (r *Remote) boolCall(ctx context.Context, method string, args ...any) (bool, error) {
	res, err := r.c.Call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	ok, isBool := res.(bool)
	if !isBool || !ok {
		return false, fmt.Errorf("%w: %s returned %v", interaction.ErrUnexpectedReply, method, res)
	}
	return true, nil
}

var _ GPIO = (*Remote)(nil)
