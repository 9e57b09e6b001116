package sensor

import (
	"context"
	"fmt"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// Remote is the Sensor stub for a sensor served by another process.
type Remote struct {
	c interaction.Caller
}

// NewRemote returns a stub issuing calls through c.
func NewRemote(c interaction.Caller) *Remote {
	return &Remote{c: c}
}

func (r *Remote) Setup(ctx context.Context, pin int) (bool, error) {
	res, err := r.c.Call(ctx, MethodSetup, pin)
	if err != nil {
		return false, err
	}
	if ok, _ := res.(bool); !ok {
		return false, fmt.Errorf("%w: %s returned %v", interaction.ErrUnexpectedReply, MethodSetup, res)
	}
	return true, nil
}

func (r *Remote) Humidity(ctx context.Context) (float64, error) {
	return r.reading(ctx, MethodHumidity)
}

func (r *Remote) Temperature(ctx context.Context) (float64, error) {
	return r.reading(ctx, MethodTemperature)
}

func (r *Remote) reading(ctx context.Context, method string) (float64, error) {
	res, err := r.c.Call(ctx, method)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, ErrNoReading
	}
	v, ok := wire.AsFloat(res)
	if !ok {
		return 0, fmt.Errorf("%w: %s returned %T", interaction.ErrUnexpectedReply, method, res)
	}
	return v, nil
}

var _ Sensor = (*Remote)(nil)
