package gpio

import (
	"context"

	"github.com/hatrpc/hatrpc-go/pkg/model"
)

// Wire method names.
const (
	MethodSetup         = "wiringPiSetup"
	MethodSetupSys      = "wiringPiSetupSys"
	MethodSetupGpio     = "wiringPiSetupGpio"
	MethodPinMode       = "pinMode"
	MethodDigitalWrite  = "digitalWrite"
	MethodDigitalWrites = "digitalWrites"
	MethodDigitalRead   = "digitalRead"
	MethodDigitalReads  = "digitalReads"
)

var (
	paramPin   = model.ParameterMetadata{Name: "pin", Type: model.DataTypeInt}
	paramPins  = model.ParameterMetadata{Name: "pins", Type: model.DataTypeIntList}
	paramMode  = model.ParameterMetadata{Name: "mode", Type: model.DataTypeInt}
	paramValue = model.ParameterMetadata{Name: "value", Type: model.DataTypeInt}
)

// Commands builds the command table serving g.
func Commands(g GPIO) *model.CommandSet {
	setup := func(name, desc string, fn func(context.Context) (bool, error)) *model.Command {
		return model.NewCommand(&model.CommandMetadata{
			Name:        name,
			Description: desc,
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, _ model.Args) (any, error) {
			return fn(ctx)
		})
	}

	return model.NewCommandSet(
		setup(MethodSetup, "Initialize with wiringPi pin numbers", g.Setup),
		setup(MethodSetupSys, "Initialize with BCM pin numbers through sysfs", g.SetupSys),
		setup(MethodSetupGpio, "Initialize with BCM pin numbers", g.SetupGpio),

		model.NewCommand(&model.CommandMetadata{
			Name:        MethodPinMode,
			Description: "Set pin mode (0=INPUT, 1=OUTPUT, 2=PWM)",
			Parameters:  []model.ParameterMetadata{paramPin, paramMode},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			pin, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			mode, err := args.Int(1)
			if err != nil {
				return nil, err
			}
			return g.PinMode(ctx, pin, mode)
		}),

		model.NewCommand(&model.CommandMetadata{
			Name:        MethodDigitalWrite,
			Description: "Drive a pin high (non-zero) or low",
			Parameters:  []model.ParameterMetadata{paramPin, paramValue},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			pin, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			value, err := args.Int(1)
			if err != nil {
				return nil, err
			}
			return g.DigitalWrite(ctx, pin, value)
		}),

		model.NewCommand(&model.CommandMetadata{
			Name:        MethodDigitalWrites,
			Description: "Drive several pins to the same level",
			Parameters:  []model.ParameterMetadata{paramPins, paramValue},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			pins, err := args.Ints(0)
			if err != nil {
				return nil, err
			}
			value, err := args.Int(1)
			if err != nil {
				return nil, err
			}
			return g.DigitalWrites(ctx, pins, value)
		}),

		model.NewCommand(&model.CommandMetadata{
			Name:        MethodDigitalRead,
			Description: "Read the level of a pin",
			Parameters:  []model.ParameterMetadata{paramPin},
			Result:      model.DataTypeInt,
		}, func(ctx context.Context, args model.Args) (any, error) {
			pin, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			return g.DigitalRead(ctx, pin)
		}),

		model.NewCommand(&model.CommandMetadata{
			Name:        MethodDigitalReads,
			Description: "Read the levels of several pins",
			Parameters:  []model.ParameterMetadata{paramPins},
			Result:      model.DataTypeIntList,
		}, func(ctx context.Context, args model.Args) (any, error) {
			pins, err := args.Ints(0)
			if err != nil {
				return nil, err
			}
			return g.DigitalReads(ctx, pins)
		}),
	)
}
