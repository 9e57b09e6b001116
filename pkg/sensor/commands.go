package sensor

import (
	"context"
	"errors"

	"github.com/hatrpc/hatrpc-go/pkg/model"
)

// Wire method names.
const (
	MethodSetup       = "setup"
	MethodHumidity    = "humidity"
	MethodTemperature = "temperature"
)

// Commands builds the command table serving s. ErrNoReading becomes a
// null result.
func Commands(s Sensor) *model.CommandSet {
	reading := func(name, desc string, fn func(context.Context) (float64, error)) *model.Command {
		return model.NewCommand(&model.CommandMetadata{
			Name:        name,
			Description: desc,
			Result:      model.DataTypeFloat,
		}, func(ctx context.Context, _ model.Args) (any, error) {
			v, err := fn(ctx)
			if errors.Is(err, ErrNoReading) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return v, nil
		})
	}

	return model.NewCommandSet(
		model.NewCommand(&model.CommandMetadata{
			Name:        MethodSetup,
			Description: "Select the sensor data pin",
			Parameters:  []model.ParameterMetadata{{Name: "pin", Type: model.DataTypeInt}},
			Result:      model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			pin, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			return s.Setup(ctx, pin)
		}),
		reading(MethodHumidity, "Relative humidity in percent", s.Humidity),
		reading(MethodTemperature, "Temperature in degrees Celsius", s.Temperature),
	)
}
