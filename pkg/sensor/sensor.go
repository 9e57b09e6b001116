package sensor

import (
	"context"
	"errors"
	"math"

	"github.com/hatrpc/hatrpc-go/pkg/model"
)

// Name is the capability name of the temperature/humidity sensor.
const Name = "Sensor"

// ErrNoReading is returned when the sensor produced no usable value. On
// the wire it is a null result.
var ErrNoReading = errors.New("no sensor reading")

// Sensor is the AM2302 surface, served locally by *AM2302 and remotely by
// the stub returned from NewRemote.
type Sensor interface {
	// Setup selects the data pin.
	Setup(ctx context.Context, pin int) (bool, error)

	// Humidity returns the relative humidity in percent.
	Humidity(ctx context.Context) (float64, error)

	// Temperature returns the temperature in degrees Celsius.
	Temperature(ctx context.Context) (float64, error)
}

// Device performs one raw measurement.
type Device interface {
	Read(ctx context.Context, pin int) (humidity, temperature float64, err error)
}

// CheckPin rejects pins outside 0..31.
func CheckPin(pin int) error {
	return model.CheckRange("Pin", pin, 0, 31)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
