package gpio_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatrpc/hatrpc-go/internal/rpctest"
	"github.com/hatrpc/hatrpc-go/pkg/gpio"
	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/model"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

func newRemote(t *testing.T) (gpio.GPIO, *gpio.MockDriver) {
	t.Helper()
	drv := gpio.NewMockDriver()
	bus := gpio.NewBus(drv, nil)
	loop := rpctest.New(t, gpio.Commands(bus))
	return gpio.NewRemote(loop.Client()), drv
}

func TestRemoteBooleanOpsReturnTrue(t *testing.T) {
	ctx := context.Background()
	remote, drv := newRemote(t)

	ok, err := remote.Setup(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = remote.PinMode(ctx, 3, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = remote.DigitalWrite(ctx, 3, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, drv.Level(3))

	ok, err = remote.DigitalWrites(ctx, []int{3}, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, drv.Level(3))
}

func TestRemoteReads(t *testing.T) {
	ctx := context.Background()
	remote, drv := newRemote(t)
	drv.SetLevel(8, 1)

	v, err := remote.DigitalRead(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	vals, err := remote.DigitalReads(ctx, []int{7, 8})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, vals)

	vals, err = remote.DigitalReads(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestRemotePin99Rejected(t *testing.T) {
	ctx := context.Background()
	remote, drv := newRemote(t)
	_, _ = remote.PinMode(ctx, 1, 1)

	_, err := remote.DigitalWrite(ctx, 99, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
	assert.Equal(t, "Pin must be a valid number in range 0 to 31.", err.Error())

	var se *interaction.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, wire.StatusInvalidParameter, se.Status)

	for pin := 0; pin < gpio.NumPins; pin++ {
		assert.Equal(t, 0, drv.Level(pin))
	}
}

func TestRemoteWrongArity(t *testing.T) {
	drv := gpio.NewMockDriver()
	loop := rpctest.New(t, gpio.Commands(gpio.NewBus(drv, nil)))

	_, err := loop.Client().Call(context.Background(), gpio.MethodDigitalWrite, 1)
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
	assert.Equal(t, "digitalWrite expects 2 arguments, got 1.", err.Error())
}
