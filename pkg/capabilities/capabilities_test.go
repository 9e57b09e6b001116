package capabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOrder(t *testing.T) {
	assert.Equal(t, []string{"GpioBus", "Sensor", "Panel"}, Names())
	for _, r := range Default() {
		require.NoError(t, r.Validate(), r.Name)
	}
}
