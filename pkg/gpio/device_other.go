//go:build !linux

package gpio

import (
	"fmt"

	"github.com/hatrpc/hatrpc-go/pkg/model"
)

// NewHardwareDriver fails outside Linux; use the mock driver instead.
func NewHardwareDriver() (Driver, error) {
	return nil, fmt.Errorf("%w: GPIO character device requires linux", model.ErrUnsupported)
}
