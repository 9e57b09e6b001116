package sensor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIORoot is where the kernel lists industrial I/O devices.
const IIORoot = "/sys/bus/iio/devices"

// ErrNoDevice is returned when no dht11 IIO device is bound.
var ErrNoDevice = errors.New("no dht11 iio device")

// IIODevice reads the kernel dht11 driver, enabled with
// dtoverlay=dht11,gpiopin=N. The data pin is fixed by the overlay, so the
// pin passed to Read is informational.
type IIODevice struct {
	root string
}

// NewIIODevice returns a device looking under root, IIORoot when empty.
func NewIIODevice(root string) *IIODevice {
	if root == "" {
		root = IIORoot
	}
	return &IIODevice{root: root}
}

func (d *IIODevice) Read(ctx context.Context, pin int) (float64, float64, error) {
	dir, err := d.find()
	if err != nil {
		return 0, 0, err
	}
	// The driver rejects reads closer than 2 s apart with EBUSY or EIO;
	// the caller retries.
	h, err := readMilli(filepath.Join(dir, "in_humidityrelative_input"))
	if err != nil {
		return 0, 0, err
	}
	t, err := readMilli(filepath.Join(dir, "in_temp_input"))
	if err != nil {
		return 0, 0, err
	}
	return h, t, nil
}

func (d *IIODevice) find() (string, error) {
	matches, err := filepath.Glob(filepath.Join(d.root, "iio:device*"))
	if err != nil {
		return "", err
	}
	for _, dir := range matches {
		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(string(name)), "dht11") {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w under %s", ErrNoDevice, d.root)
}

func readMilli(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return float64(v) / 1000, nil
}

var _ Device = (*IIODevice)(nil)
