package sensor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Read pacing of the AM2302.
const (
	DefaultMinInterval = 2 * time.Second
	DefaultRetries     = 15
	DefaultRetryDelay  = 2 * time.Second
)

// Config tunes an AM2302.
type Config struct {
	// MinInterval is the shortest time between two device reads. Values
	// read more recently are served from memory.
	MinInterval time.Duration

	// Retries is the number of attempts of one read.
	Retries int

	// RetryDelay separates two attempts.
	RetryDelay time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns the datasheet pacing.
func DefaultConfig() Config {
	return Config{
		MinInterval: DefaultMinInterval,
		Retries:     DefaultRetries,
		RetryDelay:  DefaultRetryDelay,
	}
}

// AM2302 caches readings of a Device. Reads are serialized and the device
// is polled at most once per MinInterval.
type AM2302 struct {
	device Device
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	pin         int
	readAt      time.Time
	humidity    float64
	temperature float64
}

// New returns a sensor reading from device.
func New(device Device, cfg Config) *AM2302 {
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AM2302{
		device: device,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sensor")),
		now:    time.Now,
		pin:    -1,
	}
}

// Setup selects the data pin.
func (s *AM2302) Setup(ctx context.Context, pin int) (bool, error) {
	if err := CheckPin(pin); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pin = pin
	s.readAt = time.Time{}
	s.logger.Debug("using pin", slog.Int("pin", pin))
	return true, nil
}

// Humidity returns the relative humidity rounded to two decimals.
func (s *AM2302) Humidity(ctx context.Context) (float64, error) {
	h, _, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	if h == 0 {
		return 0, ErrNoReading
	}
	return round2(h), nil
}

// Temperature returns the temperature rounded to two decimals.
func (s *AM2302) Temperature(ctx context.Context) (float64, error) {
	_, t, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	if t == 0 {
		return 0, ErrNoReading
	}
	return round2(t), nil
}

// Finalize has nothing to release.
func (s *AM2302) Finalize() error {
	return nil
}

func (s *AM2302) read(ctx context.Context) (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.readAt.IsZero() && s.now().Sub(s.readAt) < s.cfg.MinInterval {
		return s.humidity, s.temperature, nil
	}

	s.logger.Debug("reading", slog.Int("pin", s.pin))
	h, t, err := s.readRetry(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, 0, ctx.Err()
		}
		s.logger.Warn("sensor read failed", slog.Int("attempts", s.cfg.Retries), slog.Any("error", err))
		h, t = 0, 0
	}
	s.humidity, s.temperature = h, t
	s.readAt = s.now()
	return h, t, nil
}

func (s *AM2302) readRetry(ctx context.Context) (h, t float64, err error) {
	for attempt := 1; ; attempt++ {
		h, t, err = s.device.Read(ctx, s.pin)
		if err == nil {
			return h, t, nil
		}
		if attempt >= s.cfg.Retries {
			return 0, 0, err
		}
		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		case <-time.After(s.cfg.RetryDelay):
		}
	}
}

var _ Sensor = (*AM2302)(nil)
