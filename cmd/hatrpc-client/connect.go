package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/hatrpc/hatrpc-go/pkg/connection"
	"github.com/hatrpc/hatrpc-go/pkg/discovery"
	"github.com/hatrpc/hatrpc-go/pkg/invoker"
	"github.com/hatrpc/hatrpc-go/pkg/log"
)

// options holds the connection flags.
type options struct {
	host      string
	port      int
	discover  bool
	instance  string
	iface     string
	wait      time.Duration
	timeout   time.Duration
	logLevel  string
	logFormat string
	protocol  string
}

// target returns the registry address to connect to, browsing for it when
// discovery was requested.
func (o *options) target(ctx context.Context, logger *slog.Logger) (string, int, error) {
	if !o.discover {
		return o.host, o.port, nil
	}
	browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: o.iface})
	svc, err := browser.Find(ctx, o.instance)
	if err != nil {
		return "", 0, fmt.Errorf("discover registry: %w", err)
	}
	host, portStr, err := net.SplitHostPort(svc.Address())
	if err != nil {
		return "", 0, err
	}
	port, _ := strconv.Atoi(portStr)
	logger.Info("discovered registry",
		slog.String("instance", svc.Instance),
		slog.String("address", svc.Address()),
		slog.String("version", svc.Version),
		slog.Any("services", svc.Services))
	return host, port, nil
}

// connect initializes a client invoker, retrying for up to o.wait while
// the server is unreachable.
func connect(ctx context.Context, o *options, logger *slog.Logger, capture log.Logger) (*invoker.Invoker, error) {
	host, port, err := o.target(ctx, logger)
	if err != nil {
		return nil, err
	}

	cfg := invoker.DefaultConfig()
	cfg.Logger = logger
	cfg.ProtocolLogger = capture
	if o.timeout > 0 {
		cfg.CallTimeout = o.timeout
	}
	inv := invoker.New(cfg)

	err = connection.Wait(ctx, connection.NewBackoff(), o.wait,
		func(ctx context.Context) error {
			return inv.Initialize(ctx, host, port, false)
		},
		func(attempt int, delay time.Duration, err error) {
			logger.Info("registry not reachable, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.Any("error", err))
		})
	if err != nil {
		return nil, err
	}
	return inv, nil
}
