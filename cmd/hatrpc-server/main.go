// Command hatrpc-server serves the capabilities of a HAT board over TCP.
//
// The registry listens on the given port. Each capability gets its own
// endpoint at port + 2 + index, bound on first lookup unless -eager is set.
// The server runs until SIGINT or SIGTERM.
//
// Usage:
//
//	hatrpc-server [flags]
//
// Flags:
//
//	--config        YAML configuration file
//	--host          Address to bind (default: 0.0.0.0)
//	--port          Registry port (default: 8000)
//	--eager         Bind every capability endpoint at start
//	--mock          Use mock implementations even on the board
//	--advertise     Announce the registry over mDNS
//	--name          mDNS instance name (default: hatrpc-<hostname>)
//	--interface     Network interface for mDNS
//	--log-level     debug, info, warn or error
//	--log-format    text or json
//	--log-protocol  Capture file for protocol traffic ("-" logs it instead)
//
// Examples:
//
//	# Serve the board on the default port
//	hatrpc-server
//
//	# Develop on a laptop with mock hardware, visible on the LAN
//	hatrpc-server --mock --advertise --log-level debug
//
//	# Use a configuration file and record the traffic
//	hatrpc-server --config /etc/hatrpc/server.yaml --log-protocol server.hlog
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hatrpc/hatrpc-go/internal/cli"
	"github.com/hatrpc/hatrpc-go/pkg/discovery"
	"github.com/hatrpc/hatrpc-go/pkg/invoker"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := DefaultConfig()
	var configPath string

	cmd := &cobra.Command{
		Use:           "hatrpc-server",
		Short:         "Serve HAT board capabilities over TCP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveConfig(cmd, configPath, cfg)
			if err != nil {
				return err
			}
			return run(cmd.Context(), resolved)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML configuration file")
	f.StringVar(&cfg.Host, "host", cfg.Host, "address to bind")
	f.IntVar(&cfg.Port, "port", cfg.Port, "registry port")
	f.BoolVar(&cfg.Eager, "eager", cfg.Eager, "bind every capability endpoint at start")
	f.BoolVar(&cfg.Mock, "mock", cfg.Mock, "use mock implementations even on the board")
	f.BoolVar(&cfg.Advertise.Enabled, "advertise", cfg.Advertise.Enabled, "announce the registry over mDNS")
	f.StringVar(&cfg.Advertise.Name, "name", "", "mDNS instance name (default: hatrpc-<hostname>)")
	f.StringVar(&cfg.Advertise.Interface, "interface", "", "network interface for mDNS")
	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	f.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format (text, json)")
	f.StringVar(&cfg.Log.Protocol, "log-protocol", "", `protocol capture file ("-" logs the traffic)`)
	return cmd
}

// resolveConfig loads the configuration file, if any, and applies the flags
// that were set explicitly on top of it.
func resolveConfig(cmd *cobra.Command, path string, flags Config) (Config, error) {
	if path == "" {
		return flags, flags.Validate()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	overlay := map[string]func(){
		"host":         func() { cfg.Host = flags.Host },
		"port":         func() { cfg.Port = flags.Port },
		"eager":        func() { cfg.Eager = flags.Eager },
		"mock":         func() { cfg.Mock = flags.Mock },
		"advertise":    func() { cfg.Advertise.Enabled = flags.Advertise.Enabled },
		"name":         func() { cfg.Advertise.Name = flags.Advertise.Name },
		"interface":    func() { cfg.Advertise.Interface = flags.Advertise.Interface },
		"log-level":    func() { cfg.Log.Level = flags.Log.Level },
		"log-format":   func() { cfg.Log.Format = flags.Log.Format },
		"log-protocol": func() { cfg.Log.Protocol = flags.Log.Protocol },
	}
	for name, apply := range overlay {
		if f.Changed(name) {
			apply()
		}
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := cli.NewLogger(os.Stderr, "hatrpc-server", cfg.Log)
	if err != nil {
		return err
	}
	capture, err := cli.OpenCapture(cfg.Log.Protocol, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := capture.Close(); err != nil {
			logger.Error("closing protocol capture", slog.Any("error", err))
		}
	}()

	icfg := invoker.DefaultConfig()
	icfg.Logger = logger
	icfg.ProtocolLogger = capture.Logger
	icfg.ForceMock = cfg.Mock
	inv, cancel, err := startInvoker(ctx, icfg, cfg)
	if err != nil {
		return err
	}
	defer cancel()
	if inv.State() == invoker.StateStopped {
		logger.Info("server stopped during startup")
		return nil
	}

	services, _ := inv.Services(ctx)
	logger.Info("server started",
		slog.String("address", inv.Registry().Address()),
		slog.Bool("mock", inv.IsMock()),
		slog.Any("ports", inv.Registry().Ports()))

	if cfg.Advertise.Enabled {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{
			Interface: cfg.Advertise.Interface,
			TTL:       discovery.DefaultTTL,
			Logger:    logger,
		})
		defer adv.Stop()
		if err := adv.Advertise(&discovery.RegistryInfo{
			Instance: instanceName(cfg.Advertise.Name),
			Port:     cfg.Port,
			Version:  inv.Version(),
			Services: services,
		}); err != nil {
			// The registry is still reachable by address.
			logger.Warn("mDNS advertisement failed", slog.Any("error", err))
		}
	}

	inv.Run(ctx)
	logger.Info("server stopped")
	return nil
}

// startInvoker initializes a server invoker and opens its ports. Signals
// are watched before Initialize, so an interrupt during startup still
// finalizes whatever was instantiated. A stop while starting is not an
// error; the returned invoker is then already stopped.
func startInvoker(ctx context.Context, icfg invoker.Config, cfg Config) (*invoker.Invoker, func(), error) {
	inv := invoker.New(icfg)
	cancel := inv.WatchSignals(ctx)

	err := inv.Initialize(ctx, cfg.Host, cfg.Port, true)
	if err == nil {
		if cfg.Eager {
			err = inv.StartAll()
		} else {
			err = inv.Start()
		}
	}
	if err != nil && inv.State() != invoker.StateStopped {
		inv.Stop()
		cancel()
		return nil, nil, err
	}
	return inv, cancel, nil
}

func instanceName(name string) string {
	if name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil || strings.TrimSpace(host) == "" {
		host = "board"
	}
	return discovery.DefaultInstanceName(host)
}
