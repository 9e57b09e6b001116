// Command hatrpc-client drives the capabilities of a remote hatrpc-server.
//
// Usage:
//
//	hatrpc-client [flags] <command> [args]
//
// Commands:
//
//	gpio      GPIO bus operations (setup, mode, write, read)
//	sensor    Temperature and humidity sensor (setup, read)
//	panel     GFX HAT display, backlight and touch buttons
//	services  List the capabilities served by the registry
//	shell     Interactive shell with touch event echo
//
// Examples:
//
//	# Blink an LED on pin 3
//	hatrpc-client --host 192.168.1.20 gpio setup
//	hatrpc-client --host 192.168.1.20 gpio mode 3 out
//	hatrpc-client --host 192.168.1.20 gpio write 3 1
//
//	# Find the board on the LAN and open a shell, waiting for it to boot
//	hatrpc-client --discover --wait 1m shell
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hatrpc/hatrpc-go/cmd/hatrpc-client/interactive"
	"github.com/hatrpc/hatrpc-go/internal/cli"
	"github.com/hatrpc/hatrpc-go/pkg/invoker"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "hatrpc-client",
		Short:         "Drive the capabilities of a remote HAT board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.host, "host", "127.0.0.1", "registry host")
	pf.IntVar(&opts.port, "port", invoker.DefaultPort, "registry port")
	pf.BoolVar(&opts.discover, "discover", false, "find the registry over mDNS")
	pf.StringVar(&opts.instance, "instance", "", "mDNS instance to look for (default: first found)")
	pf.StringVar(&opts.iface, "interface", "", "network interface for mDNS")
	pf.DurationVar(&opts.wait, "wait", 0, "keep retrying the registry for this long")
	pf.DurationVar(&opts.timeout, "timeout", 0, "bound of every remote call (default: 300s)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", cli.FormatText, "log format (text, json)")
	pf.StringVar(&opts.protocol, "log-protocol", "", `protocol capture file ("-" logs the traffic)`)

	for _, c := range []struct {
		use, short string
		minArgs    int
	}{
		{"gpio <setup|mode|write|read> [args]", "GPIO bus operations", 1},
		{"sensor <setup|read|humidity|temperature> [args]", "Temperature and humidity sensor", 1},
		{"panel <op> [args]", "GFX HAT display, backlight and touch buttons", 1},
		{"services", "List the capabilities served by the registry", 0},
	} {
		root.AddCommand(newExecCommand(opts, c.use, c.short, c.minArgs))
	}
	root.AddCommand(newShellCommand(opts))
	return root
}

// newExecCommand runs its name and arguments as one session command.
func newExecCommand(opts *options, use, short string, minArgs int) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(minArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInvoker(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, inv *invoker.Invoker) error {
				s := interactive.NewSession(inv, cmd.OutOrStdout())
				return s.Exec(ctx, append([]string{cmd.Name()}, args...))
			})
		},
	}
}

func newShellCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell with touch event echo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInvoker(cmd.Context(), opts, cmd.ErrOrStderr(), func(ctx context.Context, inv *invoker.Invoker) error {
				sh, err := interactive.NewShell(inv, net.JoinHostPort(inv.Host(), strconv.Itoa(inv.Port())))
				if err != nil {
					return err
				}
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()
				go func() {
					select {
					case <-inv.Done():
						cancel()
					case <-ctx.Done():
					}
				}()
				sh.Run(ctx)
				return nil
			})
		},
	}
}

// withInvoker connects to the registry, runs fn and stops the invoker.
func withInvoker(ctx context.Context, opts *options, logOut io.Writer, fn func(context.Context, *invoker.Invoker) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := cli.NewLogger(logOut, "hatrpc-client", cli.LogOptions{Level: opts.logLevel, Format: opts.logFormat})
	if err != nil {
		return err
	}
	capture, err := cli.OpenCapture(opts.protocol, logger)
	if err != nil {
		return err
	}
	defer capture.Close()

	inv, err := connect(ctx, opts, logger, capture.Logger)
	if err != nil {
		return err
	}
	defer inv.Stop()

	cancel := inv.WatchSignals(ctx)
	defer cancel()

	return fn(ctx, inv)
}
