// Command hatrpc-log views and analyzes hatrpc protocol capture files.
//
// Captures are written by hatrpc-server and hatrpc-client when run with
// --log-protocol <file.hlog>.
//
// Usage:
//
//	hatrpc-log <command> [flags] <file.hlog>
//
// Commands:
//
//	view     View the capture in human-readable form
//	stats    Show statistics about the capture
//	export   Export the capture to JSONL or CSV
//
// Examples:
//
//	# View all events
//	hatrpc-log view server.hlog
//
//	# View only the panel traffic
//	hatrpc-log view --service Panel server.hlog
//
//	# Incoming digital_write requests
//	hatrpc-log view --method digital_write --direction in server.hlog
//
//	# Show statistics
//	hatrpc-log stats server.hlog
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hatrpc/hatrpc-go/cmd/hatrpc-log/commands"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "hatrpc-log",
		Short:         "hatrpc protocol capture analyzer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newViewCommand(), newStatsCommand(), newExportCommand())
	return root
}

func addFilterFlags(cmd *cobra.Command, f *commands.ViewFilter) {
	fl := cmd.Flags()
	fl.StringVar(&f.Layer, "layer", "", "filter by layer (transport, wire, service)")
	fl.StringVar(&f.Direction, "direction", "", "filter by direction (in, out)")
	fl.StringVar(&f.Category, "category", "", "filter by category (message, control, state, error)")
	fl.StringVar(&f.ConnID, "conn-id", "", "filter by connection ID")
	fl.StringVar(&f.Service, "service", "", "filter by capability name")
	fl.StringVar(&f.Method, "method", "", "filter requests by operation name")
	fl.StringVar(&f.TimeStart, "time-start", "", "filter by start time (RFC3339)")
	fl.StringVar(&f.TimeEnd, "time-end", "", "filter by end time (RFC3339)")
}

func newViewCommand() *cobra.Command {
	var filter commands.ViewFilter
	cmd := &cobra.Command{
		Use:   "view [flags] <file.hlog>",
		Short: "View the capture in human-readable form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(cmd, &filter)
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.hlog>",
		Short: "Show statistics about the capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStats(args[0], cmd.OutOrStdout())
		},
	}
}

func newExportCommand() *cobra.Command {
	var (
		filter commands.ViewFilter
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export [flags] <file.hlog>",
		Short: "Export the capture to JSONL or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunExport(args[0], format, output, filter)
		},
	}
	cmd.Flags().StringVar(&format, "format", "jsonl", "output format (jsonl, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	addFilterFlags(cmd, &filter)
	return cmd
}
