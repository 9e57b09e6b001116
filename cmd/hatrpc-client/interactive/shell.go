// Package interactive provides the command-line shell of hatrpc-client.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Shell reads commands from a terminal and runs them in a Session.
type Shell struct {
	session *Session
	rl      *readline.Instance
}

// NewShell creates a shell for client. prompt names the connected server.
func NewShell(client Client, prompt string) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	// Touch echo prints from the delivery goroutine; readline's writer
	// redraws the prompt around it.
	return &Shell{session: NewSession(client, rl.Stdout()), rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Session returns the session commands run in.
func (s *Shell) Session() *Session {
	return s.session
}

// Run reads and executes commands until EOF, quit, or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "help", "?":
			s.printHelp()
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return
		}

		if err := s.session.Exec(ctx, parts); err != nil {
			if errors.Is(err, ErrUnknownCommand) {
				fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", parts[0])
				continue
			}
			fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		}
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("gpio",
			readline.PcItem("setup", readline.PcItem("wiringpi"), readline.PcItem("sys"), readline.PcItem("gpio")),
			readline.PcItem("mode"),
			readline.PcItem("write"),
			readline.PcItem("read"),
		),
		readline.PcItem("sensor",
			readline.PcItem("setup"),
			readline.PcItem("read"),
			readline.PcItem("humidity"),
			readline.PcItem("temperature"),
		),
		readline.PcItem("panel",
			readline.PcItem("dims"),
			readline.PcItem("clear"),
			readline.PcItem("show"),
			readline.PcItem("pixel"),
			readline.PcItem("font"),
			readline.PcItem("backlight"),
			readline.PcItem("led"),
			readline.PcItem("touch", readline.PcItem("on"), readline.PcItem("off")),
			readline.PcItem("name"),
			readline.PcItem("repeat"),
		),
		readline.PcItem("services"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
hatrpc Commands:
  GPIO:
    gpio setup [wiringpi|sys|gpio]  - Initialize the bus (default: wiringpi numbering)
    gpio mode <pin> <in|out|pwm>    - Set the mode of a pin
    gpio write <pins> <0|1>         - Drive one pin or a comma separated list
    gpio read <pins>                - Read one pin or a comma separated list

  Sensor:
    sensor setup <pin>              - Select the AM2302 data pin
    sensor read                     - Read humidity and temperature
    sensor humidity|temperature     - Read one value

  Panel:
    panel dims                      - LCD dimensions
    panel clear | show              - Clear or show LCD and backlight
    panel pixel <x> <y> <on|off>    - Set one LCD pixel
    panel font <name>               - Resolve a bundled font
    panel backlight <r> <g> <b> [zones]
    panel led <leds> <on|off>       - Touch LEDs
    panel touch [on|off]            - Echo touch events
    panel name <button>             - Button label
    panel repeat <on|off|rate-ms>   - Touch repeat

  Other:
    services                        - List served capabilities
    help                            - Show this help
    quit                            - Exit`)
}
