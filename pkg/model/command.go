package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Command errors.
var (
	ErrCommandNotFound   = errors.New("command not found")
	ErrCommandFailed     = errors.New("command execution failed")
	ErrInvalidParameters = errors.New("invalid command parameters")
	ErrUnsupported       = errors.New("operation not supported")
	ErrDuplicateCommand  = errors.New("duplicate command name")
)

// ValueError is an argument rejected by an operation. Its message is the
// human-readable text shown to callers, e.g.
// "Pin must be a valid number in range 0 to 31.".
type ValueError struct {
	Message string
}

func (e *ValueError) Error() string {
	return e.Message
}

// Is makes every ValueError match ErrInvalidParameters.
func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidParameters
}

// InvalidValue returns a ValueError with a formatted message.
func InvalidValue(format string, args ...any) error {
	return &ValueError{Message: fmt.Sprintf(format, args...)}
}

// RangeError returns the standard out-of-range rejection for a named value,
// e.g. RangeError("Pin", 0, 31).
func RangeError(what string, lo, hi int) error {
	return InvalidValue("%s must be a valid number in range %d to %d.", what, lo, hi)
}

// CheckRange rejects v outside [lo, hi] with RangeError.
func CheckRange(what string, v, lo, hi int) error {
	if v < lo || v > hi {
		return RangeError(what, lo, hi)
	}
	return nil
}

// CommandHandler is the function signature for command handlers.
// Args have already been checked for arity; handlers convert and validate
// values before touching any state.
type CommandHandler func(ctx context.Context, args Args) (any, error)

// CommandMetadata describes a command's properties.
type CommandMetadata struct {
	// Name is the wire method name, e.g. "digitalWrite".
	Name string

	// Description is a human-readable description.
	Description string

	// Parameters describes the expected positional parameters.
	Parameters []ParameterMetadata

	// Result is the type of a successful result.
	Result DataType
}

// ParameterMetadata describes a positional command parameter.
type ParameterMetadata struct {
	Name string
	Type DataType
}

// DataType represents the type of a parameter or result value.
type DataType uint8

const (
	DataTypeNull DataType = iota
	DataTypeBool
	DataTypeInt
	DataTypeFloat
	DataTypeString
	DataTypeIntList
	DataTypeAny
)

// String returns the data type name.
func (d DataType) String() string {
	names := []string{"null", "bool", "int", "float", "string", "[]int", "any"}
	if int(d) < len(names) {
		return names[d]
	}
	return "unknown"
}

// Command represents a command instance with its handler.
type Command struct {
	metadata *CommandMetadata
	handler  CommandHandler
}

// NewCommand creates a new command with the given metadata and handler.
func NewCommand(meta *CommandMetadata, handler CommandHandler) *Command {
	return &Command{
		metadata: meta,
		handler:  handler,
	}
}

// Name returns the command's wire name.
func (c *Command) Name() string {
	return c.metadata.Name
}

// Metadata returns the command metadata.
func (c *Command) Metadata() *CommandMetadata {
	return c.metadata
}

// Invoke executes the command with positional arguments.
func (c *Command) Invoke(ctx context.Context, args []any) (any, error) {
	if want := len(c.metadata.Parameters); len(args) != want {
		return nil, InvalidValue("%s expects %d arguments, got %d.", c.metadata.Name, want, len(args))
	}
	if c.handler == nil {
		return nil, ErrCommandNotFound
	}
	return c.handler(ctx, Args{values: args, params: c.metadata.Parameters})
}

// Usage returns a one-line signature such as "digitalWrite(pin int, value int) -> bool".
func (c *Command) Usage() string {
	s := c.metadata.Name + "("
	for i, p := range c.metadata.Parameters {
		if i > 0 {
			s += ", "
		}
		s += p.Name + " " + p.Type.String()
	}
	s += ")"
	if c.metadata.Result != DataTypeNull {
		s += " -> " + c.metadata.Result.String()
	}
	return s
}

// CommandSet is the uniform call table of one capability: method name to
// command. It is safe for concurrent use.
type CommandSet struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewCommandSet creates a set from the given commands. Duplicate names
// panic, since command tables are built at startup from static metadata.
func NewCommandSet(cmds ...*Command) *CommandSet {
	s := &CommandSet{commands: make(map[string]*Command, len(cmds))}
	for _, c := range cmds {
		if err := s.Add(c); err != nil {
			panic(err)
		}
	}
	return s
}

// Add registers a command.
func (s *CommandSet) Add(c *Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.commands[c.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, c.Name())
	}
	s.commands[c.Name()] = c
	return nil
}

// Get returns the command with the given name.
func (s *CommandSet) Get(name string) (*Command, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commands[name]
	return c, ok
}

// Names returns the command names sorted alphabetically.
func (s *CommandSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.commands))
	for n := range s.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke looks up method and runs it with args.
func (s *CommandSet) Invoke(ctx context.Context, method string, args []any) (any, error) {
	c, ok := s.Get(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, method)
	}
	return c.Invoke(ctx, args)
}
