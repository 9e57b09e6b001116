package model

import (
	"context"
	"errors"
	"testing"
)

func echoCommand(name string, params ...ParameterMetadata) *Command {
	return NewCommand(&CommandMetadata{Name: name, Parameters: params, Result: DataTypeAny},
		func(ctx context.Context, args Args) (any, error) {
			return args.Raw(0), nil
		})
}

func TestCommandSetInvoke(t *testing.T) {
	set := NewCommandSet(
		echoCommand("echo", ParameterMetadata{Name: "value", Type: DataTypeAny}),
		echoCommand("noop"),
	)

	t.Run("dispatch", func(t *testing.T) {
		got, err := set.Invoke(context.Background(), "echo", []any{"x"})
		if err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		if got != "x" {
			t.Errorf("got %v, want x", got)
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := set.Invoke(context.Background(), "missing", nil)
		if !errors.Is(err, ErrCommandNotFound) {
			t.Errorf("got %v, want ErrCommandNotFound", err)
		}
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, err := set.Invoke(context.Background(), "echo", nil)
		if !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("got %v, want ErrInvalidParameters", err)
		}
		if err.Error() != "echo expects 1 arguments, got 0." {
			t.Errorf("message = %q", err.Error())
		}
	})
}

func TestCommandSetNames(t *testing.T) {
	set := NewCommandSet(echoCommand("b"), echoCommand("a"), echoCommand("c"))
	names := set.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("Names = %v", names)
	}
	if err := set.Add(echoCommand("a")); !errors.Is(err, ErrDuplicateCommand) {
		t.Errorf("duplicate Add returned %v", err)
	}
}

func TestCommandUsage(t *testing.T) {
	c := NewCommand(&CommandMetadata{
		Name: "digitalWrite",
		Parameters: []ParameterMetadata{
			{Name: "pin", Type: DataTypeInt},
			{Name: "value", Type: DataTypeInt},
		},
		Result: DataTypeBool,
	}, nil)
	if got, want := c.Usage(), "digitalWrite(pin int, value int) -> bool"; got != want {
		t.Errorf("Usage = %q, want %q", got, want)
	}
}

func TestRangeError(t *testing.T) {
	err := CheckRange("Pin", 99, 0, 31)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Pin must be a valid number in range 0 to 31." {
		t.Errorf("message = %q", err.Error())
	}
	var ve *ValueError
	if !errors.As(err, &ve) || !errors.Is(err, ErrInvalidParameters) {
		t.Error("range error should be a ValueError matching ErrInvalidParameters")
	}
	if CheckRange("Pin", 31, 0, 31) != nil {
		t.Error("upper bound is inclusive")
	}
}

func TestArgsConversion(t *testing.T) {
	args := Args{
		values: []any{uint64(5), true, float64(1.5), "up", []any{uint64(1), uint64(2)}},
		params: []ParameterMetadata{{Name: "pin"}, {Name: "flag"}, {Name: "v"}, {Name: "name"}, {Name: "pins"}},
	}

	if v, err := args.Int(0); err != nil || v != 5 {
		t.Errorf("Int = %d, %v", v, err)
	}
	if v, err := args.Bool(1); err != nil || !v {
		t.Errorf("Bool = %v, %v", v, err)
	}
	if v, err := args.Float(2); err != nil || v != 1.5 {
		t.Errorf("Float = %v, %v", v, err)
	}
	if v, err := args.Text(3); err != nil || v != "up" {
		t.Errorf("Text = %q, %v", v, err)
	}
	if v, err := args.Ints(4); err != nil || len(v) != 2 {
		t.Errorf("Ints = %v, %v", v, err)
	}

	_, err := args.Int(3)
	if !errors.Is(err, ErrInvalidParameters) || err.Error() != "name must be an integer." {
		t.Errorf("Int(3) error = %v", err)
	}
	if _, err := args.Int(9); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("Int(9) error = %v", err)
	}
}
