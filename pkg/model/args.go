package model

import (
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// Args are the positional arguments of one call, paired with the
// parameter metadata of the command so conversion errors can name the
// parameter.
type Args struct {
	values []any
	params []ParameterMetadata
}

// NewArgs wraps raw values without metadata, mostly for tests.
func NewArgs(values ...any) Args {
	return Args{values: values}
}

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a.values)
}

// Raw returns argument i unconverted.
func (a Args) Raw(i int) any {
	if i < 0 || i >= len(a.values) {
		return nil
	}
	return a.values[i]
}

func (a Args) name(i int) string {
	if i < len(a.params) && a.params[i].Name != "" {
		return a.params[i].Name
	}
	return "argument"
}

func (a Args) missing(i int) error {
	return InvalidValue("Missing %s (position %d).", a.name(i), i)
}

// Int returns argument i as an int.
func (a Args) Int(i int) (int, error) {
	if i >= len(a.values) {
		return 0, a.missing(i)
	}
	v, ok := wire.AsInt(a.values[i])
	if !ok {
		return 0, InvalidValue("%s must be an integer.", a.name(i))
	}
	return v, nil
}

// Bool returns argument i as a bool; integers are accepted, non-zero
// meaning true.
func (a Args) Bool(i int) (bool, error) {
	if i >= len(a.values) {
		return false, a.missing(i)
	}
	v, ok := wire.AsBool(a.values[i])
	if !ok {
		return false, InvalidValue("%s must be a boolean.", a.name(i))
	}
	return v, nil
}

// Float returns argument i as a float64.
func (a Args) Float(i int) (float64, error) {
	if i >= len(a.values) {
		return 0, a.missing(i)
	}
	v, ok := wire.AsFloat(a.values[i])
	if !ok {
		return 0, InvalidValue("%s must be a number.", a.name(i))
	}
	return v, nil
}

// Text returns argument i as a string.
func (a Args) Text(i int) (string, error) {
	if i >= len(a.values) {
		return "", a.missing(i)
	}
	v, ok := wire.AsString(a.values[i])
	if !ok {
		return "", InvalidValue("%s must be a string.", a.name(i))
	}
	return v, nil
}

// Ints returns argument i as a list of ints.
func (a Args) Ints(i int) ([]int, error) {
	if i >= len(a.values) {
		return nil, a.missing(i)
	}
	v, ok := wire.AsInts(a.values[i])
	if !ok {
		return nil, InvalidValue("%s must be a list of integers.", a.name(i))
	}
	return v, nil
}
