package wire

import "math"

// AsInt converts a decoded CBOR value to an int. Floats are accepted when
// they carry an integral value.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return int(f), true
}

// AsFloat converts a decoded CBOR value to a float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		if i, ok := AsInt(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

// AsBool converts a decoded CBOR value to a bool. Integers are accepted,
// non-zero meaning true.
func AsBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if i, ok := AsInt(v); ok {
		return i != 0, true
	}
	return false, false
}

// AsString converts a decoded CBOR value to a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsInts converts a decoded CBOR array to a slice of ints.
func AsInts(v any) ([]int, bool) {
	switch arr := v.(type) {
	case []int:
		return arr, true
	case []any:
		out := make([]int, 0, len(arr))
		for _, item := range arr {
			i, ok := AsInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, i)
		}
		return out, true
	default:
		return nil, false
	}
}
