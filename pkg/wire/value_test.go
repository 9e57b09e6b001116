package wire

import "testing"

func TestAsInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{uint64(31), 31, true},
		{int64(-4), -4, true},
		{float64(2), 2, true},
		{float64(2.5), 0, false},
		{"3", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := AsInt(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("AsInt(%#v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAsInts(t *testing.T) {
	got, ok := AsInts([]any{uint64(1), int64(2), float64(3)})
	if !ok || len(got) != 3 || got[2] != 3 {
		t.Fatalf("AsInts = %v, %v", got, ok)
	}
	if _, ok := AsInts([]any{uint64(1), "x"}); ok {
		t.Error("AsInts accepted a string element")
	}
	if _, ok := AsInts(uint64(1)); ok {
		t.Error("AsInts accepted a scalar")
	}
}

func TestAsBool(t *testing.T) {
	if b, ok := AsBool(true); !ok || !b {
		t.Error("AsBool(true) failed")
	}
	if b, ok := AsBool(uint64(0)); !ok || b {
		t.Error("AsBool(0) should be false")
	}
	if _, ok := AsBool("yes"); ok {
		t.Error("AsBool accepted a string")
	}
}
