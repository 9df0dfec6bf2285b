package abi

import (
	"math"
	"testing"
)

func TestSafeAddInt(t *testing.T) {
	tests := []struct {
		name   string
		a, b   int64
		max    int64
		want   int64
		wantOK bool
	}{
		{"zero", 0, 0, MaxBlockItems, 0, true},
		{"small", 10, 20, MaxBlockItems, 30, true},
		{"at limit", MaxBlockItems - 1, 1, MaxBlockItems, MaxBlockItems, true},
		{"past limit", MaxBlockItems, 1, MaxBlockItems, 0, false},
		{"int64 overflow", math.MaxInt64, 1, math.MaxInt64, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeAddInt(tt.a, tt.b, tt.max)
			if ok != tt.wantOK {
				t.Errorf("SafeAddInt(%d, %d) ok = %v, want %v", tt.a, tt.b, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("SafeAddInt(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, "nil"},
		{42, "int"},
		{"hello", "string"},
		{[]byte{}, "[]uint8"},
		{map[string]any{}, "map[string]interface {}"},
	}

	for _, tt := range tests {
		if got := TypeName(tt.value); got != tt.want {
			t.Errorf("TypeName(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestIsNil(t *testing.T) {
	var p *int
	var m map[string]any
	var s []string
	if !IsNil(nil) || !IsNil(p) {
		t.Error("nil values not detected")
	}
	if IsNil(0) || IsNil("") || IsNil(m) || IsNil(s) {
		t.Error("non-pointer values reported nil")
	}
}
