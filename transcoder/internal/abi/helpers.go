package abi

import (
	"math"
	"reflect"
)

const (
	MaxBytesLen   = 1 << 30 // 1 GB max string/bytes payload
	MaxBlockItems = 1 << 27 // 128M max array/map items
)

// SafeAddInt adds two non-negative counts, reporting overflow past max.
func SafeAddInt(a, b, max int64) (int64, bool) {
	if a > math.MaxInt64-b || a+b > max {
		return 0, false
	}
	return a + b, true
}

// TypeName returns "nil" for nil values, avoiding reflect.TypeOf(nil) panic.
func TypeName(value any) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}

// IsNil reports whether value is nil or a nil pointer. Nil slices and maps
// are empty collections, not null.
func IsNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
