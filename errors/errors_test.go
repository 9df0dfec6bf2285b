package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseCoerce,
				Kind:     KindTypeMismatch,
				Path:     []string{"user", "address", "zip"},
				GoType:   "int",
				AvroType: "string",
				Detail:   "cannot convert",
			},
			contains: []string{"[coerce]", "type_mismatch", "user.address.zip", "int", "string", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindTruncated,
			},
			contains: []string{"[decode]", "truncated"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRegistry,
				Kind:   KindNotFound,
				Detail: "schema 7",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[registry]", "not_found", "schema 7", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindInvalidEnum,
		Path:  []string{"foo"},
	}

	if !errors.Is(err, &Error{Phase: PhaseDecode, Kind: KindInvalidEnum}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindInvalidEnum}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindTruncated}) {
		t.Error("Is should not match different kind")
	}
}

func TestError_WithPath(t *testing.T) {
	base := InvalidData(PhaseDecode, []string{"zip"}, "bad")
	wrapped := base.WithPath("user", "address")

	if got := strings.Join(wrapped.Path, "."); got != "user.address.zip" {
		t.Errorf("Path = %q, want user.address.zip", got)
	}
	if len(base.Path) != 1 {
		t.Errorf("WithPath mutated the original path: %v", base.Path)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseCoerce, KindTypeMismatch).
		Path("user", "name").
		GoType("int").
		AvroType("string").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseCoerce {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseCoerce)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.AvroType != "string" {
		t.Errorf("AvroType = %v, want 'string'", err.AvroType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("CannotCoerce", func(t *testing.T) {
		err := CannotCoerce([]string{"id"}, "abc", "fixed(4)")
		if err.Phase != PhaseCoerce || err.Kind != KindTypeMismatch {
			t.Errorf("got %s/%s", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), "fixed(4)") {
			t.Errorf("message %q should name the expected type", err.Error())
		}
		if err.GoType != "string" {
			t.Errorf("GoType = %q", err.GoType)
		}
	})

	t.Run("InvalidSchema", func(t *testing.T) {
		err := InvalidSchema([]string{"u"}, "null must be the first union branch, found at %d", 1)
		if err.Phase != PhaseCompile || err.Kind != KindInvalidSchema {
			t.Errorf("got %s/%s", err.Phase, err.Kind)
		}
		if !IsSchemaError(err) {
			t.Error("IsSchemaError = false")
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		err := Truncated(PhaseDecode, nil, 8, 3)
		if !IsDecodeError(err) {
			t.Error("IsDecodeError = false")
		}
		if !strings.Contains(err.Detail, "8") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("InvalidBranch", func(t *testing.T) {
		err := InvalidBranch(PhaseDecode, []string{"v"}, 5, 2)
		if err.Kind != KindInvalidVariant {
			t.Errorf("Kind = %v", err.Kind)
		}
		if err.Value != int64(5) {
			t.Errorf("Value = %v", err.Value)
		}
	})

	t.Run("FieldUnknown", func(t *testing.T) {
		err := FieldUnknown(PhaseCoerce, nil, "extra")
		if !strings.Contains(err.Error(), "attribute 'extra' does not exist") {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("FieldMissing", func(t *testing.T) {
		err := FieldMissing(PhaseCompile, []string{"email"}, "email", "ns.UserV1")
		if !IsSchemaError(err) || err.Kind != KindFieldMissing {
			t.Errorf("got %s/%s", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Error(), `field "email" is absent from ns.UserV1`) {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseCoerce, []string{"val"}, int64(1)<<40, "int")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v", err.Kind)
		}
	})

	t.Run("InvalidEnum", func(t *testing.T) {
		err := InvalidEnum(PhaseDecode, []string{"status"}, 9, "ns.Status")
		if err.Kind != KindInvalidEnum {
			t.Errorf("Kind = %v", err.Kind)
		}
	})
}

func TestFingerprintMismatchError(t *testing.T) {
	err := &FingerprintMismatchError{
		Name:       "ns.RecordA",
		Registered: [32]byte{0xaa},
		Attempted:  [32]byte{0xbb},
	}

	msg := err.Error()
	for _, s := range []string{"ns.RecordA", "aa00", "bb00", "fingerprint_mismatch"} {
		if !strings.Contains(msg, s) {
			t.Errorf("message %q does not contain %q", msg, s)
		}
	}

	wrapped := fmt.Errorf("build model: %w", err)
	if !errors.Is(wrapped, &FingerprintMismatchError{}) {
		t.Error("errors.Is should match FingerprintMismatchError")
	}
	if !errors.Is(wrapped, &Error{Phase: PhaseRegistry, Kind: KindFingerprintMismatch}) {
		t.Error("errors.Is should match registry/fingerprint_mismatch")
	}

	var target *FingerprintMismatchError
	if !errors.As(wrapped, &target) || target.Name != "ns.RecordA" {
		t.Error("errors.As should recover the mismatch")
	}
}

func TestPhaseClassifiers(t *testing.T) {
	coerce := fmt.Errorf("ctx: %w", CannotCoerce(nil, 1, "string"))
	if !IsCoercionError(coerce) || IsDecodeError(coerce) {
		t.Error("classifier mismatch for coercion error")
	}
	if IsSchemaError(errors.New("plain")) {
		t.Error("plain errors carry no phase")
	}
	if !IsEncodeError(InvalidData(PhaseEncode, nil, "x")) {
		t.Error("IsEncodeError = false")
	}
}
