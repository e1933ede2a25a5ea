package sentinel

import "testing"

func TestValue_SomeAndNone(t *testing.T) {
	some := Some(42)
	if some.IsNull() {
		t.Error("Some value should not be null")
	}
	if v, ok := some.Get(); !ok || v != 42 {
		t.Errorf("Get() = (%d, %v), want (42, true)", v, ok)
	}

	none := None[int]()
	if !none.IsNull() {
		t.Error("None value should be null")
	}
	if v, ok := none.Get(); ok || v != 0 {
		t.Errorf("Get() = (%d, %v), want (0, false)", v, ok)
	}
}

func TestValue_ImplementsNullable(t *testing.T) {
	var n Nullable = Some("present")
	if n.IsNull() {
		t.Error("Expected non-null")
	}

	n = None[string]()
	if !n.IsNull() {
		t.Error("Expected null")
	}
}

func TestIsZero(t *testing.T) {
	if !IsZero(0) {
		t.Error("0 should be the reserved int value")
	}
	if IsZero(-1) == true && IsZero(1) == true {
		t.Error("Non-zero ints should not be reserved")
	}
	if !IsZero("") {
		t.Error("Empty string should be the reserved string value")
	}
	if IsZero("x") {
		t.Error("Non-empty string should not be reserved")
	}

	type key struct {
		a, b int
	}
	if !IsZero(key{}) {
		t.Error("Zero struct should be the reserved value")
	}
	if IsZero(key{a: 1}) {
		t.Error("Non-zero struct should not be reserved")
	}
}
