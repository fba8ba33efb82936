package topology

import "fmt"

// Optional holds a value together with a presence flag. The zero value is
// unset, so an Optional field left alone is never mistaken for an override.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an unset Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// IsSet reports whether a value was supplied.
func (o Optional[T]) IsSet() bool { return o.set }

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// Or returns the value when set, otherwise fallback.
func (o Optional[T]) Or(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// Value returns the value, or an ImmutableOverrideError naming field when the
// value was never set.
func (o Optional[T]) Value(field string) (T, error) {
	if !o.set {
		var zero T
		return zero, &ImmutableOverrideError{Field: field}
	}
	return o.value, nil
}

func (o Optional[T]) String() string {
	if !o.set {
		return "<unset>"
	}
	return fmt.Sprint(o.value)
}
