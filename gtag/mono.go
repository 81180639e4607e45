package gtag

import (
	"fmt"
	"log/slog"
	"reflect"
)

// Mono is a value of type T tagged with the marker type Tag.
//
// The zero-length tag field gives each instantiation a distinct underlying type,
// so Mono[A, T] is neither assignable nor convertible to Mono[B, T].
// It must remain the first field;
// a trailing zero-size field would cause the compiler to pad the struct.
type Mono[Tag, T any] struct {
	tag [0]Tag

	value T
}

// Tag wraps v with the marker Tag.
//
// Tagging is the only point where the association between a value
// and an instance is asserted, so it belongs in test setup,
// next to the code that obtained v from the instance.
func Tag[Tag, T any](v T) Mono[Tag, T] {
	return Mono[Tag, T]{value: v}
}

// Value returns the untagged payload.
func (m Mono[Tag, T]) Value() T {
	return m.value
}

// Ref returns a tagged pointer to m's payload.
// The returned value aliases m.
func Ref[Tag, T any](m *Mono[Tag, T]) Mono[Tag, *T] {
	return Mono[Tag, *T]{value: &m.value}
}

// Map applies f to the payload of m and tags the result with the same marker.
//
// f is expected to be a projection (selecting a field, calling an accessor)
// of data that belongs to the same instance as the input.
func Map[Tag, T, U any](m Mono[Tag, T], f func(T) U) Mono[Tag, U] {
	return Mono[Tag, U]{value: f(m.value)}
}

// Deref returns a tagged copy of the value m points to.
// Deref panics if m holds a nil pointer.
func Deref[Tag, T any](m Mono[Tag, *T]) Mono[Tag, T] {
	return Mono[Tag, T]{value: *m.value}
}

// String formats the payload with %v.
// The marker is not included; use %#v or the slog value for that.
func (m Mono[Tag, T]) String() string {
	return fmt.Sprint(m.value)
}

// GoString includes the marker type name, to make test failure output
// unambiguous when two instances hold equal payloads.
func (m Mono[Tag, T]) GoString() string {
	return fmt.Sprintf("gtag.Mono[%s](%#v)", tagName[Tag](), m.value)
}

// LogValue renders the payload as the "value" attribute
// alongside the marker name in the "tag" attribute.
func (m Mono[Tag, T]) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("tag", tagName[Tag]()),
		slog.Any("value", m.value),
	)
}

// tagName returns the name of the marker type, for diagnostics only.
func tagName[Tag any]() string {
	return reflect.TypeFor[Tag]().String()
}
