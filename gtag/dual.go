package gtag

import (
	"fmt"
	"log/slog"
)

// Dual is a value of type T tagged with two markers,
// for values that are meaningful on instance TagA with respect to instance TagB.
// For example, a channel ID assigned by chain A for its channel to chain B
// is a Dual[ChainA, ChainB, ChannelID].
//
// The marker order is significant:
// Dual[A, B, T] and Dual[B, A, T] are distinct, unconvertible types.
type Dual[TagA, TagB, T any] struct {
	tagA [0]TagA
	tagB [0]TagB

	value T
}

// TagDual wraps v with the markers TagA and TagB.
func TagDual[TagA, TagB, T any](v T) Dual[TagA, TagB, T] {
	return Dual[TagA, TagB, T]{value: v}
}

// Value returns the untagged payload.
func (d Dual[TagA, TagB, T]) Value() T {
	return d.value
}

// RefDual returns a tagged pointer to d's payload.
// The returned value aliases d.
func RefDual[TagA, TagB, T any](d *Dual[TagA, TagB, T]) Dual[TagA, TagB, *T] {
	return Dual[TagA, TagB, *T]{value: &d.value}
}

// MapDual applies f to the payload of d, preserving both markers in order.
func MapDual[TagA, TagB, T, U any](d Dual[TagA, TagB, T], f func(T) U) Dual[TagA, TagB, U] {
	return Dual[TagA, TagB, U]{value: f(d.value)}
}

// Flip swaps the markers of d.
//
// Only flip values that mean the same thing from either side,
// such as a pair of chain IDs stored in a symmetric structure.
// A channel ID is not symmetric: the counterparty's channel ID is a different value,
// and it must be obtained from the counterparty rather than by flipping.
func Flip[TagA, TagB, T any](d Dual[TagA, TagB, T]) Dual[TagB, TagA, T] {
	return Dual[TagB, TagA, T]{value: d.value}
}

// First projects d onto a value tagged only with its first marker.
func First[TagA, TagB, T any](d Dual[TagA, TagB, T]) Mono[TagA, T] {
	return Mono[TagA, T]{value: d.value}
}

func (d Dual[TagA, TagB, T]) String() string {
	return fmt.Sprint(d.value)
}

func (d Dual[TagA, TagB, T]) GoString() string {
	return fmt.Sprintf("gtag.Dual[%s, %s](%#v)", tagName[TagA](), tagName[TagB](), d.value)
}

func (d Dual[TagA, TagB, T]) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("tag_a", tagName[TagA]()),
		slog.String("tag_b", tagName[TagB]()),
		slog.Any("value", d.value),
	)
}
