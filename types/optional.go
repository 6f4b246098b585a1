package types

type (
	// Optional is a value that may not be set. The zero Optional is empty,
	// so it can be embedded in structs without explicit initialization.
	Optional[T any] struct {
		value  T
		exists bool
	}
)

func NewOptional[T any](value T) Optional[T] {
	return Optional[T]{
		value:  value,
		exists: true,
	}
}

func NewEmptyOptional[T any]() Optional[T] {
	// could also just use Optional[T]{}
	return Optional[T]{
		exists: false,
	}
}

func (o Optional[T]) Unpack() (T, bool) {
	return o.value, o.exists
}

func (o Optional[T]) Value() T {
	if !o.exists {
		panic("Access value of empty Optional")
	}
	return o.value
}

func (o Optional[T]) Empty() bool {
	return !o.exists
}
