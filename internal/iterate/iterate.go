// Package iterate provides the single-pass pull iterators every engine
// stage is built from. Iterators are single-threaded and must not be
// advanced after returning ok=false.
package iterate

// Iterator yields items one at a time. Next returns ok=false when the
// sequence is exhausted; the zero T returned alongside is meaningless.
type Iterator[T any] interface {
	Next() (T, bool)
}

// Func adapts a closure into an Iterator.
type Func[T any] func() (T, bool)

func (f Func[T]) Next() (T, bool) { return f() }

// Empty returns an exhausted iterator.
func Empty[T any]() Iterator[T] {
	return Func[T](func() (T, bool) {
		var zero T
		return zero, false
	})
}

// Once yields item exactly once.
func Once[T any](item T) Iterator[T] {
	done := false
	return Func[T](func() (T, bool) {
		if done {
			var zero T
			return zero, false
		}
		done = true
		return item, true
	})
}

// FromSlice yields the elements of items in order. The slice is not copied.
func FromSlice[T any](items []T) Iterator[T] {
	i := 0
	return Func[T](func() (T, bool) {
		if i >= len(items) {
			var zero T
			return zero, false
		}
		item := items[i]
		i++
		return item, true
	})
}

// Map yields f(item) for each item of inner, lazily.
func Map[T, U any](inner Iterator[T], f func(T) U) Iterator[U] {
	return Func[U](func() (U, bool) {
		item, ok := inner.Next()
		if !ok {
			var zero U
			return zero, false
		}
		return f(item), true
	})
}

// Filter yields the items of inner for which keep returns true.
func Filter[T any](inner Iterator[T], keep func(T) bool) Iterator[T] {
	return Func[T](func() (T, bool) {
		for {
			item, ok := inner.Next()
			if !ok {
				var zero T
				return zero, false
			}
			if keep(item) {
				return item, true
			}
		}
	})
}

// Chain yields all of first, then all of second.
func Chain[T any](first, second Iterator[T]) Iterator[T] {
	onSecond := false
	return Func[T](func() (T, bool) {
		if !onSecond {
			if item, ok := first.Next(); ok {
				return item, true
			}
			onSecond = true
		}
		return second.Next()
	})
}

// Flatten concatenates the inner iterators produced by outer, advancing
// outer only when the current inner iterator is exhausted.
func Flatten[T any](outer Iterator[Iterator[T]]) Iterator[T] {
	var current Iterator[T]
	return Func[T](func() (T, bool) {
		for {
			if current != nil {
				if item, ok := current.Next(); ok {
					return item, true
				}
				current = nil
			}
			inner, ok := outer.Next()
			if !ok {
				var zero T
				return zero, false
			}
			current = inner
		}
	})
}

// Collect drains inner into a slice.
func Collect[T any](inner Iterator[T]) []T {
	var out []T
	for {
		item, ok := inner.Next()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}

// Take yields at most n items of inner.
func Take[T any](inner Iterator[T], n int) Iterator[T] {
	seen := 0
	return Func[T](func() (T, bool) {
		if seen >= n {
			var zero T
			return zero, false
		}
		item, ok := inner.Next()
		if !ok {
			var zero T
			return zero, false
		}
		seen++
		return item, true
	})
}
