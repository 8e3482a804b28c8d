// Package util collects small generic helpers shared across betree's
// packages. These are ambient, domain-free utilities, kept close to the
// originals this project was imitated from.
package util

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
)

////////////////////////////////////////////////////////////////////////////////

// Pow returns x raised to the power of y, for y >= 0.
func Pow[V int | int64 | float64 | uint64 | float32](x V, y int) V {
	if y == 0 {
		return 1
	}
	if y == 1 {
		return x
	}
	result := x
	for i := 2; i <= y; i++ {
		result *= x
	}
	return result
}

// Okeys returns the keys of a map in sorted order.
func Okeys[T cmp.Ordered, K any](m map[T]K) []T {
	keys := make([]T, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// When returns a if cond is true, otherwise b.
func When[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// Min returns the minimum of a and b.
func Min[T cmp.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of a and b.
func Max[T cmp.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Filter returns the elements of xs for which f returns true.
func Filter[T any](f func(T) bool, xs []T) []T {
	ys := make([]T, 0, len(xs))
	for _, x := range xs {
		if f(x) {
			ys = append(ys, x)
		}
	}
	return ys
}

// Map applies f to every element of xs, returning a new slice.
func Map[T any, U any](f func(T) U, xs []T) []U {
	ys := make([]U, len(xs))
	for i, x := range xs {
		ys[i] = f(x)
	}
	return ys
}

// Pointer returns a pointer to x.
func Pointer[T any](x T) *T {
	return &x
}

// CloseAll closes every closer and returns a wrapped error naming the first
// failure, noting how many others also failed.
func CloseAll[T io.Closer](closers ...T) error {
	errs := make([]error, len(closers))
	for i, c := range closers {
		if err := c.Close(); err != nil {
			errs[i] = err
		}
	}
	errored := Filter(func(e error) bool { return e != nil }, errs)
	if len(errored) > 0 {
		rest := ""
		if len(errored) > 1 {
			rest = fmt.Sprintf(" (%d other errors)", len(errored)-1)
		}
		return fmt.Errorf("failed to close resource: %w%s", errored[0], rest)
	}
	return nil
}

// FormatUint64 is a tiny indirection so callers don't need to import
// strconv just to stringify a NodeID.
func FormatUint64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
