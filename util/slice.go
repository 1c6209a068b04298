package util

import (
	"golang.org/x/exp/slices"
)

// LastN returns at most n trailing elements of in.
func LastN[T any](in []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	if len(in) <= n {
		return slices.Clone(in)
	}
	return slices.Clone(in[len(in)-n:])
}

// FirstN returns at most n leading elements of in.
func FirstN[T any](in []T, n int) []T {
	if n <= 0 {
		return []T{}
	}
	if len(in) <= n {
		return slices.Clone(in)
	}
	return slices.Clone(in[:n])
}
