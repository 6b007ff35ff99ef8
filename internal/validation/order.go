package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// Move takes the item at from and inserts it at gutter to. Gutters are the
// gaps between items of the original list: gutter 0 is before the first
// item, gutter len(list) after the last. The input is not modified.
func Move[T any](list []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(list) {
		return nil, fmt.Errorf("%w: source %d out of range", ErrInvalidOrder, from)
	}
	if to < 0 || to > len(list) {
		return nil, fmt.Errorf("%w: target %d out of range", ErrInvalidOrder, to)
	}

	item := list[from]
	out := make([]T, 0, len(list))
	out = append(out, list[:from]...)
	out = append(out, list[from+1:]...)

	if to > from {
		to--
	}
	out = append(out, item)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = item
	return out, nil
}

// ParseOrder reads a comma separated permutation of 0..n-1. An empty value
// keeps the original order.
func ParseOrder(raw string, n int) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%w: expected %d positions, got %d", ErrInvalidOrder, n, len(parts))
	}
	seen := make([]bool, n)
	order := make([]int, n)
	for i, p := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || idx < 0 || idx >= n || seen[idx] {
			return nil, fmt.Errorf("%w: %q is not a permutation", ErrInvalidOrder, raw)
		}
		seen[idx] = true
		order[i] = idx
	}
	return order, nil
}

// ApplyOrder returns list rearranged so that position i holds
// list[order[i]]. order must come from ParseOrder for len(list).
func ApplyOrder[T any](list []T, order []int) []T {
	out := make([]T, len(order))
	for i, idx := range order {
		out[i] = list[idx]
	}
	return out
}
