// Package enums holds the closed string sets stored in the database and
// exchanged over the API.
package enums

import (
	"fmt"
	"slices"
)

func member[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

// parse is exact-match; callers normalise first when they want leniency.
func parse[T ~string](kind, raw string, set []T) (T, error) {
	if v := T(raw); member(v, set) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
