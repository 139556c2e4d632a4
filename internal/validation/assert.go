// Package validation provides fail-fast checks for constructor arguments.
// They panic: a missing dependency is a wiring bug, not a runtime condition.
package validation

import "fmt"

// AssertNotNil panics if the provided pointer is nil.
//
// Usage:
//
//	validation.AssertNotNil(pool, "database pool")
func AssertNotNil[T any](ptr *T, name string) {
	if ptr == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}

// AssertNotEmpty panics if value is the empty string, e.g. a Redis key or channel name.
func AssertNotEmpty(value, name string) {
	if value == "" {
		panic(fmt.Sprintf("critical error: %s cannot be empty", name))
	}
}
