// Package tenant carries the tenant identity through a request and binds the
// tenant metadata store to it.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

type ctxKey struct{}

var (
	// ErrNoTenantInContext indicates no tenant was bound to the context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrInvalidID indicates a tenant identifier that is not a valid slug.
	ErrInvalidID = errors.New("invalid tenant id")
)

// idRegex accepts lowercase slugs of 2 to 63 characters (e.g. "acme-corp").
var idRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// ValidateID checks that id is usable as a tenant identifier.
func ValidateID(id string) error {
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// WithContext returns a new context with the tenant id attached.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the tenant id from a context.
// Returns ErrNoTenantInContext if none is present.
func FromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return "", ErrNoTenantInContext
	}
	return id, nil
}
