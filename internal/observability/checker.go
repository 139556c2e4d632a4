package observability

import "context"

// Checker is a dependency verified by the readiness probe.
// Implementations must respect the context deadline.
type Checker interface {
	// Name identifies the component in the probe response (e.g., "postgres", "redis").
	Name() string
	// Check returns nil when the component is usable.
	Check(ctx context.Context) error
}
