package observability

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultShutdownTimeout bounds the flush and shutdown performed by Shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Shutdown flushes pending spans and metrics, then stops the provider.
// A short-lived command calls this before exiting so the final exchange is exported.
// Both steps share one deadline; their errors are joined.
func Shutdown(provider Provider, timeout time.Duration) error {
	if provider == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	flushErr := provider.ForceFlush(ctx)
	shutdownErr := provider.Shutdown(ctx)
	if err := errors.Join(flushErr, shutdownErr); err != nil {
		return fmt.Errorf("observability shutdown failed: %w", err)
	}
	return nil
}
