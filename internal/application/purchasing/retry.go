package purchasing

import (
	"context"
	"time"

	"github.com/jhoicas/Abastecimiento-api/internal/domain"
)

// RetryOnce ejecuta fn y, si falla con un error transitorio, espera delay y lo reintenta una sola vez.
func RetryOnce(ctx context.Context, delay time.Duration, fn func() error) error {
	err := fn()
	if !domain.IsRetryable(err) {
		return err
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return fn()
}
