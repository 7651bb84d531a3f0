package services

import (
	"context"
	"errors"

	"finledger/internal/core"
)

// withRetry re-runs op while it fails with core.ErrConflict, up to the
// given attempt budget. Version-check conflicts are transient: the
// losing writer reloads fresh state on the next attempt. Any other
// error, including success, returns immediately.
func withRetry(ctx context.Context, attempts int, op func() error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil || !errors.Is(err, core.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
