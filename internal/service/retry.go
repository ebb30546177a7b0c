package service

import (
	"context"
	"fmt"
	"log"

	"github.com/usamatauqir381/questxcopilot/internal/cache"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

// withRetry runs fn and retries it once on a transient storage failure.
// A second transient failure surfaces as ErrUnavailable.
func withRetry(op string, fn func() error) error {
	err := fn()
	if err == nil || !repository.IsTransient(err) {
		return err
	}

	log.Printf("[Retry] %s failed, retrying once: %v", op, err)
	err = fn()
	if err == nil {
		return nil
	}
	if repository.IsTransient(err) {
		log.Printf("[Retry] ERROR: %s failed again: %v", op, err)
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return err
}

// lockKey enters the exclusive section for key
func lockKey(ctx context.Context, locker cache.Locker, key string) (func(), error) {
	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", ErrUnavailable, key, err)
	}
	return unlock, nil
}
