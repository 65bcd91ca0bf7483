package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
	"skaila.com/gamification/pkg/apperror"
)

type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, InitialInterval: 25 * time.Millisecond, MaxInterval: 500 * time.Millisecond}
}

type retryingStore struct {
	Store
	policy RetryPolicy
}

// WithRetry reruns whole transactions that fail with
// apperror.ErrStorageTransient. When attempts run out the error becomes
// apperror.ErrStorageUnavailable.
func WithRetry(store Store, policy RetryPolicy) Store {
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 1
	}
	return &retryingStore{Store: store, policy: policy}
}

func (s *retryingStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	b := backoff.NewExponentialBackOff()
	if s.policy.InitialInterval > 0 {
		b.InitialInterval = s.policy.InitialInterval
	}
	if s.policy.MaxInterval > 0 {
		b.MaxInterval = s.policy.MaxInterval
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := s.Store.WithinTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if !apperror.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		log.Printf("🔁 transaction attempt %d/%d failed: %v", attempt, s.policy.MaxAttempts, err)
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.policy.MaxAttempts))

	if err != nil && (apperror.IsRetryable(err) || ctx.Err() != nil) {
		return fmt.Errorf("%w: gave up after %d attempts: %v", apperror.ErrStorageUnavailable, attempt, err)
	}
	return err
}
