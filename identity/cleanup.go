package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"github.com/spacegame/users"
	"github.com/spacegame/users/persistent"
)

const (
	defaultMaxTries        = 4
	defaultInitialInterval = 200 * time.Millisecond
)

type CleanupQueue interface {
	Enqueue(ctx context.Context, email users.Email) error

	Pending(ctx context.Context) ([]persistent.PendingCleanup, error)

	Remove(ctx context.Context, email users.Email) error
}

var _ CleanupQueue = (*persistent.CleanupQueue)(nil)

// Cleaner releases identity provider accounts of deleted profiles. Releases
// that keep failing are queued and retried by Sweep.
type Cleaner struct {
	Provider users.IdentityProvider
	Queue    CleanupQueue

	MaxTries        uint
	InitialInterval time.Duration
}

// Release deletes the account, retrying transient failures until ctx is done.
// A release that still fails is queued, only a failure to queue is returned.
func (c *Cleaner) Release(ctx context.Context, email users.Email) error {
	err := c.deleteWithRetry(ctx, email)
	if err == nil {
		return nil
	}

	log := logrus.WithField("email", email).WithError(err)
	// queued even when ctx ran out
	if queueErr := c.Queue.Enqueue(context.WithoutCancel(ctx), email); queueErr != nil {
		log.WithField("queue_error", queueErr).Errorln("Could not queue identity account cleanup.")
		return fmt.Errorf("enqueue cleanup: %w", queueErr)
	}
	log.Warningln("Identity account release failed, queued for cleanup.")
	return nil
}

// Sweep tries every queued account once. Returns the number of released accounts.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	pending, err := c.Queue.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("pending cleanups: %w", err)
	}

	released := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		log := logrus.WithField("email", p.Email).WithField("attempts", p.Attempts)

		if err := c.Provider.DeleteAccount(ctx, p.Email); err != nil {
			log.WithError(err).Warningln("Identity account cleanup failed.")
			if err := c.Queue.Enqueue(ctx, p.Email); err != nil {
				return released, fmt.Errorf("requeue cleanup: %w", err)
			}
			continue
		}
		if err := c.Queue.Remove(ctx, p.Email); err != nil {
			return released, fmt.Errorf("remove cleanup: %w", err)
		}
		log.Infoln("Identity account released.")
		released++
	}
	return released, nil
}

// Run sweeps every interval until ctx is done.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := c.Sweep(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithError(err).Errorln("Identity cleanup sweep failed.")
			}
			if released > 0 {
				logrus.WithField("released", released).Infoln("Identity cleanup sweep done.")
			}
		}
	}
}

func (c *Cleaner) deleteWithRetry(ctx context.Context, email users.Email) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultInitialInterval
	}
	maxTries := c.MaxTries
	if maxTries == 0 {
		maxTries = defaultMaxTries
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.Provider.DeleteAccount(ctx, email)
		if errors.Is(err, ErrUnauthorized) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(maxTries))
	return err
}
