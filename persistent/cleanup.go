package persistent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spacegame/users"
	"github.com/tidwall/buntdb"
)

const (
	cleanupKeyPrefix = "idp_cleanup:"

	// Accounts not released within this time are dropped from the queue.
	CleanupTTL = 7 * 24 * time.Hour
)

type PendingCleanup struct {
	Email      users.Email `json:"email"`
	EnqueuedAt time.Time   `json:"enqueuedAt"`
	Attempts   int         `json:"attempts"`
}

// CleanupQueue remembers identity provider accounts whose release failed.
type CleanupQueue struct {
	Buntdb *buntdb.DB
}

func (q *CleanupQueue) CreateIndexes() error {
	err := q.Buntdb.CreateIndex("idp_cleanups", cleanupKeyPrefix+"*", buntdb.IndexJSON("enqueuedAt"))
	if err != nil && !errors.Is(err, buntdb.ErrIndexExists) {
		return fmt.Errorf("create cleanup index: %w", err)
	}
	return nil
}

// Enqueue adds email to the queue or bumps its attempt counter.
func (q *CleanupQueue) Enqueue(ctx context.Context, email users.Email) error {
	return q.Buntdb.Update(func(tx *buntdb.Tx) error {
		key := cleanupKeyPrefix + string(email)
		pending := PendingCleanup{Email: email, EnqueuedAt: time.Now().UTC()}

		value, err := tx.Get(key)
		switch {
		case err == nil:
			if err := json.Unmarshal([]byte(value), &pending); err != nil {
				return fmt.Errorf("cleanup deserialize: %w", err)
			}
		case !errors.Is(err, buntdb.ErrNotFound):
			return fmt.Errorf("get cleanup: %w", err)
		}
		pending.Attempts++

		serialized, err := json.Marshal(pending)
		if err != nil {
			return fmt.Errorf("cleanup serialize: %w", err)
		}
		ttl := CleanupTTL - time.Since(pending.EnqueuedAt)
		if ttl <= 0 {
			_, err = tx.Delete(key)
			return err
		}
		_, _, err = tx.Set(key, string(serialized), &buntdb.SetOptions{Expires: true, TTL: ttl})
		if err != nil {
			return fmt.Errorf("set cleanup: %w", err)
		}
		return nil
	})
}

// Pending lists queued cleanups.
func (q *CleanupQueue) Pending(ctx context.Context) ([]PendingCleanup, error) {
	pending := make([]PendingCleanup, 0)
	err := q.Buntdb.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.Ascend("idp_cleanups", func(key, value string) bool {
			if !strings.HasPrefix(key, cleanupKeyPrefix) {
				return true
			}
			var p PendingCleanup
			if decodeErr = json.Unmarshal([]byte(value), &p); decodeErr != nil {
				return false
			}
			pending = append(pending, p)
			return true
		})
		if err != nil {
			return fmt.Errorf("iterate cleanups: %w", err)
		}
		return decodeErr
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (q *CleanupQueue) Remove(ctx context.Context, email users.Email) error {
	return q.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(cleanupKeyPrefix + string(email))
		if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("delete cleanup: %w", err)
		}
		return nil
	})
}
