package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"idea-pond/internal/models"

	"github.com/redis/go-redis/v9"
)

// DebounceStore persists NotificationDebounceRecords: per throttling key, when
// each recipient was last notified, plus auxiliary metadata for observability.
type DebounceStore interface {
	LastNotifiedAt(ctx context.Context, key, recipientID string) (time.Time, bool, error)
	MarkNotified(ctx context.Context, key, recipientID, senderName, eventType string, at time.Time) error
	Record(ctx context.Context, key string) (*models.DebounceRecord, error)
}

// Throttle decides, per notification-worthy event, whether an outbound
// notification should fire. The check-then-act sequence against the store is
// not transactional: under concurrent rapid-fire sends from two processes it
// may occasionally double-fire. Accepted best-effort bound; the hot send path
// takes no locks.
type Throttle struct {
	store  DebounceStore
	window time.Duration
}

func NewThrottle(store DebounceStore, window time.Duration) *Throttle {
	return &Throttle{store: store, window: window}
}

// ShouldNotify reports whether a notification to recipientID for the given
// key should fire at now. Senders never notify themselves; that guard runs
// before any throttle state is consulted. Otherwise a notification fires when
// the recipient has never been notified for this key or the cool-down window
// has elapsed. Skipped notifications are dropped, not queued.
func (t *Throttle) ShouldNotify(ctx context.Context, key, senderID, recipientID string, now time.Time) (bool, error) {
	if recipientID == senderID {
		return false, nil
	}

	last, ok, err := t.store.LastNotifiedAt(ctx, key, recipientID)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return now.Sub(last) >= t.window, nil
}

// RecordNotified merges lastNotifiedAt[recipientID] = now plus the sender name
// and event type into the debounce record.
func (t *Throttle) RecordNotified(ctx context.Context, key, recipientID, senderName, eventType string, now time.Time) error {
	return t.store.MarkNotified(ctx, key, recipientID, senderName, eventType, now)
}

// Window returns the configured cool-down duration.
func (t *Throttle) Window() time.Duration {
	return t.window
}

// Redis key layout: one hash per throttling key for cursors, one for metadata.
func lastNotifiedKey(key string) string { return "notify:last:" + key }
func metaKey(key string) string         { return "notify:meta:" + key }

// RedisDebounceStore keeps debounce records in Redis. Each (key, recipient)
// cursor is a hash field holding unix milliseconds.
type RedisDebounceStore struct {
	rdb *redis.Client
}

func NewRedisDebounceStore(rdb *redis.Client) *RedisDebounceStore {
	return &RedisDebounceStore{rdb: rdb}
}

func (s *RedisDebounceStore) LastNotifiedAt(ctx context.Context, key, recipientID string) (time.Time, bool, error) {
	val, err := s.rdb.HGet(ctx, lastNotifiedKey(key), recipientID).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read debounce record: %w", err)
	}

	millis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt debounce cursor for %s/%s: %w", key, recipientID, err)
	}
	return time.UnixMilli(millis).UTC(), true, nil
}

func (s *RedisDebounceStore) MarkNotified(ctx context.Context, key, recipientID, senderName, eventType string, at time.Time) error {
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, lastNotifiedKey(key), recipientID, at.UnixMilli())
	pipe.HSet(ctx, metaKey(key), "lastSenderName", senderName, "eventType", eventType)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write debounce record: %w", err)
	}
	return nil
}

func (s *RedisDebounceStore) Record(ctx context.Context, key string) (*models.DebounceRecord, error) {
	cursors, err := s.rdb.HGetAll(ctx, lastNotifiedKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read debounce record: %w", err)
	}

	record := &models.DebounceRecord{
		Key:            key,
		LastNotifiedAt: make(map[string]time.Time, len(cursors)),
	}
	for recipient, val := range cursors {
		millis, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		record.LastNotifiedAt[recipient] = time.UnixMilli(millis).UTC()
	}

	meta, err := s.rdb.HGetAll(ctx, metaKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read debounce metadata: %w", err)
	}
	record.LastSenderName = meta["lastSenderName"]
	record.EventType = meta["eventType"]

	return record, nil
}
