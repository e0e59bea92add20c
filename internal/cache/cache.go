package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"menuscout/internal/menu"

	log "github.com/sirupsen/logrus"
)

// Key is the single key the menu record is stored under.
const Key = "menuData"

// DefaultTTL is how long a record counts as fresh.
const DefaultTTL = 24 * time.Hour

// Record is a cached snapshot stamped with the time it was saved.
type Record struct {
	menu.Snapshot
	CachedAt time.Time `json:"cachedAt"`
}

// StorageError reports a failed read or write of the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Cache holds at most one menu record. Reads return stale records too;
// freshness is informational only.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// New creates a Cache over store. A non-positive ttl uses DefaultTTL.
func New(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// WithClock sets the clock used for stamps and freshness.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Save overwrites the stored record with snap stamped with the current time.
// Failures are returned as *StorageError and are not retried.
func (c *Cache) Save(ctx context.Context, snap menu.Snapshot) (Record, error) {
	rec := Record{Snapshot: snap, CachedAt: c.now()}

	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, &StorageError{Op: "save", Err: err}
	}
	if err := c.store.Set(ctx, Key, data); err != nil {
		log.WithError(err).Error("failed to save menu to storage")
		return Record{}, &StorageError{Op: "save", Err: err}
	}

	log.WithFields(log.Fields{
		"items":      len(snap.Items),
		"categories": len(snap.Categories),
	}).Info("menu saved to storage")
	return rec, nil
}

// Load returns the stored record, or nil when nothing is cached.
func (c *Cache) Load(ctx context.Context) (*Record, error) {
	data, err := c.store.Get(ctx, Key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &StorageError{Op: "load", Err: fmt.Errorf("corrupt record: %w", err)}
	}
	if !c.IsFresh(rec.CachedAt) {
		log.WithField("cachedAt", rec.CachedAt).Debug("menu cache expired, returning stale data")
	}
	return &rec, nil
}

// Clear removes the stored record.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, Key); err != nil && !errors.Is(err, ErrNotFound) {
		return &StorageError{Op: "clear", Err: err}
	}
	log.Info("menu cache cleared")
	return nil
}

// IsFresh reports whether cachedAt is younger than the TTL.
func (c *Cache) IsFresh(cachedAt time.Time) bool {
	if cachedAt.IsZero() {
		return false
	}
	return c.now().Sub(cachedAt) < c.ttl
}

// Age renders the age of cachedAt for display.
func (c *Cache) Age(cachedAt time.Time) string {
	return FormatAge(c.now().Sub(cachedAt), cachedAt.IsZero())
}

// FormatAge renders a duration as "just now", "N min ago", "Nh ago" or "Nd ago".
func FormatAge(d time.Duration, never bool) string {
	if never {
		return "never"
	}
	minutes := int(d / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case minutes < 1:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%d min ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return fmt.Sprintf("%dd ago", days)
	}
}
