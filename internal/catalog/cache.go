package catalog

import (
	"context"
	"fmt"
	"time"

	"growth-engine/internal/clock"
	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

const DefaultTTL = 300 * time.Second

// Cache serves normalized catalog tabs, refetching from the source at most
// once per TTL per tab. When a refetch fails the last good copy is served.
type Cache struct {
	source  Source
	store   EntryStore
	clock   clock.Clock
	ttl     time.Duration
	timeout time.Duration
	log     *logger.Logger
}

type Option func(*Cache)

func WithStore(s EntryStore) Option { return func(c *Cache) { c.store = s } }
func WithClock(cl clock.Clock) Option { return func(c *Cache) { c.clock = cl } }
func WithTTL(ttl time.Duration) Option { return func(c *Cache) { c.ttl = ttl } }
func WithTimeout(d time.Duration) Option { return func(c *Cache) { c.timeout = d } }
func WithLogger(l *logger.Logger) Option { return func(c *Cache) { c.log = l } }

func NewCache(source Source, opts ...Option) *Cache {
	c := &Cache{
		source:  source,
		store:   NewMemoryStore(),
		clock:   clock.System{},
		ttl:     DefaultTTL,
		timeout: 10 * time.Second,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(tab string) string {
	return c.source.Name() + ":" + tab
}

// Fetch returns the tasks of one tab. The error is non-nil only when the
// source failed and nothing was cached; the result is then an empty catalog.
func (c *Cache) Fetch(ctx context.Context, tab string) ([]models.Task, error) {
	key := c.key(tab)
	now := c.clock.Now()

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warnw("catalog cache read failed", "key", key, "error", err)
		ok = false
	}
	if ok && now.Sub(cached.FetchedAt) < c.ttl {
		return cached.Tasks, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values, err := c.source.Values(fetchCtx, tab)
	if err != nil {
		if ok {
			c.log.Warnw("catalog refresh failed, serving stale copy",
				"key", key, "age", now.Sub(cached.FetchedAt).String(), "error", err)
			return cached.Tasks, nil
		}
		return []models.Task{}, fmt.Errorf("failed to fetch catalog tab %s: %w", tab, err)
	}

	tasks := Normalize(values)
	if err := c.store.Set(ctx, key, Entry{Tasks: tasks, FetchedAt: now}); err != nil {
		c.log.Warnw("catalog cache write failed", "key", key, "error", err)
	}
	c.log.Debugw("catalog refreshed", "key", key, "tasks", len(tasks))
	return tasks, nil
}

// FindTask looks a task up by id across every program tab. ok is false when
// no tab contains it.
func (c *Cache) FindTask(ctx context.Context, taskID string) (models.Task, bool, error) {
	var firstErr error
	for _, p := range models.Programs() {
		tasks, err := c.Fetch(ctx, p.ID)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		for _, t := range tasks {
			if t.TaskID == taskID {
				return t, true, nil
			}
		}
	}
	return models.Task{}, false, firstErr
}
