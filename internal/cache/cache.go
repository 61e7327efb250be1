package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/content-management-api/internal/models"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Event signals that the article listing changed. Consumers only care that
// something changed, not what.
type Event struct {
	Reason string
	At     time.Time
}

// Bus is a fire-and-forget invalidation channel. Publishing never blocks;
// when the buffer is full the event is dropped, which is safe because any
// queued event already flushes everything.
type Bus struct {
	events chan Event
	log    zerolog.Logger
}

// NewBus creates an invalidation bus with the given buffer size
func NewBus(buffer int, log zerolog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		events: make(chan Event, buffer),
		log:    log.With().Str("component", "cache_bus").Logger(),
	}
}

// Publish emits an invalidation event without blocking the caller
func (b *Bus) Publish(reason string) {
	select {
	case b.events <- Event{Reason: reason, At: time.Now()}:
	default:
		b.log.Debug().Str("reason", reason).Msg("Invalidation buffer full, event dropped")
	}
}

// Events exposes the event stream for subscribers
func (b *Bus) Events() <-chan Event {
	return b.events
}

// ListCache is a process-local cache of assembled article list pages. It is
// kept consistent by subscribing to the invalidation bus rather than by a
// shared mutable flag.
type ListCache struct {
	cache *gocache.Cache
	log   zerolog.Logger
}

// NewListCache creates a list cache with the given TTL
func NewListCache(ttl time.Duration, log zerolog.Logger) *ListCache {
	return &ListCache{
		cache: gocache.New(ttl, 10*time.Minute),
		log:   log.With().Str("component", "list_cache").Logger(),
	}
}

// Get returns a cached page if present
func (c *ListCache) Get(key string) (*models.ArticleList, bool) {
	v, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	list, ok := v.(*models.ArticleList)
	return list, ok
}

// Set stores a page under the given key with the default TTL
func (c *ListCache) Set(key string, list *models.ArticleList) {
	c.cache.SetDefault(key, list)
}

// Flush drops every cached page
func (c *ListCache) Flush() {
	c.cache.Flush()
}

// Subscribe flushes the cache whenever the bus emits, until ctx is cancelled.
// Run it in its own goroutine.
func (c *ListCache) Subscribe(ctx context.Context, bus *Bus) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-bus.Events():
			c.log.Debug().Str("reason", event.Reason).Msg("Flushing list cache")
			c.cache.Flush()
		}
	}
}

// Key derives a cache key from the page position and filters
func Key(page, pageSize int, f models.ListFilters) string {
	after, before := "", ""
	if f.CreatedAfter != nil {
		after = f.CreatedAfter.Format(time.RFC3339)
	}
	if f.CreatedBefore != nil {
		before = f.CreatedBefore.Format(time.RFC3339)
	}
	return fmt.Sprintf("articles:%d:%d:%s:%s:%s:%s:%s:%s:%t",
		page, pageSize, f.Search, f.Status, f.AuthorID, after, before, f.SortField, f.SortDesc)
}
