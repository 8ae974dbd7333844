package postbook

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/postbook/book"
	"github.com/eringen/postbook/layout"
)

// BookCache keeps the book built from the stored feed for a TTL. Imports
// invalidate it.
type BookCache struct {
	mu      sync.RWMutex
	book    *book.Book
	fetched time.Time
	ttl     time.Duration

	store     *Store
	media     *Media
	constants layout.Constants
	log       *zap.Logger
}

// NewBookCache creates a BookCache backed by the given Store.
func NewBookCache(s *Store, m *Media, c layout.Constants, ttl time.Duration, log *zap.Logger) *BookCache {
	return &BookCache{store: s, media: m, constants: c, ttl: ttl, log: log}
}

func (c *BookCache) valid() bool {
	return c.book != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read rebuilds the book.
func (c *BookCache) Invalidate() {
	c.mu.Lock()
	c.book = nil
	c.mu.Unlock()
}

// Book returns the cached book, rebuilding it when stale. It tries a read
// lock first and only takes the write lock to rebuild.
func (c *BookCache) Book(ctx context.Context) (*book.Book, error) {
	c.mu.RLock()
	if c.valid() {
		b := c.book
		c.mu.RUnlock()
		return b, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.book, nil
	}
	b, err := c.build(ctx)
	if err != nil {
		return nil, err
	}
	c.book = b
	c.fetched = time.Now()
	return b, nil
}

func (c *BookCache) build(ctx context.Context) (*book.Book, error) {
	f, err := c.store.LoadFeed(ctx)
	if err != nil {
		return nil, err
	}
	return buildBook(ctx, f.Posts, f.Profile, c.constants, c.media, c.log)
}
