package trinity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Cache memoizes reads from an fs.FS. Each path is read from the filesystem
// at most once for the lifetime of the Cache; every caller asking for that
// path, including callers that arrive while the read is still in flight,
// gets the same bytes or the same error. Entries are never invalidated, so
// the resources behind a Cache are presumed not to change once deployed.
//
// A Cache must be instantiated through NewCache, its empty value is not
// usable. It can safely be used by multiple goroutines.
type Cache struct {
	fsys fs.FS

	entries   map[string]*cacheEntry
	entriesMu sync.Mutex
}

// cacheEntry is pending until done is closed; after that data and err are
// immutable.
type cacheEntry struct {
	done chan struct{}
	data []byte
	err  error
}

// NewCache returns a Cache that reads from fsys.
func NewCache(fsys fs.FS) *Cache {
	return &Cache{
		fsys:    fsys,
		entries: map[string]*cacheEntry{},
	}
}

// Get delivers the contents of the resource at path to cb, on a new
// goroutine, once they're available. A resource that doesn't exist is
// reported with an error wrapping both ErrNotFound and fs.ErrNotExist.
func (c *Cache) Get(ctx context.Context, path string, cb func([]byte, error)) {
	entry, _ := c.entry(ctx, path)
	go func() {
		<-entry.done
		cb(entry.data, entry.err)
	}()
}

// Warm makes sure the resource at path is cached or being read, without
// waiting for it. It returns true if this call is the one that started the
// read.
func (c *Cache) Warm(ctx context.Context, path string) bool {
	_, created := c.entry(ctx, path)
	return created
}

// ReadNow returns the contents of the resource at path, blocking the caller.
// A settled entry is returned as-is. Otherwise, the filesystem is read
// immediately, without waiting on any read already in flight; the result is
// only stored if nothing else has claimed the path in the meantime.
func (c *Cache) ReadNow(ctx context.Context, path string) ([]byte, error) {
	c.entriesMu.Lock()
	entry, ok := c.entries[path]
	c.entriesMu.Unlock()
	if ok {
		select {
		case <-entry.done:
			return entry.data, entry.err
		default:
		}
	}

	data, err := c.read(ctx, path)

	c.entriesMu.Lock()
	defer c.entriesMu.Unlock()
	if _, ok := c.entries[path]; !ok {
		settled := &cacheEntry{done: make(chan struct{}), data: data, err: err}
		close(settled.done)
		c.entries[path] = settled
	}
	return data, err
}

func (c *Cache) entry(ctx context.Context, path string) (*cacheEntry, bool) {
	c.entriesMu.Lock()
	defer c.entriesMu.Unlock()
	if entry, ok := c.entries[path]; ok {
		return entry, false
	}
	entry := &cacheEntry{done: make(chan struct{})}
	c.entries[path] = entry
	go func() {
		entry.data, entry.err = c.read(ctx, path)
		close(entry.done)
	}()
	return entry, true
}

func (c *Cache) read(ctx context.Context, path string) ([]byte, error) {
	_, span := tracer().Start(ctx, "trinity.cache.read", trace.WithAttributes(
		attribute.String("trinity.path", path),
	))
	defer span.End()

	logger(ctx).DebugContext(ctx, "reading resource", "path", path)
	data, err := fs.ReadFile(c.fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		// absence is an expected outcome for optional resources, so it
		// isn't recorded as a span error
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "error reading resource")
		return nil, fmt.Errorf("error reading %q: %w", path, err)
	}
	return data, nil
}
