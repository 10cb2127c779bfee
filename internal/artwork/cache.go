// Package artwork owns artwork retrieval and caching. It is the single
// place artwork concurrency is resolved: fetches run on their own
// goroutine, at most one is in flight, and a newly requested key
// cancels whatever the previous key was still downloading.
package artwork

import (
	"context"
	"image"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/color"
	"github.com/playhead-dev/playhead/internal/domain"
	"github.com/playhead-dev/playhead/internal/normalize"
)

// Result is one resolved artwork delivery. The key travels with the
// result so the consumer can drop late arrivals for tracks it no longer
// cares about.
type Result struct {
	Key      string
	Image    image.Image
	Dominant domain.Color
	Palette  []domain.Color
}

// Request asks the cache to resolve artwork for one track.
type Request struct {
	// Hint is the opaque retrieval hint from the source reply: an
	// HTTP(S) URL, a local file path, domain.ArtworkHintEmbedded, or
	// empty (no artwork exists).
	Hint string
	// Key is the track identity the artwork belongs to.
	Key string
	// Force bypasses the cache and refetches.
	Force bool
	// Querier resolves the embedded sentinel; nil for other hints.
	Querier domain.ArtworkQuerier
}

type entry struct {
	img      image.Image
	dominant domain.Color
	palette  []domain.Color
}

// Cache is the process-lifetime artwork store. Keys are bounded by the
// user's recently played tracks, so entries are never evicted.
type Cache struct {
	logger  *zap.Logger
	fetcher *HTTPFetcher
	extract func(image.Image) (domain.Color, []domain.Color)
	results chan Result

	mu          sync.Mutex
	entries     map[string]entry
	inflight    context.CancelFunc
	inflightKey string

	warnMu   sync.Mutex
	lastWarn time.Time
}

// NewCache creates the cache.
func NewCache(logger *zap.Logger, fetcher *HTTPFetcher) *Cache {
	return &Cache{
		logger:  logger,
		fetcher: fetcher,
		extract: color.Extract,
		results: make(chan Result, 4),
		entries: make(map[string]entry),
	}
}

// Results returns the channel resolved artwork is delivered on. The
// consumer must compare Result.Key against its current track before
// applying a delivery.
func (c *Cache) Results() <-chan Result {
	return c.results
}

// Request resolves artwork for the given hint and key. A cache hit is
// delivered immediately; a miss starts a background fetch, cancelling
// any fetch still running for a previously requested key — only the
// most recently requested track matters.
func (c *Cache) Request(ctx context.Context, req Request) {
	if req.Hint == "" || req.Key == "" {
		return
	}

	c.mu.Lock()
	if e, ok := c.entries[req.Key]; ok && !req.Force {
		c.mu.Unlock()
		c.deliver(Result{Key: req.Key, Image: e.img, Dominant: e.dominant, Palette: e.palette})
		return
	}

	if c.inflight != nil && c.inflightKey != req.Key {
		c.inflight()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.inflight = cancel
	c.inflightKey = req.Key
	c.mu.Unlock()

	go c.fetch(fetchCtx, req)
}

// Put stores artwork that arrived inline with a status reply, so later
// requests for the same track hit the cache.
func (c *Cache) Put(key string, img image.Image, dominant domain.Color, palette []domain.Color) {
	if key == "" || img == nil {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{img: img, dominant: dominant, palette: palette}
	c.mu.Unlock()
}

func (c *Cache) fetch(ctx context.Context, req Request) {
	data, err := c.fetchBytes(ctx, req)
	if err != nil {
		// Artwork failures are never surfaced; the track simply shows
		// without art until the next identity or source change.
		c.logger.Debug("artwork fetch failed",
			zap.String("key", req.Key),
			zap.String("hint", req.Hint),
			zap.Error(err))
		return
	}
	if ctx.Err() != nil {
		return
	}

	img, err := normalize.DecodeImage(data)
	if err != nil {
		c.logger.Debug("artwork decode failed",
			zap.String("key", req.Key),
			zap.Error(err))
		return
	}

	dominant, palette := c.extract(img)

	c.mu.Lock()
	c.entries[req.Key] = entry{img: img, dominant: dominant, palette: palette}
	if c.inflightKey == req.Key {
		c.inflight = nil
		c.inflightKey = ""
	}
	c.mu.Unlock()

	c.deliver(Result{Key: req.Key, Image: img, Dominant: dominant, Palette: palette})
}

func (c *Cache) fetchBytes(ctx context.Context, req Request) ([]byte, error) {
	switch {
	case strings.HasPrefix(req.Hint, "http://"), strings.HasPrefix(req.Hint, "https://"):
		return c.fetcher.Fetch(ctx, req.Hint)
	case req.Hint == domain.ArtworkHintEmbedded:
		if req.Querier == nil {
			return nil, errNoQuerier
		}
		return req.Querier.QueryArtwork(ctx)
	default:
		return os.ReadFile(req.Hint)
	}
}

// deliver hands a result to the consumer without ever blocking the
// fetch goroutine. Drops are rate-limit logged; the consumer re-requests
// on the next identity change anyway.
func (c *Cache) deliver(res Result) {
	select {
	case c.results <- res:
	default:
		c.warnMu.Lock()
		if time.Since(c.lastWarn) >= 5*time.Second {
			c.logger.Warn("artwork results channel full, dropping delivery",
				zap.String("key", res.Key))
			c.lastWarn = time.Now()
		}
		c.warnMu.Unlock()
	}
}
