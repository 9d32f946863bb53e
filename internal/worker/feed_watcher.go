// Package worker provides the background feed watcher that announces
// newly published posts without waiting for a webhook.
package worker

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/converze/newsletter/internal/broadcast"
	"github.com/converze/newsletter/internal/content"
	"github.com/converze/newsletter/internal/pkg/logger"
)

// Broadcaster runs a campaign for one post.
type Broadcaster interface {
	Broadcast(ctx context.Context, req broadcast.Request) (*broadcast.Summary, error)
}

// SlugResolver maps a feed item's slug back to a post document.
type SlugResolver interface {
	FetchPostBySlug(ctx context.Context, slug string) (*content.Post, error)
}

// FeedWatcher polls the site's RSS feed and broadcasts a blog-post
// campaign for every item it has not seen before. The first poll only
// primes the seen set so a restart never re-announces the archive.
type FeedWatcher struct {
	parser      *gofeed.Parser
	broadcaster Broadcaster
	resolver    SlugResolver
	feedURL     string
	interval    time.Duration

	seen   map[string]bool
	primed bool

	totalPolls      int64
	totalBroadcasts int64
	totalErrors     int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewFeedWatcher creates a watcher for the given feed URL.
func NewFeedWatcher(broadcaster Broadcaster, resolver SlugResolver, feedURL string, interval time.Duration) *FeedWatcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &FeedWatcher{
		parser:      gofeed.NewParser(),
		broadcaster: broadcaster,
		resolver:    resolver,
		feedURL:     feedURL,
		interval:    interval,
		seen:        make(map[string]bool),
	}
}

// Start begins the background polling goroutine.
func (w *FeedWatcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()

	logger.Info("feed watcher starting", "feed", w.feedURL, "interval", w.interval.String())

	w.wg.Add(1)
	go w.pollLoop()
}

// Stop halts polling and waits for the loop to exit.
func (w *FeedWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()

	logger.Info("feed watcher stopped",
		"polls", atomic.LoadInt64(&w.totalPolls),
		"broadcasts", atomic.LoadInt64(&w.totalBroadcasts),
		"errors", atomic.LoadInt64(&w.totalErrors))
}

// Stats returns polling counters.
func (w *FeedWatcher) Stats() map[string]int64 {
	return map[string]int64{
		"total_polls":      atomic.LoadInt64(&w.totalPolls),
		"total_broadcasts": atomic.LoadInt64(&w.totalBroadcasts),
		"total_errors":     atomic.LoadInt64(&w.totalErrors),
	}
}

func (w *FeedWatcher) pollLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Prime immediately rather than waiting one full interval.
	w.Poll(w.ctx)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.Poll(w.ctx)
		}
	}
}

// Poll fetches the feed once and broadcasts any unseen items. It is
// exported so a webhook-less deployment can trigger a check manually.
func (w *FeedWatcher) Poll(ctx context.Context) {
	atomic.AddInt64(&w.totalPolls, 1)

	feed, err := w.parser.ParseURLWithContext(w.feedURL, ctx)
	if err != nil {
		atomic.AddInt64(&w.totalErrors, 1)
		logger.Warn("feed fetch failed", "feed", w.feedURL, "error", err.Error())
		return
	}

	w.mu.Lock()
	primed := w.primed
	w.primed = true
	var fresh []*gofeed.Item
	for _, item := range feed.Items {
		key := itemKey(item)
		if key == "" || w.seen[key] {
			continue
		}
		w.seen[key] = true
		if primed {
			fresh = append(fresh, item)
		}
	}
	w.mu.Unlock()

	for _, item := range fresh {
		w.announce(ctx, item)
	}
}

func (w *FeedWatcher) announce(ctx context.Context, item *gofeed.Item) {
	slug := slugFromLink(item.Link)
	if slug == "" {
		logger.Warn("feed item has no recognizable post link", "title", item.Title, "link", item.Link)
		return
	}

	post, err := w.resolver.FetchPostBySlug(ctx, slug)
	if err != nil {
		atomic.AddInt64(&w.totalErrors, 1)
		logger.Warn("resolving feed item failed", "slug", slug, "error", err.Error())
		return
	}
	if post == nil {
		logger.Warn("feed item not found in content store", "slug", slug)
		return
	}

	summary, err := w.broadcaster.Broadcast(ctx, broadcast.Request{
		Type:   broadcast.TypeBlogPost,
		PostID: post.ID,
	})
	if err != nil {
		atomic.AddInt64(&w.totalErrors, 1)
		logger.Warn("feed broadcast failed", "slug", slug, "error", err.Error())
		return
	}

	atomic.AddInt64(&w.totalBroadcasts, 1)
	logger.Info("feed broadcast sent", "slug", slug, "sent", summary.Sent, "failed", summary.Failed)
}

// itemKey prefers the GUID and falls back to the link.
func itemKey(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

// slugFromLink extracts the trailing slug from a /blog/<slug> URL.
func slugFromLink(link string) string {
	idx := strings.Index(link, "/blog/")
	if idx < 0 {
		return ""
	}
	slug := strings.Trim(link[idx+len("/blog/"):], "/")
	if slug == "" || strings.Contains(slug, "/") {
		return ""
	}
	return slug
}
