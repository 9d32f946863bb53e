package worker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converze/newsletter/internal/broadcast"
	"github.com/converze/newsletter/internal/content"
)

type fakeBroadcaster struct {
	mu       sync.Mutex
	requests []broadcast.Request
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, req broadcast.Request) (*broadcast.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return &broadcast.Summary{Sent: 1, Total: 1}, nil
}

type fakeResolver struct {
	posts map[string]*content.Post
}

func (f *fakeResolver) FetchPostBySlug(_ context.Context, slug string) (*content.Post, error) {
	return f.posts[slug], nil
}

func feedXML(slugs ...string) string {
	items := ""
	for _, slug := range slugs {
		link := "https://converze.com/blog/" + slug
		items += fmt.Sprintf(`
    <item>
      <title>%s</title>
      <link>%s</link>
      <guid isPermaLink="true">%s</guid>
    </item>`, slug, link, link)
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Converze Blog</title>
    <link>https://converze.com</link>` + items + `
  </channel>
</rss>`
}

func TestPollPrimesWithoutBroadcasting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML("existing-post"))
	}))
	defer server.Close()

	b := &fakeBroadcaster{}
	w := NewFeedWatcher(b, &fakeResolver{}, server.URL, time.Minute)

	w.Poll(context.Background())

	assert.Empty(t, b.requests, "first poll only records what already exists")
	assert.Equal(t, int64(1), w.Stats()["total_polls"])
}

func TestPollBroadcastsNewItems(t *testing.T) {
	var mu sync.Mutex
	body := feedXML("old-post")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	resolver := &fakeResolver{posts: map[string]*content.Post{
		"new-post": {ID: "post-new", Slug: "new-post"},
	}}
	b := &fakeBroadcaster{}
	w := NewFeedWatcher(b, resolver, server.URL, time.Minute)

	w.Poll(context.Background())
	require.Empty(t, b.requests)

	mu.Lock()
	body = feedXML("new-post", "old-post")
	mu.Unlock()

	w.Poll(context.Background())

	require.Len(t, b.requests, 1)
	assert.Equal(t, broadcast.TypeBlogPost, b.requests[0].Type)
	assert.Equal(t, "post-new", b.requests[0].PostID)
	assert.Equal(t, int64(1), w.Stats()["total_broadcasts"])

	// Same feed again: nothing new, nothing sent.
	w.Poll(context.Background())
	assert.Len(t, b.requests, 1)
}

func TestPollSkipsUnresolvableItems(t *testing.T) {
	var mu sync.Mutex
	body := feedXML()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	b := &fakeBroadcaster{}
	w := NewFeedWatcher(b, &fakeResolver{}, server.URL, time.Minute)

	w.Poll(context.Background())

	mu.Lock()
	body = feedXML("ghost-post")
	mu.Unlock()

	w.Poll(context.Background())
	assert.Empty(t, b.requests, "items missing from the content store are skipped")
}

func TestPollFeedErrorCounted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := NewFeedWatcher(&fakeBroadcaster{}, &fakeResolver{}, server.URL, time.Minute)
	w.Poll(context.Background())

	assert.Equal(t, int64(1), w.Stats()["total_errors"])
}

func TestStartStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML("a-post"))
	}))
	defer server.Close()

	w := NewFeedWatcher(&fakeBroadcaster{}, &fakeResolver{}, server.URL, time.Hour)
	w.Start()
	w.Start() // second start is a no-op

	assert.Eventually(t, func() bool {
		return w.Stats()["total_polls"] >= 1
	}, time.Second, 10*time.Millisecond)

	w.Stop()
	w.Stop() // second stop is a no-op
}

func TestSlugFromLink(t *testing.T) {
	assert.Equal(t, "my-post", slugFromLink("https://converze.com/blog/my-post"))
	assert.Equal(t, "my-post", slugFromLink("https://converze.com/blog/my-post/"))
	assert.Empty(t, slugFromLink("https://converze.com/about"))
	assert.Empty(t, slugFromLink("https://converze.com/blog/"))
}
