// Package content reads published blog posts from the Sanity Content
// Lake over its HTTP query API.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/converze/newsletter/internal/config"
	"github.com/converze/newsletter/internal/pkg/httpretry"
)

// Author is a post byline.
type Author struct {
	Name string `json:"name"`
}

// Post is the subset of a blog document the newsletter needs.
type Post struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Slug        string    `json:"slug"`
	PublishedAt time.Time `json:"publishedAt"`
	CoverImage  string    `json:"coverImage"`
	Authors     []Author  `json:"authors"`
}

// The projections resolve the slug, the cover asset URL and the author
// names in one round trip.
const (
	postByIDQuery = `*[_type == "post" && _id == $postId][0]{
  _id,
  title,
  excerpt,
  "slug": slug.current,
  publishedAt,
  "coverImage": coverImage.asset->url,
  "authors": authors[]->{name}
}`

	postBySlugQuery = `*[_type == "post" && slug.current == $slug][0]{
  _id,
  title,
  excerpt,
  "slug": slug.current,
  publishedAt,
  "coverImage": coverImage.asset->url,
  "authors": authors[]->{name}
}`
)

// Client queries the Sanity HTTP API. Only read access is needed, so
// it carries no token; published documents are public.
type Client struct {
	baseURL    string
	dataset    string
	apiVersion string
	httpClient httpretry.HTTPDoer
}

// NewClient builds a content client from config. When no explicit base
// URL is set the project's api.sanity.io host is derived from the
// project ID.
func NewClient(cfg config.ContentConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" && cfg.ProjectID != "" {
		baseURL = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	return &Client{
		baseURL:    baseURL,
		dataset:    cfg.Dataset,
		apiVersion: cfg.APIVersion,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// Configured reports whether the client can reach a content project.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// FetchPostByID loads one post by document ID. A missing or unknown ID
// returns (nil, nil); only transport and decode failures are errors.
func (c *Client) FetchPostByID(ctx context.Context, postID string) (*Post, error) {
	return c.queryPost(ctx, postByIDQuery, "$postId", postID)
}

// FetchPostBySlug loads one post by its URL slug. Same missing-post
// semantics as FetchPostByID.
func (c *Client) FetchPostBySlug(ctx context.Context, slug string) (*Post, error) {
	return c.queryPost(ctx, postBySlugQuery, "$slug", slug)
}

func (c *Client) queryPost(ctx context.Context, query, paramName, paramValue string) (*Post, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("content service not configured")
	}

	// GROQ parameters are JSON-encoded values.
	encoded, err := json.Marshal(paramValue)
	if err != nil {
		return nil, fmt.Errorf("encoding query parameter: %w", err)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set(paramName, string(encoded))

	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s",
		c.baseURL, c.apiVersion, url.PathEscape(c.dataset), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying content: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content query failed (status %d): %s",
			resp.StatusCode, truncate(string(body), 200))
	}

	var envelope struct {
		Result *Post `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parsing query result: %w", err)
	}
	return envelope.Result, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
