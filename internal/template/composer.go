// Package template composes the newsletter email bodies with the
// Liquid template language.
package template

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/osteele/liquid"

	"github.com/converze/newsletter/internal/content"
)

// RecipientPlaceholder is the literal token left in composed HTML where
// each recipient's address is substituted at send time. Composition is
// done once per campaign; personalization once per recipient.
const RecipientPlaceholder = "{{email}}"

// DefaultAuthor is the byline used when a post carries no authors.
const DefaultAuthor = "Converze Team"

// Email is one composed campaign body. HTML still contains the
// recipient placeholder until RenderFor is called.
type Email struct {
	Subject string
	HTML    string
}

// RenderFor produces the final per-recipient HTML. The address is
// URL-escaped because the placeholder sits inside the unsubscribe
// link's query string.
func (e *Email) RenderFor(recipient string) string {
	return strings.ReplaceAll(e.HTML, RecipientPlaceholder, url.QueryEscape(recipient))
}

// Composer renders the built-in campaign templates.
type Composer struct {
	engine  *liquid.Engine
	siteURL string
}

// NewComposer creates a composer with the custom filters registered.
func NewComposer(siteURL string) *Composer {
	c := &Composer{
		engine:  liquid.NewEngine(),
		siteURL: strings.TrimSuffix(siteURL, "/"),
	}
	c.registerFilters()
	return c
}

func (c *Composer) registerFilters() {
	c.engine.RegisterFilter("urlencode", func(s string) string {
		return url.QueryEscape(s)
	})
	c.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})
}

// ComposeBlogPost builds the announcement email for a published post.
// Title and excerpt pass through verbatim; the template itself escapes
// the slug and falls back to the default byline.
func (c *Composer) ComposeBlogPost(post *content.Post) (*Email, error) {
	names := make([]string, 0, len(post.Authors))
	for _, a := range post.Authors {
		names = append(names, a.Name)
	}

	html, err := c.render("blog-post", blogPostTemplate, map[string]interface{}{
		"title":          post.Title,
		"excerpt":        post.Excerpt,
		"slug":           post.Slug,
		"has_cover":      post.CoverImage != "",
		"cover_image":    post.CoverImage,
		"author_names":   strings.Join(names, ", "),
		"default_author": DefaultAuthor,
		"published_date": post.PublishedAt.Format("January 2, 2006"),
		"site_url":       c.siteURL,
		"email":          RecipientPlaceholder,
	})
	if err != nil {
		return nil, err
	}

	return &Email{
		Subject: "New Blog Post: " + post.Title,
		HTML:    html,
	}, nil
}

// ComposeCustom builds a free-form announcement. The call-to-action
// button appears only when both its text and URL are set.
func (c *Composer) ComposeCustom(subject, message, ctaText, ctaURL string) (*Email, error) {
	html, err := c.render("custom", customTemplate, map[string]interface{}{
		"message":  message,
		"has_cta":  ctaText != "" && ctaURL != "",
		"cta_text": ctaText,
		"cta_url":  ctaURL,
		"site_url": c.siteURL,
		"email":    RecipientPlaceholder,
	})
	if err != nil {
		return nil, err
	}

	return &Email{
		Subject: subject,
		HTML:    html,
	}, nil
}

func (c *Composer) render(name, templateStr string, bindings map[string]interface{}) (string, error) {
	out, err := c.engine.ParseAndRenderString(templateStr, bindings)
	if err != nil {
		return "", fmt.Errorf("rendering %s template: %w", name, err)
	}
	return strings.TrimSpace(out), nil
}

// ParsePublishedAt is a small helper for callers holding an RFC 3339
// timestamp string instead of a time.Time.
func ParsePublishedAt(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
