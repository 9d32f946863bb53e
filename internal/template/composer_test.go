package template

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converze/newsletter/internal/content"
)

func testPost() *content.Post {
	return &content.Post{
		ID:          "post-1",
		Title:       "Scaling Postgres",
		Excerpt:     "What we learned at 10k writes/sec.",
		Slug:        "scaling-postgres",
		PublishedAt: time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC),
		CoverImage:  "https://cdn.example.com/cover.jpg",
		Authors:     []content.Author{{Name: "Dana"}, {Name: "Lee"}},
	}
}

func TestComposeBlogPost(t *testing.T) {
	c := NewComposer("https://converze.com")

	email, err := c.ComposeBlogPost(testPost())
	require.NoError(t, err)

	assert.Equal(t, "New Blog Post: Scaling Postgres", email.Subject)
	assert.Contains(t, email.HTML, "Scaling Postgres")
	assert.Contains(t, email.HTML, "What we learned at 10k writes/sec.")
	assert.Contains(t, email.HTML, "https://converze.com/blog/scaling-postgres")
	assert.Contains(t, email.HTML, "https://cdn.example.com/cover.jpg")
	assert.Contains(t, email.HTML, "Dana, Lee")
	assert.Contains(t, email.HTML, "June 1, 2025")
}

func TestComposeBlogPostDefaults(t *testing.T) {
	c := NewComposer("https://converze.com/")

	post := testPost()
	post.Authors = nil
	post.CoverImage = ""

	email, err := c.ComposeBlogPost(post)
	require.NoError(t, err)

	assert.Contains(t, email.HTML, DefaultAuthor)
	assert.NotContains(t, email.HTML, "<img", "no cover block without a cover image")
	assert.NotContains(t, email.HTML, "converze.com//blog", "trailing site URL slash is trimmed")
}

func TestComposeBlogPostEscapesSlug(t *testing.T) {
	c := NewComposer("https://converze.com")

	post := testPost()
	post.Slug = "c++-tips"

	email, err := c.ComposeBlogPost(post)
	require.NoError(t, err)

	assert.Contains(t, email.HTML, "https://converze.com/blog/c%2B%2B-tips")
	assert.NotContains(t, email.HTML, "/blog/c++-tips")
}

func TestComposeBlogPostKeepsRecipientPlaceholder(t *testing.T) {
	c := NewComposer("https://converze.com")

	email, err := c.ComposeBlogPost(testPost())
	require.NoError(t, err)

	assert.Contains(t, email.HTML, "https://converze.com/unsubscribe?email="+RecipientPlaceholder)
}

func TestComposeCustom(t *testing.T) {
	c := NewComposer("https://converze.com")

	email, err := c.ComposeCustom("Product Update", "We shipped v2.\n\nEnjoy!", "See what's new", "https://converze.com/changelog")
	require.NoError(t, err)

	assert.Equal(t, "Product Update", email.Subject)
	assert.Contains(t, email.HTML, "We shipped v2.")
	assert.Contains(t, email.HTML, "See what's new")
	assert.Contains(t, email.HTML, "https://converze.com/changelog")
}

func TestComposeCustomOmitsPartialCTA(t *testing.T) {
	c := NewComposer("https://converze.com")

	email, err := c.ComposeCustom("Update", "Body", "Click here", "")
	require.NoError(t, err)

	assert.NotContains(t, email.HTML, "Click here")
}

func TestRenderForEscapesRecipient(t *testing.T) {
	c := NewComposer("https://converze.com")

	email, err := c.ComposeCustom("Update", "Body", "", "")
	require.NoError(t, err)

	html := email.RenderFor("jo+news@example.com")
	assert.NotContains(t, html, RecipientPlaceholder)
	assert.Contains(t, html, "unsubscribe?email=jo%2Bnews%40example.com")
}

func TestRenderForEveryRecipientDiffers(t *testing.T) {
	c := NewComposer("https://converze.com")

	email, err := c.ComposeBlogPost(testPost())
	require.NoError(t, err)

	a := email.RenderFor("a@example.com")
	b := email.RenderFor("b@example.com")
	assert.NotEqual(t, a, b)
	assert.False(t, strings.Contains(a, "b%40example.com"))
}
