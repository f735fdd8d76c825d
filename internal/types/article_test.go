package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithExtractedLeavesOriginalUntouched(t *testing.T) {
	date := time.Date(2025, 6, 20, 9, 30, 0, 0, time.UTC)
	url := "https://example.com/a"
	a := &Article{ID: "1", Title: "T", Content: "<p>x</p>", ContentType: ContentHTML, Category: CategoryNews, Date: &date, URL: &url}

	b := a.WithExtracted("x")

	assert.Nil(t, a.Extracted)
	require.NotNil(t, b.Extracted)
	assert.Equal(t, "x", *b.Extracted)

	*b.URL = "https://example.com/b"
	assert.Equal(t, "https://example.com/a", a.Link())
}

func TestArticleValid(t *testing.T) {
	assert.True(t, (&Article{ID: "1", Title: "t", Content: "c"}).Valid())
	assert.False(t, (&Article{ID: "1", Title: "t"}).Valid())
	assert.False(t, (&Article{Title: "t", Content: "c"}).Valid())
	var nilArticle *Article
	assert.False(t, nilArticle.Valid())
}

func TestArticleJSONKeepsNullOptionals(t *testing.T) {
	a := &Article{ID: "1", Title: "t", Content: "c", ContentType: ContentPlainText, Category: CategoryBlog}
	data, err := json.Marshal(a)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "author")
	assert.Nil(t, m["author"])
	assert.Nil(t, m["date"])
	assert.NotContains(t, m, "extracted")
	assert.Equal(t, "plain_text", m["content_type"])
}

func TestArticleKey(t *testing.T) {
	url := "https://example.com/x"
	assert.Equal(t, "id-1", (&Article{ID: "id-1"}).Key())
	assert.Equal(t, url, (&Article{ID: "id-1", URL: &url}).Key())
}

func TestParseCategoryAndContentType(t *testing.T) {
	c, err := ParseCategory("Social_Media")
	require.NoError(t, err)
	assert.Equal(t, CategorySocialMedia, c)

	_, err = ParseCategory("gossip")
	assert.Error(t, err)

	ct, err := ParseContentType("text/html")
	require.NoError(t, err)
	assert.Equal(t, ContentHTML, ct)

	ct, err = ParseContentType("")
	require.NoError(t, err)
	assert.Equal(t, ContentPlainText, ct)
}

func TestRunErrorNamesSources(t *testing.T) {
	inner := errors.New("boom")
	err := &RunError{Sources: []string{"HK01", "MingPao"}, Errs: []error{inner}}
	assert.Equal(t, "failed to harvest the following sources: HK01, MingPao", err.Error())
	assert.ErrorIs(t, err, inner)
}
