package types

import (
	"fmt"
	"strings"
	"time"
)

// ContentType describes how an article's Content should be interpreted.
type ContentType string

const (
	ContentHTML      ContentType = "html"
	ContentPlainText ContentType = "plain_text"
)

// ParseContentType accepts the canonical names plus the MIME spellings
// used by some source catalogs.
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html", "text/html":
		return ContentHTML, nil
	case "plain_text", "text", "text/plain", "":
		return ContentPlainText, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// Category classifies the kind of publication an article came from.
type Category string

const (
	CategoryNews         Category = "news"
	CategoryColumns      Category = "columns"
	CategoryBlog         Category = "blog"
	CategoryEncyclopedia Category = "encyclopedia"
	CategoryForum        Category = "forum"
	CategorySocialMedia  Category = "social_media"
	CategoryNewMedia     Category = "new_media"
)

var categories = map[Category]bool{
	CategoryNews:         true,
	CategoryColumns:      true,
	CategoryBlog:         true,
	CategoryEncyclopedia: true,
	CategoryForum:        true,
	CategorySocialMedia:  true,
	CategoryNewMedia:     true,
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !categories[c] {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Article is the normalized record produced by a source adapter.
//
// Articles are treated as values once built: stages that enrich a record
// return a modified copy and leave the original untouched.
type Article struct {
	ID          string      `json:"id"           bson:"id"`
	Title       string      `json:"title"        bson:"title"`
	Content     string      `json:"content"      bson:"content"`
	ContentType ContentType `json:"content_type" bson:"content_type"`
	Category    Category    `json:"category"     bson:"category"`
	Author      *string     `json:"author"       bson:"author"`
	Date        *time.Time  `json:"date"         bson:"date"`
	URL         *string     `json:"url"          bson:"url"`

	// Extracted holds the text isolated by the content-diff stage.
	Extracted *string `json:"extracted,omitempty" bson:"extracted,omitempty"`
}

// Valid reports whether the mandatory fields are present.
func (a *Article) Valid() bool {
	return a != nil && a.ID != "" && a.Title != "" && a.Content != ""
}

// Clone returns a deep copy.
func (a *Article) Clone() *Article {
	c := *a
	if a.Author != nil {
		s := *a.Author
		c.Author = &s
	}
	if a.Date != nil {
		t := *a.Date
		c.Date = &t
	}
	if a.URL != nil {
		s := *a.URL
		c.URL = &s
	}
	if a.Extracted != nil {
		s := *a.Extracted
		c.Extracted = &s
	}
	return &c
}

// WithExtracted returns a copy carrying the given extracted text.
func (a *Article) WithExtracted(text string) *Article {
	c := a.Clone()
	c.Extracted = &text
	return c
}

// Link returns the article URL or "".
func (a *Article) Link() string {
	if a.URL == nil {
		return ""
	}
	return *a.URL
}

// ExtractedText returns the extracted text or "".
func (a *Article) ExtractedText() string {
	if a.Extracted == nil {
		return ""
	}
	return *a.Extracted
}

// Key identifies an article across runs: its URL when known, otherwise its ID.
func (a *Article) Key() string {
	if a.URL != nil && *a.URL != "" {
		return *a.URL
	}
	return a.ID
}

func (a *Article) String() string {
	author := "unknown"
	if a.Author != nil {
		author = *a.Author
	}
	date := "undated"
	if a.Date != nil {
		date = a.Date.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s by %s on %s", a.Title, author, date)
}
