// Package source turns heterogeneous news sources into article records.
//
// Every source runs through the same lifecycle: list the index, optionally
// fetch each entry's detail page, then parse the entry into a types.Article.
// A source is described by data (a Descriptor) and built into an Adapter for
// its kind.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/fetcher"
	"github.com/IshaanNene/harvestgoat/internal/normalize"
	"github.com/IshaanNene/harvestgoat/internal/selector"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Kind identifies the source family.
type Kind string

const (
	KindHTML     Kind = "html"
	KindJSON     Kind = "json"
	KindRSS      Kind = "rss"
	KindTelegram Kind = "telegram"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindHTML, KindJSON, KindRSS, KindTelegram:
		return k, nil
	case "":
		return KindHTML, nil
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}

// Adapter is the capability every source family implements.
type Adapter interface {
	// Name returns the source name used in events and reports.
	Name() string

	// Descriptor returns the configuration the adapter was built from.
	Descriptor() *Descriptor

	// ListIndex fetches the index resource and returns its entries.
	ListIndex(ctx context.Context) ([]*selector.Item, error)

	// FetchDetail retrieves the full article for an entry. It returns
	// (nil, nil) when the entry has no usable detail link.
	FetchDetail(ctx context.Context, item *selector.Item) (*selector.Item, error)

	// Parse builds an article. It returns (nil, nil) when a mandatory field
	// is missing.
	Parse(item *selector.Item) (*types.Article, error)
}

// Fields holds one selector per article field.
type Fields struct {
	ID      selector.Selector
	Title   selector.Selector
	Content selector.Selector
	Author  selector.Selector
	Date    selector.Selector
	URL     selector.Selector
}

// Detail describes how to reach an entry's full article.
type Detail struct {
	// Link selects the detail URL from the index entry.
	Link selector.Selector

	// Replace is the mapping path that receives the fetched page. Markup
	// sources ignore it and replace the whole entry with the detail page.
	Replace string

	// Unshorten resolves the link with a HEAD request before fetching it.
	Unshorten bool
}

// Descriptor is the complete, declarative configuration of one source.
type Descriptor struct {
	Name        string
	Kind        Kind
	URL         string
	Category    types.Category
	ContentType types.ContentType
	Fetcher     string
	Headers     map[string]string
	Disabled    bool

	// Items locates the entries: a CSS selector for markup sources, a dotted
	// path for JSON. Feeds ignore it.
	Items string

	Fields Fields
	Detail *Detail

	// BaseURL resolves relative links. Defaults to the index URL.
	BaseURL string

	// Dates parses date field values when ParseDate is not set.
	Dates *normalize.DateParser

	// Filter drops entries for which it returns false.
	Filter func(*selector.Item) bool

	// ParseDate overrides date normalization.
	ParseDate func(v any) *time.Time

	// ParseTitle overrides title normalization.
	ParseTitle func(v any) (string, bool)

	// RewriteURL overrides how detail and article links are made absolute.
	RewriteURL func(link string) string
}

// Validate checks the descriptor for obvious misconfiguration.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if _, err := types.NewRequest(d.URL); err != nil {
		return fmt.Errorf("source %q: %w", d.Name, err)
	}
	if (d.Kind == KindHTML || d.Kind == KindTelegram) && d.Items == "" {
		return fmt.Errorf("source %q: items selector is required for %s sources", d.Name, d.Kind)
	}
	if d.Detail != nil && d.Detail.Link.IsZero() {
		return fmt.Errorf("source %q: detail link selector is required", d.Name)
	}
	if d.Detail != nil && (d.Kind == KindJSON || d.Kind == KindRSS) && d.Detail.Replace == "" {
		return fmt.Errorf("source %q: detail replace path is required for %s sources", d.Name, d.Kind)
	}
	return nil
}

// New builds the adapter for d.Kind.
func New(d *Descriptor, f fetcher.Fetcher, logger *slog.Logger) (Adapter, error) {
	switch d.Kind {
	case KindTelegram:
		applyTelegramDefaults(d)
	case KindRSS:
		applyFeedDefaults(d)
	}
	if d.ContentType == "" {
		d.ContentType = types.ContentHTML
	}
	if d.Category == "" {
		d.Category = types.CategoryNews
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	b := base{
		desc:    d,
		fetcher: f,
		logger:  logger.With("component", "source", "source", d.Name),
	}
	switch d.Kind {
	case KindHTML, KindTelegram:
		return &htmlAdapter{base: b}, nil
	case KindJSON:
		return &jsonAdapter{base: b}, nil
	case KindRSS:
		return &rssAdapter{base: b}, nil
	}
	return nil, fmt.Errorf("source %q: unknown kind %q", d.Name, d.Kind)
}
