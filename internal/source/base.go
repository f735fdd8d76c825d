package source

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/fetcher"
	"github.com/IshaanNene/harvestgoat/internal/normalize"
	"github.com/IshaanNene/harvestgoat/internal/selector"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// base carries what every adapter shares: the descriptor, the fetcher and
// the field-resolution logic.
type base struct {
	desc    *Descriptor
	fetcher fetcher.Fetcher
	logger  *slog.Logger
}

func (b *base) Name() string { return b.desc.Name }

func (b *base) Descriptor() *Descriptor { return b.desc }

func (b *base) options() fetcher.Options {
	return fetcher.Options{
		Headers:     b.desc.Headers,
		Source:      b.desc.Name,
		FetcherType: b.desc.Fetcher,
	}
}

// detailOptions adds the index page as Referer, which several publishers
// check before serving article pages.
func (b *base) detailOptions() fetcher.Options {
	opts := b.options()
	headers := make(map[string]string, len(b.desc.Headers)+1)
	headers["Referer"] = b.desc.URL
	for k, v := range b.desc.Headers {
		headers[k] = v
	}
	opts.Headers = headers
	return opts
}

func (b *base) keep(items []*selector.Item) []*selector.Item {
	if b.desc.Filter == nil {
		return items
	}
	kept := items[:0]
	for _, it := range items {
		if b.desc.Filter(it) {
			kept = append(kept, it)
		}
	}
	return kept
}

// detailLink resolves the detail URL of item, made absolute.
func (b *base) detailLink(item *selector.Item) (string, bool) {
	raw, ok := normalize.Text(selector.Resolve(item, b.desc.Detail.Link))
	if !ok || raw == "" {
		return "", false
	}
	link := b.absolute(raw)
	if _, err := types.NewRequest(link); err != nil {
		b.logger.Debug("unusable detail link", "link", raw, "error", err)
		return "", false
	}
	return link, true
}

// detailURL is detailLink followed, when the source asks for it, by
// short-link resolution. A failed resolution falls back to the link itself.
func (b *base) detailURL(ctx context.Context, item *selector.Item) (string, bool) {
	link, ok := b.detailLink(item)
	if !ok || !b.desc.Detail.Unshorten {
		return link, ok
	}
	final, err := fetcher.ResolveRedirect(ctx, b.fetcher, link, b.detailOptions())
	if err != nil || final == "" {
		b.logger.Warn("short link not resolved", "link", link, "error", err)
		return link, true
	}
	return final, true
}

func (b *base) absolute(link string) string {
	if b.desc.RewriteURL != nil {
		return b.desc.RewriteURL(link)
	}
	baseURL := b.desc.BaseURL
	if baseURL == "" {
		baseURL = b.desc.URL
	}
	return ResolveLink(baseURL, link)
}

// ResolveLink makes link absolute against baseURL. Links that cannot be
// parsed are returned unchanged.
func ResolveLink(baseURL, link string) string {
	link = strings.TrimSpace(link)
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	bu, err := url.Parse(baseURL)
	if err != nil {
		return link
	}
	return bu.ResolveReference(ref).String()
}

// Parse resolves every field of item into an article.
func (b *base) Parse(item *selector.Item) (*types.Article, error) {
	if item == nil {
		return nil, &types.ParseError{Source: b.desc.Name, Err: types.ErrWrongItemShape}
	}
	d := b.desc

	id, ok := normalize.Text(selector.Resolve(item, d.Fields.ID))
	if !ok || id == "" {
		return nil, nil
	}

	parseTitle := d.ParseTitle
	if parseTitle == nil {
		parseTitle = normalize.Title
	}
	title, ok := parseTitle(selector.Resolve(item, d.Fields.Title))
	if !ok || title == "" {
		return nil, nil
	}

	var content string
	if d.Fields.Content.IsZero() && item.IsMarkup() {
		content = strings.TrimSpace(item.HTML())
	} else if content, ok = normalize.Text(selector.Resolve(item, d.Fields.Content)); !ok {
		return nil, nil
	}
	if content == "" {
		return nil, nil
	}

	article := &types.Article{
		ID:          id,
		Title:       title,
		Content:     content,
		ContentType: d.ContentType,
		Category:    d.Category,
		Author:      normalize.Optional(selector.Resolve(item, d.Fields.Author)),
		Date:        b.parseDate(item),
	}
	if link := normalize.Optional(selector.Resolve(item, d.Fields.URL)); link != nil {
		abs := b.absolute(*link)
		article.URL = &abs
	}
	return article, nil
}

func (b *base) parseDate(item *selector.Item) *time.Time {
	if b.desc.Fields.Date.IsZero() {
		return nil
	}
	raw := selector.Resolve(item, b.desc.Fields.Date)
	if b.desc.ParseDate != nil {
		return b.desc.ParseDate(raw)
	}
	dates := b.desc.Dates
	if dates == nil {
		dates = &normalize.DateParser{}
	}
	return dates.Parse(raw)
}
