package source

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/harvestgoat/internal/fetcher"
	"github.com/IshaanNene/harvestgoat/internal/selector"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// fetchInto downloads the detail page of a mapping entry and stores it at
// the Replace path of a copy of the entry.
func (b *base) fetchInto(ctx context.Context, item *selector.Item) (*selector.Item, error) {
	if b.desc.Detail == nil {
		return item, nil
	}
	link, ok := b.detailURL(ctx, item)
	if !ok {
		return nil, nil
	}
	resp, err := fetcher.GetText(ctx, b.fetcher, link, b.detailOptions())
	if err != nil {
		return nil, err
	}
	out := item.Clone()
	if err := out.Set(b.desc.Detail.Replace, resp.Text()); err != nil {
		return nil, &types.ParseError{Source: b.desc.Name, Field: b.desc.Detail.Replace, Err: err}
	}
	return out, nil
}

// jsonAdapter lists entries from a JSON API response.
type jsonAdapter struct {
	base
}

func (a *jsonAdapter) ListIndex(ctx context.Context) ([]*selector.Item, error) {
	var root any
	if err := fetcher.GetJSON(ctx, a.fetcher, a.desc.URL, a.options(), &root); err != nil {
		return nil, err
	}

	list := root
	if a.desc.Items != "" {
		obj, ok := root.(map[string]any)
		if !ok {
			return nil, &types.ParseError{Source: a.desc.Name, Field: "items", Err: fmt.Errorf("%w: index is not an object", types.ErrWrongItemShape)}
		}
		list = selector.Resolve(selector.Mapping(obj, a.desc.URL), selector.Path(a.desc.Items))
	}
	entries, ok := list.([]any)
	if !ok {
		return nil, &types.ParseError{Source: a.desc.Name, Field: "items", Err: fmt.Errorf("%w: no list at %q", types.ErrWrongItemShape, a.desc.Items)}
	}

	items := make([]*selector.Item, 0, len(entries))
	for i, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			a.logger.Debug("skipping non-object entry", "index", i)
			continue
		}
		items = append(items, selector.Mapping(obj, a.desc.URL))
	}
	a.logger.Debug("index listed", "url", a.desc.URL, "items", len(items))
	return a.keep(items), nil
}

func (a *jsonAdapter) FetchDetail(ctx context.Context, item *selector.Item) (*selector.Item, error) {
	return a.fetchInto(ctx, item)
}

// rssAdapter lists entries from an RSS or Atom feed. Each entry becomes a
// mapping with the keys id, link, title, content, summary, published,
// author and categories.
type rssAdapter struct {
	base
}

func (a *rssAdapter) ListIndex(ctx context.Context) ([]*selector.Item, error) {
	resp, err := fetcher.GetText(ctx, a.fetcher, a.desc.URL, a.options())
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().ParseString(resp.Text())
	if err != nil {
		return nil, &types.ParseError{Source: a.desc.Name, Field: "feed", Err: err}
	}

	items := make([]*selector.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		items = append(items, selector.Mapping(entryMap(entry), resp.FinalURL))
	}
	a.logger.Debug("feed listed", "url", a.desc.URL, "title", feed.Title, "items", len(items))
	return a.keep(items), nil
}

func (a *rssAdapter) FetchDetail(ctx context.Context, item *selector.Item) (*selector.Item, error) {
	return a.fetchInto(ctx, item)
}

func entryMap(e *gofeed.Item) map[string]any {
	m := make(map[string]any)
	put := func(key, value string) {
		if value != "" {
			m[key] = value
		}
	}

	id := e.GUID
	if id == "" {
		id = e.Link
	}
	put("id", id)
	put("link", e.Link)
	put("title", e.Title)
	put("summary", e.Description)
	content := e.Content
	if content == "" {
		content = e.Description
	}
	put("content", content)

	switch {
	case e.PublishedParsed != nil:
		m["published"] = *e.PublishedParsed
	case e.UpdatedParsed != nil:
		m["published"] = *e.UpdatedParsed
	default:
		put("published", e.Published)
	}

	if e.Author != nil {
		put("author", e.Author.Name)
	} else if len(e.Authors) > 0 && e.Authors[0] != nil {
		put("author", e.Authors[0].Name)
	}
	if len(e.Categories) > 0 {
		cats := make([]any, len(e.Categories))
		for i, c := range e.Categories {
			cats[i] = c
		}
		m["categories"] = cats
	}
	return m
}

func applyFeedDefaults(d *Descriptor) {
	if d.Fields.ID.IsZero() {
		d.Fields.ID = selector.Path("id")
	}
	if d.Fields.Title.IsZero() {
		d.Fields.Title = selector.Path("title")
	}
	if d.Fields.Content.IsZero() {
		d.Fields.Content = selector.Path("content")
	}
	if d.Fields.Date.IsZero() {
		d.Fields.Date = selector.Path("published")
	}
	if d.Fields.URL.IsZero() {
		d.Fields.URL = selector.Path("link")
	}
	if d.Fields.Author.IsZero() {
		d.Fields.Author = selector.Path("author")
	}
}
