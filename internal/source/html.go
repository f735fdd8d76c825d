package source

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/harvestgoat/internal/fetcher"
	"github.com/IshaanNene/harvestgoat/internal/selector"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// htmlAdapter lists entries from an HTML index page. When a detail link is
// configured the entry is replaced by the whole detail document, so field
// selectors apply to the article page.
type htmlAdapter struct {
	base
}

func (a *htmlAdapter) ListIndex(ctx context.Context) ([]*selector.Item, error) {
	resp, err := fetcher.GetText(ctx, a.fetcher, a.desc.URL, a.options())
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{Source: a.desc.Name, Field: "index", Err: err}
	}

	var items []*selector.Item
	doc.Find(a.desc.Items).Each(func(_ int, s *goquery.Selection) {
		items = append(items, selector.Markup(s, resp.FinalURL))
	})
	a.logger.Debug("index listed", "url", a.desc.URL, "items", len(items))
	return a.keep(items), nil
}

func (a *htmlAdapter) FetchDetail(ctx context.Context, item *selector.Item) (*selector.Item, error) {
	if a.desc.Detail == nil {
		return item, nil
	}
	link, ok := a.detailURL(ctx, item)
	if !ok {
		return nil, nil
	}
	resp, err := fetcher.GetText(ctx, a.fetcher, link, a.detailOptions())
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{Source: a.desc.Name, Field: "detail", Err: err}
	}
	return selector.Markup(doc.Selection, resp.FinalURL), nil
}
