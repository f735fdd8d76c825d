package source

import (
	"fmt"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/normalize"
	"github.com/IshaanNene/harvestgoat/internal/selector"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

func mustDates(loc *time.Location, cleanup string, layouts ...string) *normalize.DateParser {
	p, err := normalize.NewDateParser(layouts, cleanup, loc)
	if err != nil {
		panic(err)
	}
	return p
}

// Builtin returns fresh descriptors for the sources that ship with the
// binary, one per adapter family. Catalog entries with the same name
// replace them.
func Builtin(loc *time.Location) []*Descriptor {
	c881903URL := selector.Func(func(it *selector.Item) any {
		code, ok1 := selector.ResolveString(it, selector.Path("article_column.uri_code"))
		id, ok2 := selector.ResolveString(it, selector.Path("item_id"))
		if !ok1 || !ok2 || code == "" || id == "" {
			return nil
		}
		return fmt.Sprintf("https://www.881903.com/news/%s/%s", code, id)
	})

	return []*Descriptor{
		{
			Name:        "HK01",
			Kind:        KindJSON,
			URL:         "https://web-data.api.hk01.com/v2/feed/category/0?bucketId=00000",
			Category:    types.CategoryNews,
			ContentType: types.ContentHTML,
			Items:       "items",
			Fields: Fields{
				ID:      selector.Path("data.articleId"),
				Title:   selector.Path("data.title"),
				Content: selector.Path("data.description"),
				Author:  selector.Path("data.authors.0.publishName"),
				Date:    selector.Path("data.publishTime"),
				URL:     selector.Path("data.canonicalUrl"),
			},
			Detail: &Detail{Link: selector.Path("data.canonicalUrl"), Replace: "data.description"},
			Dates:  mustDates(loc, ""),
			Filter: func(it *selector.Item) bool {
				kind, _ := selector.ResolveString(it, selector.Path("data.type"))
				return kind == "article"
			},
		},
		{
			Name:        "881903",
			Kind:        KindJSON,
			URL:         "https://www.881903.com/api/news/section/morelist?limit=11",
			Category:    types.CategoryNews,
			ContentType: types.ContentHTML,
			Items:       "response.content",
			Fields: Fields{
				ID:      selector.Path("item_id"),
				Title:   selector.Path("title"),
				Content: selector.Path("content"),
				Date:    selector.Path("display_date"),
				URL:     c881903URL,
			},
			Detail: &Detail{Link: c881903URL, Replace: "content"},
			Dates:  mustDates(loc, "", "2006-01-02"),
		},
		{
			Name:        "MingPao",
			Kind:        KindHTML,
			URL:         "https://news.mingpao.com/ins/%E5%8D%B3%E6%99%82%E6%96%B0%E8%81%9E/main",
			BaseURL:     "https://news.mingpao.com/",
			Category:    types.CategoryNews,
			ContentType: types.ContentHTML,
			Items:       "#tabcontentnewslist2lat .contentwrapper",
			Fields: Fields{
				ID:     selector.Path("meta[property='og:url'][content]"),
				Title:  selector.Path("meta[property='og:title'][content]"),
				Author: selector.Path("meta[name='article:author'][content]"),
				Date:   selector.Path(".date"),
				URL:    selector.Path("meta[property='og:url'][content]"),
			},
			Detail: &Detail{Link: selector.Path("figure a[href]")},
			// 2025年6月20日星期五
			Dates: mustDates(loc, `星期.*$`, "2006年1月2日"),
		},
		{
			Name:        "RTHKTelegram",
			Kind:        KindTelegram,
			URL:         "https://t.me/s/rthk_new_c",
			Category:    types.CategoryNews,
			ContentType: types.ContentHTML,
			Dates:       mustDates(loc, "", normalize.DefaultDateLayout),
		},
		{
			Name:        "RTHK",
			Kind:        KindRSS,
			URL:         "https://rthk9.rthk.hk/rthk/news/rss/c_expressnews_clocal.xml",
			Category:    types.CategoryNews,
			ContentType: types.ContentHTML,
			Detail:      &Detail{Link: selector.Path("link"), Replace: "content"},
			Dates:       mustDates(loc, ""),
		},
		{
			Name:        "GovHK",
			Kind:        KindRSS,
			URL:         "https://www.news.gov.hk/tc/common/html/topstories.rss.xml",
			Category:    types.CategoryNews,
			ContentType: types.ContentHTML,
			Detail:      &Detail{Link: selector.Path("link"), Replace: "content"},
			Dates:       mustDates(loc, ""),
		},
	}
}
