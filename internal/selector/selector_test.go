package selector

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><head>
<meta property="og:url" content="https://news.example.com/a/1">
<meta property="og:title" content="Headline">
</head><body>
<div class="msg" data-post="channel/42">
  <div class="text">First line<br>2025-06-20 10:00:00</div>
  <figure><a href="../article/1.htm">link</a></figure>
</div>
</body></html>`

func markupItem(t *testing.T, html, find string) *Item {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	if find == "" {
		return Markup(doc.Selection, "https://news.example.com/")
	}
	return Markup(doc.Find(find).First(), "https://news.example.com/")
}

func mappingItem(t *testing.T, raw string) *Item {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	require.NoError(t, dec.Decode(&m))
	return Mapping(m, "")
}

func TestResolveCSS(t *testing.T) {
	doc := markupItem(t, listingHTML, "")
	msg := markupItem(t, listingHTML, ".msg")

	tests := []struct {
		name string
		item *Item
		sel  Selector
		want any
	}{
		{"attribute accessor with filter", doc, Path("meta[property='og:url'][content]"), "https://news.example.com/a/1"},
		{"nested attribute", msg, Path("figure a[href]"), "../article/1.htm"},
		{"top-level attribute", msg, Path("&[data-post]"), "channel/42"},
		{"inner text", msg, Path(".text"), "First line2025-06-20 10:00:00"},
		{"missing element", msg, Path(".author"), nil},
		{"missing attribute", msg, Path("figure a[title]"), nil},
		{"missing top-level attribute", msg, Path("&[data-view]"), nil},
		{"xpath text", msg, XPath(`.//figure/a`), "link"},
		{"xpath miss", msg, XPath(`.//aside`), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.item, tt.sel))
		})
	}
}

func TestResolvePath(t *testing.T) {
	item := mappingItem(t, `{
		"data": {
			"articleId": 100,
			"title": "Hello",
			"authors": [{"publishName": "Reporter"}],
			"tags": []
		}
	}`)

	tests := []struct {
		path string
		want any
	}{
		{"data.title", "Hello"},
		{"data.articleId", json.Number("100")},
		{"data.authors.0.publishName", "Reporter"},
		{"data.authors.1.publishName", nil},
		{"data.authors.x", nil},
		{"data.tags.0", nil},
		{"data.missing", nil},
		{"data.title.deeper", nil},
		{"nothing.at.all", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(item, Path(tt.path)))
		})
	}
}

func TestResolveNeverPanics(t *testing.T) {
	msg := markupItem(t, listingHTML, ".msg")
	mapping := mappingItem(t, `{"a": 1}`)

	assert.NotPanics(t, func() {
		assert.Nil(t, Resolve(msg, Path("div[[[")))
		assert.Nil(t, Resolve(msg, XPath("//[")))
		assert.Nil(t, Resolve(mapping, XPath("//a")))
		assert.Nil(t, Resolve(nil, Path("a")))
		assert.Nil(t, Resolve(mapping, Selector{}))
		assert.Nil(t, Resolve(mapping, Func(func(it *Item) any {
			return it.Data["missing"].(map[string]any)["boom"]
		})))
	})
}

func TestResolveFunc(t *testing.T) {
	item := mappingItem(t, `{"item_id": 7, "article_column": {"uri_code": "local"}}`)
	build := Func(func(it *Item) any {
		code, _ := String(Resolve(it, Path("article_column.uri_code")))
		id, _ := String(Resolve(it, Path("item_id")))
		return "https://radio.example.com/news/" + code + "/" + id
	})
	assert.Equal(t, "https://radio.example.com/news/local/7", Resolve(item, build))
}

func TestItemSetAndClone(t *testing.T) {
	item := mappingItem(t, `{"data": {"description": "summary"}}`)
	clone := item.Clone()
	require.NoError(t, clone.Set("data.description", "<html>full</html>"))

	assert.Equal(t, "<html>full</html>", Resolve(clone, Path("data.description")))
	assert.Equal(t, "summary", Resolve(item, Path("data.description")))

	markup := markupItem(t, listingHTML, ".msg")
	assert.Error(t, markup.Set("content", "x"))
}

func TestItemSetThroughList(t *testing.T) {
	item := mappingItem(t, `{"items": [{"body": "summary", "id": "a1"}, {"id": "a2"}]}`)
	clone := item.Clone()
	require.NoError(t, clone.Set("items.0.body", "<html>full</html>"))

	assert.Equal(t, "<html>full</html>", Resolve(clone, Path("items.0.body")))
	assert.Equal(t, "a1", Resolve(clone, Path("items.0.id")))
	assert.Equal(t, "a2", Resolve(clone, Path("items.1.id")))
	// The original list is untouched.
	assert.Equal(t, "summary", Resolve(item, Path("items.0.body")))

	require.NoError(t, clone.Set("items.1", "replaced"))
	assert.Equal(t, "replaced", Resolve(clone, Path("items.1")))

	assert.Error(t, clone.Set("items.5.body", "x"))
	assert.Error(t, clone.Set("items.first.body", "x"))
	assert.Error(t, clone.Set("items.0.id.deep", "x"))
	assert.Equal(t, "a1", Resolve(clone, Path("items.0.id")))
}

func TestString(t *testing.T) {
	s, ok := String(json.Number("12"))
	assert.True(t, ok)
	assert.Equal(t, "12", s)

	s, ok = String(float64(1.5))
	assert.True(t, ok)
	assert.Equal(t, "1.5", s)

	_, ok = String(nil)
	assert.False(t, ok)

	_, ok = String(map[string]any{"a": 1})
	assert.False(t, ok)
}
