// Package selector resolves field selectors against raw index items.
//
// An item is either a parsed markup subtree (HTML and Telegram sources) or a
// nested mapping (JSON APIs and feed entries). Resolution never fails:
// anything that cannot be found resolves to nil.
package selector

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// Kind tags the variant held by a Selector.
type Kind int

const (
	KindNone Kind = iota
	KindPath
	KindXPath
	KindFunc
)

// Selector is a tagged variant: a path expression, an XPath expression, or a
// function of the item.
type Selector struct {
	kind Kind
	expr string
	fn   func(*Item) any
}

// Path selects by dotted key path (mappings) or CSS selector (markup).
func Path(expr string) Selector {
	if expr == "" {
		return Selector{}
	}
	return Selector{kind: KindPath, expr: expr}
}

// XPath selects the text of the first node matching expr on markup items.
func XPath(expr string) Selector {
	if expr == "" {
		return Selector{}
	}
	return Selector{kind: KindXPath, expr: expr}
}

// Func delegates extraction to fn.
func Func(fn func(*Item) any) Selector {
	if fn == nil {
		return Selector{}
	}
	return Selector{kind: KindFunc, fn: fn}
}

// Kind returns the variant tag.
func (s Selector) Kind() Kind { return s.kind }

// IsZero reports whether no selector was configured.
func (s Selector) IsZero() bool { return s.kind == KindNone }

func (s Selector) String() string {
	switch s.kind {
	case KindPath:
		return s.expr
	case KindXPath:
		return "xpath:" + s.expr
	case KindFunc:
		return "func"
	}
	return ""
}

// Item is one raw index entry.
type Item struct {
	// Sel is set for markup items.
	Sel *goquery.Selection

	// Data is set for mapping items.
	Data map[string]any

	// PageURL is the URL the item was read from, if known.
	PageURL string
}

// Markup wraps a goquery selection.
func Markup(sel *goquery.Selection, pageURL string) *Item {
	return &Item{Sel: sel, PageURL: pageURL}
}

// Mapping wraps a decoded JSON object or feed entry.
func Mapping(data map[string]any, pageURL string) *Item {
	return &Item{Data: data, PageURL: pageURL}
}

// IsMarkup reports whether the item is a markup subtree.
func (it *Item) IsMarkup() bool { return it != nil && it.Sel != nil }

// HTML renders a markup item back to markup. Mapping items render as "".
func (it *Item) HTML() string {
	if !it.IsMarkup() {
		return ""
	}
	out, err := goquery.OuterHtml(it.Sel)
	if err != nil {
		return ""
	}
	return out
}

// Clone returns a copy whose nested maps can be modified without touching
// the original. Markup items share the selection.
func (it *Item) Clone() *Item {
	c := *it
	if it.Data != nil {
		c.Data = cloneMap(it.Data)
	}
	return &c
}

// Set writes value at a dotted path of a mapping item. Numeric segments
// index lists, as in Resolve; missing map keys get intermediate maps.
func (it *Item) Set(path string, value any) error {
	if it.Data == nil {
		return fmt.Errorf("set %q: not a mapping item", path)
	}
	keys := strings.Split(path, ".")
	var cur any = it.Data
	for i, key := range keys {
		last := i == len(keys)-1
		switch node := cur.(type) {
		case map[string]any:
			if last {
				node[key] = value
				return nil
			}
			next, ok := node[key]
			if !isContainer(next) {
				if ok && next != nil {
					return fmt.Errorf("set %q: %q is not a map or list", path, key)
				}
				next = make(map[string]any)
				node[key] = next
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("set %q: %q is not a list index", path, key)
			}
			if idx < 0 || idx >= len(node) {
				return fmt.Errorf("set %q: index %d out of range", path, idx)
			}
			if last {
				node[idx] = value
				return nil
			}
			if !isContainer(node[idx]) {
				return fmt.Errorf("set %q: element %d is not a map or list", path, idx)
			}
			cur = node[idx]
		}
	}
	return nil
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return cloneMap(vv)
	case []any:
		cp := make([]any, len(vv))
		for i, e := range vv {
			cp[i] = cloneValue(e)
		}
		return cp
	}
	return v
}

// attrAccessor matches a trailing attribute accessor such as `a[href]`.
// Brackets containing "=" are attribute filters, not accessors.
var attrAccessor = regexp.MustCompile(`^(.+)\[([^=\[\]]+)\]$`)

// Resolve applies sel to item and returns the selected value or nil.
func Resolve(item *Item, sel Selector) (v any) {
	if item == nil {
		return nil
	}
	switch sel.kind {
	case KindFunc:
		defer func() {
			if recover() != nil {
				v = nil
			}
		}()
		return sel.fn(item)
	case KindPath:
		if item.IsMarkup() {
			return resolveCSS(item.Sel, sel.expr)
		}
		return resolvePath(item.Data, sel.expr)
	case KindXPath:
		if item.IsMarkup() {
			return resolveXPath(item.Sel, sel.expr)
		}
	}
	return nil
}

// ResolveString resolves sel and converts a scalar result to a string.
func ResolveString(item *Item, sel Selector) (string, bool) {
	return String(Resolve(item, sel))
}

// String converts scalar values to strings. Maps and slices are not scalars.
func String(v any) (string, bool) {
	switch vv := v.(type) {
	case nil:
		return "", false
	case string:
		return vv, true
	case json.Number:
		return vv.String(), true
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64), true
	case int:
		return strconv.Itoa(vv), true
	case int64:
		return strconv.FormatInt(vv, 10), true
	case bool:
		return strconv.FormatBool(vv), true
	case fmt.Stringer:
		return vv.String(), true
	case map[string]any, []any:
		return "", false
	}
	return fmt.Sprint(v), true
}

func resolvePath(data any, path string) any {
	var cur any = data
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil
			}
			cur = v
		default:
			return nil
		}
	}
	return cur
}

func resolveCSS(sel *goquery.Selection, expr string) (v any) {
	// cascadia panics on a handful of malformed selectors.
	defer func() {
		if recover() != nil {
			v = nil
		}
	}()

	if m := attrAccessor.FindStringSubmatch(expr); m != nil {
		elemExpr, attr := strings.TrimSpace(m[1]), m[2]
		target := sel.First()
		if elemExpr != "&" {
			target = sel.Find(elemExpr).First()
		}
		if target.Length() == 0 {
			return nil
		}
		val, ok := target.Attr(attr)
		if !ok {
			return nil
		}
		return val
	}

	if expr == "&" {
		return sel.First().Text()
	}
	found := sel.Find(expr).First()
	if found.Length() == 0 {
		return nil
	}
	return found.Text()
}

func resolveXPath(sel *goquery.Selection, expr string) any {
	root := sel.Get(0)
	if root == nil {
		return nil
	}
	node, err := htmlquery.Query(root, expr)
	if err != nil || node == nil {
		return nil
	}
	return htmlquery.InnerText(node)
}
