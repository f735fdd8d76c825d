// Package extract isolates the new text of a page by diffing it against a
// structurally similar page from the same source.
package extract

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// stripped elements never carry article text.
var stripped = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Meta:   true,
	atom.Nav:    true,
	atom.Link:   true,
	atom.Img:    true,
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Extract returns the text of the lines that target adds relative to
// reference, one entry per line, in target document order. Identical
// documents yield "".
func Extract(reference, target string) string {
	ref := Prettify(reference)
	tgt := Prettify(target)

	var added []string
	for _, op := range difflib.NewMatcher(ref, tgt).GetOpCodes() {
		if op.Tag != 'r' && op.Tag != 'i' {
			continue
		}
		for _, line := range tgt[op.J1:op.J2] {
			if text := lineText(line); text != "" {
				added = append(added, text)
			}
		}
	}
	// firstSeen leaves no adjacent repeats; the collapse is a safeguard only.
	return strings.Join(collapseAdjacent(firstSeen(added)), "\n")
}

// Prettify parses doc, drops script, style, meta, nav, link and img
// elements along with comments, and renders one tag or text run per line
// with one space of indentation per nesting level.
func Prettify(doc string) []string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil
	}
	clean(root)

	var lines []string
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		indent := strings.Repeat(" ", depth)
		switch n.Type {
		case html.DocumentNode:
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, depth)
			}
		case html.DoctypeNode:
			lines = append(lines, "<!DOCTYPE "+n.Data+">")
		case html.TextNode:
			for _, part := range strings.Split(n.Data, "\n") {
				if part = strings.TrimSpace(part); part != "" {
					lines = append(lines, indent+html.EscapeString(part))
				}
			}
		case html.ElementNode:
			lines = append(lines, indent+startTag(n))
			if voidElements[n.Data] {
				return
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, depth+1)
			}
			lines = append(lines, indent+"</"+n.Data+">")
		}
	}
	walk(root, 0)
	return lines
}

func clean(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && stripped[c.DataAtom]) {
			n.RemoveChild(c)
		} else {
			clean(c)
		}
		c = next
	}
}

func startTag(n *html.Node) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteByte(' ')
		if a.Namespace != "" {
			b.WriteString(a.Namespace)
			b.WriteByte(':')
		}
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	return b.String()
}

// lineText strips the markup from one prettified line.
func lineText(line string) string {
	z := html.NewTokenizer(strings.NewReader(line))
	var parts []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(parts, "\n")
		case html.TextToken:
			if t := strings.TrimSpace(string(z.Text())); t != "" {
				parts = append(parts, t)
			}
		}
	}
}

// firstSeen keeps the first occurrence of each distinct line.
func firstSeen(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// collapseAdjacent merges runs of identical consecutive lines.
func collapseAdjacent(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if i > 0 && l == lines[i-1] {
			continue
		}
		out = append(out, l)
	}
	return out
}
