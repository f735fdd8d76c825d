package cluster

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxLineRunes is the segmenter's practical input ceiling. Longer lines
// are split on the ideographic full stop, or dropped if that is not enough.
const maxLineRunes = 510

var (
	brackets = strings.NewReplacer(
		"[", "\n", "]", "\n", "（", "\n", "）", "\n", "(", "\n", ")", "\n",
		"{", "\n", "}", "\n", "《", "\n", "》", "\n", "「", "\n", "」", "\n",
		"『", "\n", "』", "\n", "【", "\n", "】", "\n",
	)
	numericToken = regexp.MustCompile(`^[0-9,\.:]+$`)
	dateToken    = regexp.MustCompile(`^[0-9一二三四五六七八九十百千]+[日月年]$`)
)

// Tokenize returns the sorted, distinct tokens of text that survive the
// stopword and shape filters.
func (e *Engine) Tokenize(text string) []string {
	set := make(map[string]struct{})
	for _, line := range splitLines(text) {
		for _, tok := range e.seg.Cut(line) {
			if e.keep(tok) {
				set[tok] = struct{}{}
			}
		}
	}

	tokens := make([]string, 0, len(set))
	for tok := range set {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

func (e *Engine) keep(tok string) bool {
	switch {
	case strings.TrimSpace(tok) == "":
		return false
	case utf8.RuneCountInString(tok) <= 1:
		return false
	case numericToken.MatchString(tok), dateToken.MatchString(tok):
		return false
	case e.stopwords.Contains(tok):
		return false
	}
	return true
}

// splitLines breaks text on newlines and bracket characters, lowercases
// each line and enforces maxLineRunes.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(brackets.Replace(text), "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) < maxLineRunes {
			lines = append(lines, line)
			continue
		}

		parts := strings.Split(line, "。")
		fits := true
		for _, p := range parts {
			if utf8.RuneCountInString(p) >= maxLineRunes {
				fits = false
				break
			}
		}
		if !fits {
			continue
		}
		for _, p := range parts {
			if strings.TrimSpace(p) != "" {
				lines = append(lines, p+"。")
			}
		}
	}
	return lines
}
