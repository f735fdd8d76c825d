package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// DefaultDateLayout is used when a source does not configure its own layouts.
const DefaultDateLayout = "2006-01-02 15:04:05"

// fallbackLayouts are tried after the source layouts.
var fallbackLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DateParser parses publication dates.
//
// A nil value means the source gave no date and yields nil. A value that is
// present but cannot be parsed yields the current time.
type DateParser struct {
	Layouts  []string
	Cleanup  *regexp.Regexp
	Location *time.Location
	Now      func() time.Time
}

// NewDateParser builds a parser. An empty cleanup pattern disables cleanup.
func NewDateParser(layouts []string, cleanup string, loc *time.Location) (*DateParser, error) {
	p := &DateParser{Layouts: layouts, Location: loc}
	if cleanup != "" {
		re, err := regexp.Compile(cleanup)
		if err != nil {
			return nil, err
		}
		p.Cleanup = re
	}
	return p, nil
}

// Parse converts v to a time in the parser location.
func (p *DateParser) Parse(v any) *time.Time {
	if v == nil {
		return nil
	}
	loc := p.location()

	var t time.Time
	var ok bool
	switch vv := v.(type) {
	case time.Time:
		t, ok = vv, !vv.IsZero()
	case *time.Time:
		if vv == nil {
			return nil
		}
		t, ok = *vv, !vv.IsZero()
	case json.Number:
		t, ok = fromEpochString(vv.String())
	case float64:
		t, ok = fromEpoch(vv), true
	case int64:
		t, ok = fromEpoch(float64(vv)), true
	case int:
		t, ok = fromEpoch(float64(vv)), true
	case string:
		t, ok = p.parseString(vv, loc)
	}
	if !ok {
		t = p.now()
	}
	t = t.In(loc)
	return &t
}

func (p *DateParser) parseString(s string, loc *time.Location) (time.Time, bool) {
	s = width.Fold.String(s)
	if p.Cleanup != nil {
		s = p.Cleanup.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	layouts := p.Layouts
	if len(layouts) == 0 {
		layouts = []string{DefaultDateLayout}
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p *DateParser) location() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	return time.Local
}

func (p *DateParser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func fromEpochString(s string) (time.Time, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, false
	}
	return fromEpoch(f), true
}

// fromEpoch accepts seconds or milliseconds since the Unix epoch.
func fromEpoch(f float64) time.Time {
	if f > 1e12 {
		return time.UnixMilli(int64(f))
	}
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9))
}
