package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/normalize"
	"github.com/IshaanNene/harvestgoat/internal/selector"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// parseSelector reads a catalog selector. "xpath:" selects by XPath.
func parseSelector(s string) selector.Selector {
	s = strings.TrimSpace(s)
	if expr, ok := strings.CutPrefix(s, "xpath:"); ok {
		return selector.XPath(strings.TrimSpace(expr))
	}
	return selector.Path(s)
}

// FromSpec converts a catalog entry into a descriptor.
func FromSpec(spec config.SourceSpec, loc *time.Location) (*Descriptor, error) {
	kind, err := ParseKind(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", spec.Name, err)
	}

	d := &Descriptor{
		Name:     spec.Name,
		Kind:     kind,
		URL:      spec.URL,
		Fetcher:  spec.Fetcher,
		Headers:  spec.Headers,
		Disabled: spec.Disabled,
		Items:    spec.Items,
		BaseURL:  spec.BaseURL,
		Fields: Fields{
			ID:      parseSelector(spec.Fields.ID),
			Title:   parseSelector(spec.Fields.Title),
			Content: parseSelector(spec.Fields.Content),
			Author:  parseSelector(spec.Fields.Author),
			Date:    parseSelector(spec.Fields.Date),
			URL:     parseSelector(spec.Fields.URL),
		},
	}

	if spec.Category != "" {
		if d.Category, err = types.ParseCategory(spec.Category); err != nil {
			return nil, fmt.Errorf("source %q: %w", spec.Name, err)
		}
	}
	if spec.ContentType != "" {
		if d.ContentType, err = types.ParseContentType(spec.ContentType); err != nil {
			return nil, fmt.Errorf("source %q: %w", spec.Name, err)
		}
	}

	d.Dates, err = normalize.NewDateParser(spec.DateLayouts, spec.DateCleanup, loc)
	if err != nil {
		return nil, fmt.Errorf("source %q: date_cleanup: %w", spec.Name, err)
	}

	if spec.Detail != nil {
		d.Detail = &Detail{
			Link:      parseSelector(spec.Detail.Link),
			Replace:   spec.Detail.Replace,
			Unshorten: spec.Detail.Unshorten,
		}
	}
	if f := spec.Filter; f != nil {
		path, want := selector.Path(f.Path), f.Equals
		d.Filter = func(it *selector.Item) bool {
			got, ok := selector.ResolveString(it, path)
			return ok && got == want
		}
	}
	return d, nil
}
