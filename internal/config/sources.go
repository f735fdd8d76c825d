package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceSpec is the declarative form of a source descriptor as written in a
// catalog file. Selectors prefixed with "xpath:" are XPath expressions.
type SourceSpec struct {
	Name        string            `yaml:"name"`
	Kind        string            `yaml:"kind"` // html, json, rss, telegram
	URL         string            `yaml:"url"`
	Category    string            `yaml:"category"`
	ContentType string            `yaml:"content_type"`
	Fetcher     string            `yaml:"fetcher"` // http (default) or browser
	Disabled    bool              `yaml:"disabled"`
	Headers     map[string]string `yaml:"headers"`
	Items       string            `yaml:"items"`
	Fields      FieldSpec         `yaml:"fields"`
	Detail      *DetailSpec       `yaml:"detail"`
	Filter      *FilterSpec       `yaml:"filter"`
	DateLayouts []string          `yaml:"date_layouts"`
	DateCleanup string            `yaml:"date_cleanup"`
	BaseURL     string            `yaml:"base_url"`
}

// FieldSpec holds one selector per article field. An empty content selector
// on an HTML source means the raw page markup.
type FieldSpec struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Author  string `yaml:"author"`
	Date    string `yaml:"date"`
	URL     string `yaml:"url"`
}

// DetailSpec describes how to follow an index entry to its full article.
// For mapping sources Replace names the path that receives the fetched page.
type DetailSpec struct {
	Link      string `yaml:"link"`
	Replace   string `yaml:"replace"`
	Unshorten bool   `yaml:"unshorten"`
}

// FilterSpec keeps only items whose value at Path equals Equals.
type FilterSpec struct {
	Path   string `yaml:"path"`
	Equals string `yaml:"equals"`
}

// Catalog is a list of source specs.
type Catalog struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadCatalog reads a YAML source catalog. Unknown keys are rejected so
// typos in selector names surface at startup.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML source catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode source catalog: %w", err)
	}

	seen := make(map[string]bool, len(cat.Sources))
	for i, s := range cat.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("source #%d: name is required", i+1)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("source %q declared twice", s.Name)
		}
		seen[s.Name] = true
		if err := ValidateURL(s.URL); err != nil {
			return nil, fmt.Errorf("source %q: %w", s.Name, err)
		}
	}
	return &cat, nil
}
