package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request describes one outbound call made on behalf of a source.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are sent in addition to the fetcher defaults and win over them.
	Headers http.Header

	// Body is the request body for POST requests.
	Body []byte

	// Timeout overrides the fetcher timeout for this request.
	Timeout time.Duration

	// Source names the adapter that issued the request, for logs and metrics.
	Source string

	// FetcherType selects the fetcher: "http" or "browser".
	FetcherType string

	// Meta stores arbitrary metadata attached to this request.
	Meta map[string]any
}

// NewRequest creates a GET request.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidURL, rawURL)
	}

	return &Request{
		URL:         u,
		Method:      http.MethodGet,
		Headers:     make(http.Header),
		FetcherType: "http",
		Meta:        make(map[string]any),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}

// SetHeaders copies a plain header map onto the request.
func (r *Request) SetHeaders(headers map[string]string) {
	for k, v := range headers {
		r.Headers.Set(k, v)
	}
}
