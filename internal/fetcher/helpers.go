package fetcher

import (
	"context"
	"net/http"
	"time"

	"github.com/IshaanNene/harvestgoat/internal/types"
)

// Options carries the per-call knobs shared by the helpers.
type Options struct {
	Headers     map[string]string
	Source      string
	FetcherType string
	Timeout     time.Duration // overrides the fetcher's request timeout when set
}

func newRequest(method, rawURL string, opts Options) (*types.Request, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	req.Method = method
	req.Source = opts.Source
	req.FetcherType = opts.FetcherType
	req.Timeout = opts.Timeout
	req.SetHeaders(opts.Headers)
	return req, nil
}

// GetText fetches rawURL and returns the decoded body.
func GetText(ctx context.Context, f Fetcher, rawURL string, opts Options) (*types.Response, error) {
	req, err := newRequest(http.MethodGet, rawURL, opts)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, req)
}

// GetJSON fetches rawURL and decodes the body into v.
func GetJSON(ctx context.Context, f Fetcher, rawURL string, opts Options, v any) error {
	req, err := newRequest(http.MethodGet, rawURL, opts)
	if err != nil {
		return err
	}
	req.Headers.Set("Accept", "application/json")
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.DecodeJSON(v); err != nil {
		return &types.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// PostJSON sends body as a JSON request.
func PostJSON(ctx context.Context, f Fetcher, rawURL string, body []byte, opts Options) (*types.Response, error) {
	req, err := newRequest(http.MethodPost, rawURL, opts)
	if err != nil {
		return nil, err
	}
	req.Body = body
	req.Headers.Set("Content-Type", "application/json")
	return f.Fetch(ctx, req)
}

// ResolveRedirect follows redirects with a HEAD request and returns the
// final URL. Used for shortened links.
func ResolveRedirect(ctx context.Context, f Fetcher, rawURL string, opts Options) (string, error) {
	req, err := newRequest(http.MethodHead, rawURL, opts)
	if err != nil {
		return "", err
	}
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.FinalURL, nil
}
