// Package catalog proxies JSON from the upstream content host and folds
// like counts into catalog listings.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UpstreamError is a failed upstream fetch; Status is what the boundary
// layer should answer with.
type UpstreamError struct {
	Status int
	URL    string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %d for %s: %v", e.Status, e.URL, e.Err)
	}
	return fmt.Sprintf("upstream HTTP %d for %s", e.Status, e.URL)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client fetches catalog JSON from the PUBLIC_BASE content host.
type Client struct {
	Base string
	HTTP *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: 20 * time.Second},
	}
}

// Index fetches the catalog listing.
func (c *Client) Index(ctx context.Context) (any, error) {
	return c.fetchJSON(ctx, c.Base+"/catalog/index.json")
}

// SeriesMeta fetches a single series' metadata.
func (c *Client) SeriesMeta(ctx context.Context, sid, slug string) (any, error) {
	return c.fetchJSON(ctx, fmt.Sprintf("%s/series/%s-%s/meta.json",
		c.Base, url.PathEscape(sid), url.PathEscape(slug)))
}

// ChaptersIndex fetches a series' chapter listing.
func (c *Client) ChaptersIndex(ctx context.Context, sid, slug string) (any, error) {
	return c.fetchJSON(ctx, fmt.Sprintf("%s/series/%s-%s/chapters/index.json",
		c.Base, url.PathEscape(sid), url.PathEscape(slug)))
}

func (c *Client) fetchJSON(ctx context.Context, rawURL string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &UpstreamError{Status: http.StatusInternalServerError, URL: rawURL, Err: err}
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("User-Agent", "MangalairMiniApp/1.0")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &UpstreamError{Status: http.StatusBadGateway, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, URL: rawURL}
	}

	var data any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &UpstreamError{Status: http.StatusInternalServerError, URL: rawURL, Err: err}
	}
	return data, nil
}

// MergeLikeCounts sets a "likes" field on each catalog item whose series key
// can be derived. The listing may be a bare array or an object with "items".
func MergeLikeCounts(data any, counts map[string]int) {
	var items []any
	switch t := data.(type) {
	case []any:
		items = t
	case map[string]any:
		items, _ = t["items"].([]any)
	}
	for _, raw := range items {
		it, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if key := itemSeriesKey(it); key != "" {
			it["likes"] = counts[key]
		}
	}
}

func itemSeriesKey(it map[string]any) string {
	sid := firstString(it, "sid", "seriesId", "series_id", "id")
	slug := firstString(it, "slug")
	if slug != "" && sid != "" {
		return sid + "-" + slug
	}
	if strings.HasPrefix(sid, "sr_") {
		return sid
	}
	return ""
}

func firstString(it map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := it[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		case float64:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}
