// Package remote talks to the ads persistence API over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"adsconsole/internal/domain"
)

// DefaultBaseURL is the production ads API.
const DefaultBaseURL = "https://api.a1satta.pro/api"

// Client implements domain.AdsRepository against the remote ads API.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets a bearer token source. It is consulted on every request so
// a token stored after startup is picked up.
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      func() string { return "" },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError is returned for HTTP responses with status >= 400.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case http.StatusForbidden:
		return domain.ErrForbidden
	}
	return nil
}

type saveResponse struct {
	Ads []domain.AdRecord `json:"ads"`
}

// List fetches every ad of a site.
func (c *Client) List(ctx context.Context, site domain.Site) ([]domain.Block, error) {
	var records []domain.AdRecord
	if err := c.do(ctx, http.MethodGet, "/ads?site="+url.QueryEscape(string(site)), nil, &records); err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	return blocksOf(records), nil
}

// UpsertBatch posts one zone and returns the canonical list the server
// answers with. The zone also travels as the position query parameter so an
// empty batch still names the zone it clears.
func (c *Client) UpsertBatch(ctx context.Context, site domain.Site, zone domain.Zone, blocks []domain.Block) ([]domain.Block, error) {
	records := make([]domain.AdRecord, 0, len(blocks))
	for i, b := range blocks {
		r := domain.RecordOf(b)
		r.Position, r.Order, r.Site = zone, i, site
		records = append(records, r)
	}
	q := url.Values{"site": {string(site)}, "position": {string(zone)}}
	var resp saveResponse
	if err := c.do(ctx, http.MethodPost, "/ads?"+q.Encode(), records, &resp); err != nil {
		return nil, fmt.Errorf("save ads: %w", err)
	}
	if resp.Ads == nil {
		return nil, fmt.Errorf("save ads: response has no ads list")
	}
	return blocksOf(resp.Ads), nil
}

// Delete removes one persisted ad.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/ads/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete ad %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return nil
}

func blocksOf(records []domain.AdRecord) []domain.Block {
	out := make([]domain.Block, 0, len(records))
	for _, r := range records {
		out = append(out, r.Block())
	}
	return out
}
