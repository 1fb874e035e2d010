// Package transport implements the production Fetcher: an HTTP client that
// builds JSON:API request URLs, injects auth headers, serializes request
// options onto the query string, and parses response documents. All retry
// and timeout policy for the store lives here.
package transport

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

	"go.uber.org/zap"

	"github.com/sideload-dev/sideload/jsonapi"
	"github.com/sideload-dev/sideload/store"
)

const defaultTimeout = 30 * time.Second

// Client is an HTTP JSON:API fetcher. It implements store.Fetcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
	token      string
	maxRetries int
	cache      DocumentCache
	cacheTTL   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the request logger. Nil disables logging.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithBearerToken injects an Authorization: Bearer header on every request.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithMaxRetries sets how many times a failed GET is retried. Only
// transient failures (network errors and 5xx responses) are retried, with
// exponential backoff. Writes are never retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithCache caches GET documents for the given TTL.
func WithCache(cache DocumentCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// New creates a client for a server base URL, e.g. "https://api.example.com".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDocument fetches a collection (id empty) or a single resource.
func (c *Client) FetchDocument(ctx context.Context, typeName, id string, opts *store.Options) (*jsonapi.Document, error) {
	path := "/" + url.PathEscape(typeName)
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	return c.get(ctx, path, opts)
}

// FetchHasMany fetches the related collection behind a to-many
// relationship.
func (c *Client) FetchHasMany(ctx context.Context, typeName, id, relationship string, opts *store.Options) (*jsonapi.Document, error) {
	return c.get(ctx, c.relatedPath(typeName, id, relationship), opts)
}

// FetchBelongsTo fetches the related resource behind a to-one relationship.
func (c *Client) FetchBelongsTo(ctx context.Context, typeName, id, relationship string, opts *store.Options) (*jsonapi.Document, error) {
	return c.get(ctx, c.relatedPath(typeName, id, relationship), opts)
}

func (c *Client) relatedPath(typeName, id, relationship string) string {
	return "/" + url.PathEscape(typeName) + "/" + url.PathEscape(id) + "/" + url.PathEscape(relationship)
}

// Post writes a resource and returns the server's document for it.
func (c *Client) Post(ctx context.Context, res *jsonapi.Resource) (*jsonapi.Document, error) {
	body, err := json.Marshal(jsonapi.Document{Data: &jsonapi.PrimaryData{One: res}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}

	reqURL := c.baseURL + "/" + url.PathEscape(res.Type)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/vnd.api+json")
	c.setCommonHeaders(req)

	c.log.Debug("jsonapi request",
		zap.String("method", http.MethodPost),
		zap.String("url", reqURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.readDocument(resp)
}

func (c *Client) get(ctx context.Context, path string, opts *store.Options) (*jsonapi.Document, error) {
	reqURL := c.baseURL + path
	if query := encodeOptions(opts).Encode(); query != "" {
		reqURL += "?" + query
	}

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, reqURL); err == nil {
			c.log.Debug("document cache hit", zap.String("url", reqURL))
			return jsonapi.Decode(cached)
		} else if !IsCacheMiss(err) {
			// A broken cache degrades to a network fetch.
			c.log.Warn("document cache error", zap.String("url", reqURL), zap.Error(err))
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s, ...
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			c.log.Debug("retrying request",
				zap.String("url", reqURL),
				zap.Int("attempt", attempt))
		}

		doc, body, retryable, err := c.getOnce(ctx, reqURL)
		if err == nil {
			if c.cache != nil {
				if cacheErr := c.cache.Set(ctx, reqURL, body, c.cacheTTL); cacheErr != nil {
					c.log.Warn("document cache store failed", zap.String("url", reqURL), zap.Error(cacheErr))
				}
			}
			return doc, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

// getOnce performs a single GET. retryable reports whether the failure is
// transient (network error or 5xx).
func (c *Client) getOnce(ctx context.Context, reqURL string) (doc *jsonapi.Document, body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, false, err
	}
	c.setCommonHeaders(req)

	c.log.Debug("jsonapi request",
		zap.String("method", http.MethodGet),
		zap.String("url", reqURL))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, nil, true, fmt.Errorf("server error: %s returned %d", reqURL, resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, nil, false, statusError(resp.StatusCode, reqURL, body)
	}

	doc, err = jsonapi.Decode(body)
	if err != nil {
		return nil, nil, false, err
	}
	return doc, body, false, nil
}

func (c *Client) readDocument(resp *http.Response) (*jsonapi.Document, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, resp.Request.URL.String(), body)
	}
	return jsonapi.Decode(body)
}

// statusError builds an error for a non-2xx response, surfacing the
// server's error document when it sent one.
func statusError(status int, reqURL string, body []byte) error {
	if doc, decodeErr := jsonapi.Decode(body); decodeErr == nil {
		if err := doc.Err(); err != nil {
			return fmt.Errorf("%s returned %d: %w", reqURL, status, err)
		}
	}
	return fmt.Errorf("%s returned %d", reqURL, status)
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.api+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
