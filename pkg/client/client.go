// Package client is the Go SDK for the Biopartnering Insights HTTP API.  The
// CLI uses it; external callers can too.
package client

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

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

const defaultTimeout = 120 * time.Second

// APIError is a decoded error response from the server.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("biopartner: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound reports whether the server returned 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsServerError reports whether the server returned a 5xx status.
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// Client talks to one Biopartnering Insights server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient validates the base URL and builds a client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeValidation, "base URL scheme must be http or https")
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Answer asks the server a question.
func (c *Client) Answer(ctx context.Context, question string) (*biopharma.AnswerResult, error) {
	var result biopharma.AnswerResult
	err := c.post(ctx, "/api/v1/answers", map[string]string{"question": question}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CacheStatsResult mirrors the server's cache statistics payload.
type CacheStatsResult struct {
	TotalEntries   int `json:"total_entries"`
	ValidEntries   int `json:"valid_entries"`
	ExpiredEntries int `json:"expired_entries"`
	MostAccessed   []struct {
		Query       string `json:"query"`
		AccessCount int64  `json:"access_count"`
	} `json:"most_accessed"`
}

// CacheStats fetches query-cache statistics.
func (c *Client) CacheStats(ctx context.Context) (*CacheStatsResult, error) {
	var stats CacheStatsResult
	if err := c.get(ctx, "/api/v1/cache/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CacheInvalidate drops one cached query, or every entry when query is blank.
// It returns the number of entries removed.
func (c *Client) CacheInvalidate(ctx context.Context, query string) (int, error) {
	var resp struct {
		Removed int `json:"removed"`
	}
	err := c.post(ctx, "/api/v1/cache/invalidate", map[string]string{"query": query}, &resp)
	return resp.Removed, err
}

// CacheSweep removes expired entries and returns the count.
func (c *Client) CacheSweep(ctx context.Context) (int, error) {
	var resp struct {
		Removed int `json:"removed"`
	}
	err := c.post(ctx, "/api/v1/cache/sweep", nil, &resp)
	return resp.Removed, err
}

// IndexReport mirrors the server's ingestion report.
type IndexReport struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
}

// IndexRecords submits source records for embedding and indexing.
func (c *Client) IndexRecords(ctx context.Context, records []biopharma.SourceRecord) (*IndexReport, error) {
	var report IndexReport
	if err := c.post(ctx, "/api/v1/index/records", records, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "encode request body")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "request failed")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(payload, apiErr) != nil || apiErr.Message == "" {
			apiErr.Code = string(errors.ErrCodeInternal)
			apiErr.Message = strings.TrimSpace(string(payload))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode response body")
	}
	return nil
}
