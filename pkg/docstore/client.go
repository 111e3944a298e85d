// Package docstore provides a read-only client for the research-document
// catalog service. The matching core never writes here; only the
// analytics view reads counts.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the document catalog operations the analytics view needs.
type Client interface {
	// CountByProjectIDs returns the number of research documents linked
	// to any of the given projects. An empty id list counts zero.
	CountByProjectIDs(ctx context.Context, projectIDs []int64) (int, error)
}

// Option configures the docstore client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a document catalog client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://docs.expanders360.com/api",
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type countResponse struct {
	Count int `json:"count"`
}

func (c *httpClient) CountByProjectIDs(ctx context.Context, projectIDs []int64) (int, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}

	ids := make([]string, len(projectIDs))
	for i, id := range projectIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	reqURL := fmt.Sprintf("%s/documents/count?%s", c.baseURL,
		url.Values{"project_ids": []string{strings.Join(ids, ",")}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, eris.Wrap(err, "docstore: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "docstore: count request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, eris.Wrap(err, "docstore: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("docstore: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out countResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, eris.Wrap(err, "docstore: decode response")
	}
	return out.Count, nil
}
