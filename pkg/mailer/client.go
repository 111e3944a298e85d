// Package mailer provides a client for the transactional mail API used
// for match notifications and scheduled reports.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the notification operations the core depends on.
type Client interface {
	// SendMatchNotification tells a client contact about a newly found
	// project/vendor match.
	SendMatchNotification(ctx context.Context, to string, projectID, vendorID int64, score float64) (*Delivery, error)
	// SendReport delivers an HTML report or alert to the given address.
	SendReport(ctx context.Context, to, subject, htmlBody string) (*Delivery, error)
}

// Delivery is the handle returned by the mail API on acceptance.
type Delivery struct {
	MessageID string `json:"message_id"`
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// Option configures the mail client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
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
	from    string
	baseURL string
	http    *http.Client
}

// NewClient creates a mail API client sending from the given address.
func NewClient(apiKey, from string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		from:    from,
		baseURL: "https://api.mail.expanders360.com/v1",
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) SendMatchNotification(ctx context.Context, to string, projectID, vendorID int64, score float64) (*Delivery, error) {
	req := sendRequest{
		From:    c.from,
		To:      to,
		Subject: fmt.Sprintf("New Match for Project %d", projectID),
		Text:    fmt.Sprintf("Project %d matched with Vendor %d (score: %.2f)", projectID, vendorID, score),
	}
	return c.send(ctx, req)
}

func (c *httpClient) SendReport(ctx context.Context, to, subject, htmlBody string) (*Delivery, error) {
	req := sendRequest{
		From:    c.from,
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
	}
	return c.send(ctx, req)
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

func (c *httpClient) send(ctx context.Context, req sendRequest) (*Delivery, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "mailer: marshal request")
	}

	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
		if err != nil {
			return nil, eris.Wrap(err, "mailer: create request")
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			lastErr = eris.Wrap(err, "mailer: send request")
		} else {
			var delivery Delivery
			decodeErr := json.NewDecoder(resp.Body).Decode(&delivery)
			resp.Body.Close() //nolint:errcheck

			switch {
			case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
				if decodeErr != nil {
					return nil, eris.Wrap(decodeErr, "mailer: decode response")
				}
				return &delivery, nil
			case retryableStatusCode(resp.StatusCode):
				lastErr = eris.Errorf("mailer: status %d", resp.StatusCode)
			default:
				return nil, eris.Errorf("mailer: unexpected status %d", resp.StatusCode)
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}
