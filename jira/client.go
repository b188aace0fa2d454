package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	sprintReportPath = "rest/greenhopper/1.0/rapid/charts/sprintreport"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
	defaultRetryWait  = 500 * time.Millisecond
	maxErrorBody      = 512
)

// Client fetches sprint reports from a Jira Server/Cloud site.
type Client struct {
	siteURL    string // e.g. "https://jira.example.com", used for REST calls and browse links
	creds      Credentials
	httpClient *http.Client
	maxRetries uint64
	retryWait  time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetry sets how many times a transport error or 5xx is retried and the
// initial backoff between attempts. maxRetries == 0 disables retrying.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		if initial > 0 {
			c.retryWait = initial
		}
	}
}

// NewClient creates a sprint report client for the given site.
func NewClient(siteURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		siteURL:    strings.TrimRight(siteURL, "/"),
		creds:      creds,
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		retryWait:  defaultRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthMode returns the credential scheme in use.
func (c *Client) AuthMode() string {
	if c.creds == nil {
		return "none"
	}
	return c.creds.Scheme()
}

// BrowseURL returns the human-facing link for an issue key.
func (c *Client) BrowseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", c.siteURL, key)
}

// SiteURL returns the normalised site URL without a trailing slash.
func (c *Client) SiteURL() string {
	return c.siteURL
}

// SprintReportURL builds the request URL for a board (rapid view) and sprint.
func (c *Client) SprintReportURL(boardID, sprintID string) string {
	qs := url.Values{
		"rapidViewId": {boardID},
		"sprintId":    {sprintID},
	}
	return fmt.Sprintf("%s/%s?%s", c.siteURL, sprintReportPath, qs.Encode())
}

// SprintReport fetches and decodes the sprint report. Errors are *ReportError
// with Kind FailedRequest or ReportParsingError.
func (c *Client) SprintReport(ctx context.Context, boardID, sprintID string) (*SprintReport, error) {
	reqURL := c.SprintReportURL(boardID, sprintID)

	var body []byte
	op := func() error {
		b, err := c.get(ctx, reqURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		log.Printf("[jira] sprint report board=%s sprint=%s failed, retrying in %s: %v",
			boardID, sprintID, wait.Round(time.Millisecond), err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if KindOf(err) == 0 {
			// context cancellation surfaces unwrapped from the backoff loop
			err = &ReportError{Kind: FailedRequest, Err: err}
		}
		return nil, err
	}

	log.Printf("[jira] read %d bytes from sprint report board=%s sprint=%s", len(body), boardID, sprintID)

	var report SprintReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, &ReportError{Kind: ReportParsingError, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	return &report, nil
}

// get performs one attempt. Errors that must not be retried are wrapped in
// backoff.Permanent.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(failedRequest("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		if err := c.creds.Apply(req); err != nil {
			return nil, backoff.Permanent(failedRequest("auth request: %w", err))
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(failedRequest("send request: %w", err))
		}
		return nil, failedRequest("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failedRequest("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := failedRequest("jira API error (HTTP %d): %s", resp.StatusCode, truncate(string(respBody), maxErrorBody))
		if resp.StatusCode >= 500 {
			return nil, apiErr
		}
		return nil, backoff.Permanent(apiErr)
	}
	return respBody, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("…(%d more)", len(s)-max)
}
