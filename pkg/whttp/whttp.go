// Package whttp talks to a running matchfeed server.
package whttp

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

	"github.com/hashicorp/go-retryablehttp"
)

const (
	USER_AGENT = "matchfeed-cli"

	defaultRetryMax = 3
	maxErrorBody    = 512
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client retries GETs on connection errors and 5xx answers. Every other
// method is sent exactly once: a refresh or scrape that failed on the
// server must not be started again behind the caller's back.
type Client struct {
	base     *url.URL
	client   *retryablehttp.Client
	once     *retryablehttp.Client
	username string
	password string
}

type Options struct {
	Username string
	Password string
	Proxy    string
	RetryMax int
	Timeout  time.Duration
}

func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.RetryMax = defaultRetryMax
	if opts.RetryMax > 0 {
		retryClient.RetryMax = opts.RetryMax
	}
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	if opts.Timeout > 0 {
		retryClient.HTTPClient.Timeout = opts.Timeout
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		retryClient.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	once := retryablehttp.NewClient()
	once.Logger = retryClient.Logger
	once.HTTPClient = retryClient.HTTPClient
	once.RetryMax = 0
	once.CheckRetry = noRetry
	once.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		base:     u,
		client:   retryClient,
		once:     once,
		username: opts.Username,
		password: opts.Password,
	}, nil
}

func noRetry(_ context.Context, _ *http.Response, err error) (bool, error) {
	return false, err
}

// Get decodes the JSON body of GET path?query into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, out)
}

// Post sends an empty POST with query and decodes the JSON answer into out.
func (c *Client) Post(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, query, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	u := *c.base
	u.Path = u.Path + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Accept", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	client := c.client
	if method != http.MethodGet {
		client = c.once
	}
	// With the passthrough handler a final 5xx comes back as resp plus a
	// retry-policy error; the body carries the server's message.
	resp, err := client.Do(req)
	if resp == nil {
		if err == nil {
			err = fmt.Errorf("%s %s: no response", method, u.Path)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, u.Path, err)
	}
	return nil
}
