// Package client talks to the task API over HTTP with a bearer token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	apierrors "github.com/yukikurage/stellar-tasks/internal/errors"
	"github.com/yukikurage/stellar-tasks/internal/services"
)

// ErrUnauthorized is returned when the server rejects the token.
var ErrUnauthorized = errors.New("authentication failed: check the bearer token")

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusServiceUnavailable ||
		e.StatusCode == http.StatusGatewayTimeout ||
		e.StatusCode == http.StatusBadGateway
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL. The client keeps the
// session cookie between calls so notices cached for this session are
// merged into its feed.
func New(baseURL, token string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// Notifications fetches the caller's merged notification feed.
func (c *Client) Notifications(ctx context.Context) (*services.NoticeFeed, error) {
	var feed services.NoticeFeed
	if err := c.do(ctx, http.MethodGet, "/api/tasks/notifications", nil, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// MarkRead flags one notification as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/tasks/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr apierrors.APIError
		if json.Unmarshal(respBody, &apiErr) == nil {
			statusErr.Code = apiErr.Code
			statusErr.Message = apiErr.Message
		}
		return statusErr
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("decoding response from %s %s: %w", method, path, err)
	}
	return nil
}
