// Package client sends chat turns to the relay's /api/chat endpoint and
// turns every failure into a single descriptive error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"coach-backend/internal/models"
)

const (
	DefaultTimeout = 30 * time.Second

	chatPath          = "/api/chat"
	genericFailure    = "failed to send message, please try again"
	maxErrorBodyBytes = 64 << 10
)

// ErrTimeout is returned when the relay does not answer before the timeout
// or the caller cancels the request.
var ErrTimeout = errors.New("request timed out: the server took too long to respond, please try again")

// HTTPError is a non-success answer from the relay.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string { return e.Message }

// NetworkError means the relay could not be reached at all.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: could not reach %s. This usually means the chat relay is not running or not accessible at that address", e.URL)
}

func (e *NetworkError) Unwrap() error { return e.Err }

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendChatMessage makes one attempt to get a reply for message. It never
// retries.
func (c *Client) SendChatMessage(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(models.ChatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + chatPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", httpError(resp)
	}

	var chatResp models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		if ctx.Err() != nil {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return chatResp.Reply, nil
}

func transportError(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}

	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &NetworkError{URL: url, Err: err}
	}

	if err.Error() == "" {
		return errors.New(genericFailure)
	}
	return err
}

// httpError prefers the relay's "error" field, then "detail". A JSON body
// without either yields the generic status message; a non-JSON body yields
// the status text.
func httpError(resp *http.Response) *HTTPError {
	fallback := fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    lo.CoalesceOrEmpty(http.StatusText(resp.StatusCode), fallback),
		}
	}

	errField, _ := payload["error"].(string)
	detailField, _ := payload["detail"].(string)
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Message:    lo.CoalesceOrEmpty(errField, detailField, fallback),
	}
}
