package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"coach-backend/internal/models"
)

const (
	proxyFallbackError = "Backend request failed"

	maxErrorBodyBytes = 64 << 10
	maxRelayBodyBytes = 1 << 20
)

// Relayer is implemented by sources that front another chat backend. The
// handler passes their successful responses through without re-encoding.
type Relayer interface {
	Relay(ctx context.Context, req models.ChatRequest) (*RelayedResponse, error)
}

// RelayedResponse is a 2xx backend response as it came off the wire.
type RelayedResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// ProxySource forwards chat turns to another backend that speaks the same
// /api/chat contract.
type ProxySource struct {
	baseURL    string
	httpClient *http.Client
}

var _ Relayer = (*ProxySource)(nil)

func NewProxySource(baseURL string) *ProxySource {
	return &ProxySource{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Deadline comes from the request context.
		httpClient: &http.Client{},
	}
}

func (s *ProxySource) Name() string {
	return fmt.Sprintf("proxy/%s", s.baseURL)
}

func (s *ProxySource) Complete(ctx context.Context, req models.ChatRequest) (string, error) {
	relayed, err := s.Relay(ctx, req)
	if err != nil {
		return "", err
	}

	var chatResp models.ChatResponse
	if err := json.Unmarshal(relayed.Body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode backend response: %w", err)
	}

	return chatResp.Reply, nil
}

// Relay forwards req and hands back a 2xx backend response untouched.
func (s *ProxySource) Relay(ctx context.Context, req models.ChatRequest) (*RelayedResponse, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamErrorMessage(body),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	return &RelayedResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// upstreamErrorMessage picks "error" or "detail" from a JSON error body.
// FastAPI style backends put structured validation errors in "detail"; those
// are relayed as their JSON text.
func upstreamErrorMessage(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return proxyFallbackError
	}

	return lo.CoalesceOrEmpty(
		rawText(payload["error"]),
		rawText(payload["detail"]),
		proxyFallbackError,
	)
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
