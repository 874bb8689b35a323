package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coach-backend/internal/models"
	"coach-backend/internal/services"
)

type stubSource struct {
	reply    string
	err      error
	calls    int
	lastReq  models.ChatRequest
	deadline time.Time
	wait     bool
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Complete(ctx context.Context, req models.ChatRequest) (string, error) {
	s.calls++
	s.lastReq = req
	s.deadline, _ = ctx.Deadline()
	if s.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

func newTestChatHandler(src services.CompletionSource) *ChatHandler {
	return NewChatHandler(src, 10*time.Second, zerolog.Nop())
}

func postChat(h *ChatHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Chat(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	return payload
}

func TestChatHandler_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed json", `{"message":`},
		{"missing message", `{}`},
		{"null message", `{"message": null}`},
		{"numeric message", `{"message": 42}`},
		{"array message", `{"message": ["hi"]}`},
		{"empty message", `{"message": ""}`},
		{"blank message", `{"message": "   "}`},
		{"trailing data", `{"message":"hi"} this is not json`},
		{"second value", `{"message":"hi"}{"message":"again"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := &stubSource{reply: "unused"}
			rr := postChat(newTestChatHandler(src), tc.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, invalidRequestMessage, decodeBody(t, rr)["error"])
			assert.Zero(t, src.calls, "completion source must not be invoked")
		})
	}
}

func TestChatHandler_Success(t *testing.T) {
	src := &stubSource{reply: "Try a short walk outside."}
	rr := postChat(newTestChatHandler(src), `{"message":"I can't focus"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	payload := decodeBody(t, rr)
	assert.Equal(t, "Try a short walk outside.", payload["reply"])
	_, hasError := payload["error"]
	assert.False(t, hasError)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "I can't focus", src.lastReq.Message)
	assert.False(t, src.deadline.IsZero(), "upstream call must carry a deadline")
}

func TestChatHandler_EmptyReplyUsesFallback(t *testing.T) {
	for _, reply := range []string{"", "  \n"} {
		rr := postChat(newTestChatHandler(&stubSource{reply: reply}), `{"message":"hello"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, fallbackReply, decodeBody(t, rr)["reply"])
	}
}

func TestChatHandler_MissingCredential(t *testing.T) {
	src := services.NewOpenAISource("", "", "", "You are a supportive mental coach.")
	rr := postChat(newTestChatHandler(src), `{"message":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "OPENAI_API_KEY not configured. Please set it in your environment variables.", decodeBody(t, rr)["error"])
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "rejected credential",
			err:        &services.AuthError{Provider: "OpenAI", Err: errors.New("Incorrect API key provided: sk-abc***xyz")},
			wantStatus: http.StatusInternalServerError,
			wantError:  invalidAPIKeyMessage,
		},
		{
			name:       "wrapped rejected credential",
			err:        fmt.Errorf("relay: %w", &services.AuthError{Provider: "Gemini", Err: errors.New("API key not valid")}),
			wantStatus: http.StatusInternalServerError,
			wantError:  invalidAPIKeyMessage,
		},
		{
			name:       "upstream status relayed",
			err:        &services.UpstreamError{StatusCode: http.StatusBadGateway, Message: "model offline"},
			wantStatus: http.StatusBadGateway,
			wantError:  "model offline",
		},
		{
			name:       "generic failure",
			err:        errors.New("OpenAI API error: overloaded"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Error: OpenAI API error: overloaded",
		},
		{
			name:       "failure without text",
			err:        errors.New(""),
			wantStatus: http.StatusInternalServerError,
			wantError:  genericFailureMessage,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := postChat(newTestChatHandler(&stubSource{err: tc.err}), `{"message":"hello"}`)

			assert.Equal(t, tc.wantStatus, rr.Code)
			payload := decodeBody(t, rr)
			assert.Equal(t, tc.wantError, payload["error"])
			_, hasReply := payload["reply"]
			assert.False(t, hasReply)
		})
	}
}

func TestChatHandler_TimeoutBoundsUpstream(t *testing.T) {
	src := &stubSource{wait: true}
	h := NewChatHandler(src, 20*time.Millisecond, zerolog.Nop())

	start := time.Now()
	rr := postChat(h, `{"message":"hello"}`)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Error: "+context.DeadlineExceeded.Error(), decodeBody(t, rr)["error"])
}

func TestChatHandler_ProxyRelaysBackendVerbatim(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"reply":""}`))
	}))
	defer backend.Close()

	rr := postChat(newTestChatHandler(services.NewProxySource(backend.URL)), `{"message":"hello"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, `{"reply":""}`, rr.Body.String())
}

func TestChatHandler_ProxyRelaysBackendError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"model warming up"}`))
	}))
	defer backend.Close()

	rr := postChat(newTestChatHandler(services.NewProxySource(backend.URL)), `{"message":"hello"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "model warming up", decodeBody(t, rr)["error"])
}

func TestChatHandler_SameInputSameShape(t *testing.T) {
	h := newTestChatHandler(&stubSource{reply: "Be kind to yourself."})

	first := decodeBody(t, postChat(h, `{"message":"hello"}`))
	second := decodeBody(t, postChat(h, `{"message":"hello"}`))

	assert.Equal(t, first, second)
}

func TestChatHandler_Status(t *testing.T) {
	src := &stubSource{}
	rr := httptest.NewRecorder()
	newTestChatHandler(src).Status(rr, httptest.NewRequest(http.MethodGet, "/api/chat", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	payload := decodeBody(t, rr)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, statusMessage, payload["message"])
	assert.Zero(t, src.calls)
}
