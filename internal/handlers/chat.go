package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"coach-backend/internal/middleware"
	"coach-backend/internal/models"
	"coach-backend/internal/services"
)

const (
	maxChatBodyBytes = 1 << 20

	invalidRequestMessage = "Invalid request: message is required"
	invalidAPIKeyMessage  = "Invalid API key. Please check your environment variables."
	genericFailureMessage = "Failed to process request. Please try again."
	fallbackReply         = "Sorry, I could not generate a response."
	statusMessage         = "Chat API is working. Use POST to send messages."
)

type ChatHandler struct {
	source  services.CompletionSource
	timeout time.Duration
	logger  zerolog.Logger
}

func NewChatHandler(source services.CompletionSource, timeout time.Duration, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		source:  source,
		timeout: timeout,
		logger:  logger.With().Str("component", "chat").Str("source", source.Name()).Logger(),
	}
}

// Chat relays one message to the completion source.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req models.ChatRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, invalidRequestMessage)
		return
	}
	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusBadRequest, invalidRequestMessage)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, invalidRequestMessage)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if relayer, ok := h.source.(services.Relayer); ok {
		h.relay(ctx, w, r, relayer, req)
		return
	}

	start := time.Now()
	reply, err := h.source.Complete(ctx, req)
	if err != nil {
		h.writeCompletionError(w, r, err)
		return
	}

	if strings.TrimSpace(reply) == "" {
		h.logger.Warn().
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("completion source returned empty content, using fallback")
		reply = fallbackReply
	}

	h.logger.Debug().
		Str("request_id", middleware.GetRequestID(r.Context())).
		Int("reply_length", len(reply)).
		Dur("upstream_duration", time.Since(start)).
		Msg("completion received")

	writeJSON(w, http.StatusOK, models.ChatResponse{Reply: reply})
}

// relay passes a backend response through with its status and body intact.
func (h *ChatHandler) relay(ctx context.Context, w http.ResponseWriter, r *http.Request, relayer services.Relayer, req models.ChatRequest) {
	resp, err := relayer.Relay(ctx, req)
	if err != nil {
		h.writeCompletionError(w, r, err)
		return
	}

	h.logger.Debug().
		Str("request_id", middleware.GetRequestID(r.Context())).
		Int("upstream_status", resp.StatusCode).
		Int("body_length", len(resp.Body)).
		Msg("backend response relayed")

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// Status is the read-only liveness probe for the chat route.
func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "ok", Message: statusMessage})
}

func (h *ChatHandler) writeCompletionError(w http.ResponseWriter, r *http.Request, err error) {
	event := h.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context()))

	var (
		cfgErr  *services.ConfigError
		authErr *services.AuthError
		upErr   *services.UpstreamError
	)

	switch {
	case errors.As(err, &cfgErr):
		event.Msg("completion source is not configured")
		writeError(w, http.StatusInternalServerError, cfgErr.Message)
	case errors.As(err, &authErr):
		event.Str("provider", authErr.Provider).Msg("provider rejected API key")
		writeError(w, http.StatusInternalServerError, invalidAPIKeyMessage)
	case errors.As(err, &upErr):
		event.Int("upstream_status", upErr.StatusCode).Msg("backend returned an error")
		writeError(w, upErr.StatusCode, upErr.Message)
	default:
		event.Msg("completion failed")
		message := genericFailureMessage
		if text := err.Error(); text != "" {
			message = "Error: " + text
		}
		writeError(w, http.StatusInternalServerError, message)
	}
}
