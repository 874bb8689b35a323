package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"coach-backend/internal/models"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 1024
)

type AnthropicSource struct {
	client       *anthropic.Client
	model        string
	systemPrompt string
}

func NewAnthropicSource(apiKey, baseURL, model, systemPrompt string) *AnthropicSource {
	if model == "" {
		model = defaultAnthropicModel
	}

	s := &AnthropicSource{
		model:        model,
		systemPrompt: systemPrompt,
	}

	if apiKey != "" {
		opts := []option.RequestOption{option.WithAPIKey(apiKey)}
		if baseURL != "" {
			opts = append(opts, option.WithBaseURL(baseURL))
		}
		client := anthropic.NewClient(opts...)
		s.client = &client
	}

	return s
}

func (s *AnthropicSource) Name() string {
	return fmt.Sprintf("anthropic/%s", s.model)
}

func (s *AnthropicSource) Complete(ctx context.Context, req models.ChatRequest) (string, error) {
	if s.client == nil {
		return "", missingCredential("ANTHROPIC_API_KEY")
	}

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: s.systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Message)),
		},
	})
	if err != nil {
		statusCode := 0
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			statusCode = apiErr.StatusCode
		}
		return "", classifyProviderError("Anthropic", statusCode, err)
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	return reply.String(), nil
}
