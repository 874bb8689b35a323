package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"coach-backend/internal/models"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAISource struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

// NewOpenAISource creates a source for the chat completions API. An empty
// apiKey is accepted; Complete then reports a configuration error.
func NewOpenAISource(apiKey, baseURL, model, systemPrompt string) *OpenAISource {
	if model == "" {
		model = defaultOpenAIModel
	}

	s := &OpenAISource{
		model:        model,
		systemPrompt: systemPrompt,
	}

	if apiKey != "" {
		clientCfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			clientCfg.BaseURL = baseURL
		}
		s.client = openai.NewClientWithConfig(clientCfg)
	}

	return s
}

func (s *OpenAISource) Name() string {
	return fmt.Sprintf("openai/%s", s.model)
}

func (s *OpenAISource) Complete(ctx context.Context, req models.ChatRequest) (string, error) {
	if s.client == nil {
		return "", missingCredential("OPENAI_API_KEY")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		N:     1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Message},
		},
	})
	if err != nil {
		return "", classifyProviderError("OpenAI", openAIStatusCode(err), err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIStatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == "invalid_api_key" {
			return http.StatusUnauthorized
		}
		return apiErr.HTTPStatusCode
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}

	return 0
}
