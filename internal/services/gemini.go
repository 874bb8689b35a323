package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"coach-backend/internal/models"
)

const defaultGeminiModel = "gemini-3-flash-preview"

type GeminiSource struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiSource builds a Gemini source. Extra client options are applied
// after the API key, e.g. option.WithEndpoint to target another host.
func NewGeminiSource(ctx context.Context, apiKey, model, systemPrompt string, opts ...option.ClientOption) (*GeminiSource, error) {
	if model == "" {
		model = defaultGeminiModel
	}

	s := &GeminiSource{modelName: model}
	if apiKey == "" {
		return s, nil
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	gm := client.GenerativeModel(model)
	gm.SetCandidateCount(1)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	s.client = client
	s.model = gm
	return s, nil
}

func (s *GeminiSource) Name() string {
	return fmt.Sprintf("gemini/%s", s.modelName)
}

func (s *GeminiSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *GeminiSource) Complete(ctx context.Context, req models.ChatRequest) (string, error) {
	if s.model == nil {
		return "", missingCredential("GEMINI_API_KEY")
	}

	resp, err := s.model.GenerateContent(ctx, genai.Text(req.Message))
	if err != nil {
		return "", classifyProviderError("Gemini", geminiStatusCode(err), err)
	}

	return extractText(resp), nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	var text strings.Builder
	cand := resp.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return text.String()
}

func geminiStatusCode(err error) int {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}
