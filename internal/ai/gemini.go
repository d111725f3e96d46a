package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiVision calls the Gemini API with the image as inline data.
type GeminiVision struct {
	client *genai.Client
	model  string
}

var _ Vision = (*GeminiVision)(nil)

// NewGeminiVision creates the client. baseURL is only set in tests.
func NewGeminiVision(ctx context.Context, apiKey, baseURL, model string, timeout time.Duration) (*GeminiVision, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiVision{client: client, model: model}, nil
}

func (v *GeminiVision) Describe(ctx context.Context, req Request) (string, error) {
	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: req.MimeType, Data: req.Image}},
				{Text: req.Prompt},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.System}}},
		MaxOutputTokens:   int32(req.MaxTokens),
		ResponseMIMEType:  "application/json",
	}
	resp, err := v.client.Models.GenerateContent(ctx, v.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
