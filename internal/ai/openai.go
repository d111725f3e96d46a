package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT4o

// OpenAIVision calls any OpenAI-compatible chat completions endpoint
// (OpenAI, OpenRouter, a local gateway) with the image as a data URL.
type OpenAIVision struct {
	client *openai.Client
	model  string
}

var _ Vision = (*OpenAIVision)(nil)

func NewOpenAIVision(apiKey, baseURL, model string, timeout time.Duration) *OpenAIVision {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: timeout}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIVision{client: openai.NewClientWithConfig(config), model: model}
}

func (v *OpenAIVision) Describe(ctx context.Context, req Request) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.MimeType, base64.StdEncoding.EncodeToString(req.Image))
	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     v.model,
		MaxTokens: req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.System,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
					{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}
