// Package ai talks to vision-capable language models.
package ai

import (
	"context"
	"errors"
)

// Request is one image plus instructions.
type Request struct {
	System    string
	Prompt    string
	Image     []byte
	MimeType  string
	MaxTokens int
}

// Vision returns the model's raw text reply for an image request.
type Vision interface {
	Describe(ctx context.Context, req Request) (string, error)
}

// ErrEmptyReply is returned when the model answers with no text.
var ErrEmptyReply = errors.New("empty reply from model")
