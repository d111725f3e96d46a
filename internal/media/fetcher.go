// Package media downloads message attachments from the messaging provider.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"masraf/internal/core"
)

// DefaultMimeType is assumed when the response declares no content type.
const DefaultMimeType = "image/jpeg"

// maxMediaBytes bounds a single download.
const maxMediaBytes = 20 << 20

// Credential is one basic-auth pair. A nil *Credential means "no auth".
type Credential struct {
	Username string
	Password string
}

// Media is a downloaded attachment.
type Media struct {
	Data     []byte
	MimeType string
}

// Order of credential candidates.
type Order string

const (
	AuthFirst Order = "auth-first"
	NoneFirst Order = "none-first"
)

// Candidates returns the attempts for the given order. The authenticated
// candidate is only present when both parts of cred are set.
func Candidates(order Order, cred Credential) []*Credential {
	if cred.Username == "" || cred.Password == "" {
		return []*Credential{nil}
	}
	auth := &cred
	if order == NoneFirst {
		return []*Credential{nil, auth}
	}
	return []*Credential{auth, nil}
}

type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a fetcher whose every attempt is bounded by timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// NewFetcherWithClient is used by tests to point at an httptest server.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch tries each candidate in order and returns the first 2xx response.
// When every attempt fails the error wraps core.ErrMediaUnavailable and
// joins the individual failures.
func (f *Fetcher) Fetch(ctx context.Context, url string, candidates []*Credential) (Media, error) {
	if len(candidates) == 0 {
		candidates = []*Credential{nil}
	}
	var errs []error
	for i, cred := range candidates {
		m, err := f.attempt(ctx, url, cred)
		if err == nil {
			slog.DebugContext(ctx, "Media fetched",
				"attempt", i+1,
				"authenticated", cred != nil,
				"mime_type", m.MimeType,
				"bytes", len(m.Data))
			return m, nil
		}
		slog.WarnContext(ctx, "Media fetch attempt failed",
			"attempt", i+1,
			"authenticated", cred != nil,
			"error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return Media{}, fmt.Errorf("%w: %w", core.ErrMediaUnavailable, errors.Join(errs...))
}

func (f *Fetcher) attempt(ctx context.Context, url string, cred *Credential) (Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Media{}, fmt.Errorf("create request: %w", err)
	}
	if cred != nil {
		req.SetBasicAuth(cred.Username, cred.Password)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Media{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Media{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return Media{}, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxMediaBytes {
		return Media{}, fmt.Errorf("media larger than %d bytes", maxMediaBytes)
	}
	return Media{Data: data, MimeType: MimeType(resp.Header.Get("Content-Type"))}, nil
}

// MimeType strips parameters from a Content-Type value and lowercases it,
// falling back to DefaultMimeType.
func MimeType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))
	if mt == "" {
		return DefaultMimeType
	}
	return mt
}

// IsImage reports whether the mime type names an image.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(MimeType(mimeType), "image/")
}

// Extension returns a file extension for the image mime type, "bin" otherwise.
func Extension(mimeType string) string {
	switch MimeType(mimeType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/heic":
		return "heic"
	default:
		return "bin"
	}
}
