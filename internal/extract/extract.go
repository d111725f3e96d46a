// Package extract turns a document photo into an expense record using a
// vision model.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"masraf/internal/ai"
	"masraf/internal/core"
)

// Reply keys of the model's JSON object.
const (
	keyDate          = "tarih"
	keyTime          = "saat"
	keyCategory      = "kategori"
	keyDescription   = "aciklama"
	keyAmount        = "tutar"
	keyCurrency      = "para_birimi"
	keyDocumentType  = "belge_turu"
	keyVendor        = "satici"
	keyTaxID         = "vergi_no"
	keyVATAmount     = "kdv_tutari"
	keyPaymentMethod = "odeme_yontemi"
	keyNotes         = "notlar"
)

// Date layouts tried in order before falling back to the capture date.
var dateLayouts = []string{core.DateLayout, "02.01.2006", "02/01/2006", "2006/01/02"}

type Extractor struct {
	vision    ai.Vision
	maxTokens int
	now       func() time.Time
}

func New(vision ai.Vision, maxTokens int) *Extractor {
	return &Extractor{vision: vision, maxTokens: maxTokens, now: time.Now}
}

// Extract sends the image to the model and returns the normalized record.
// Failures wrap core.ErrModelUnreachable or core.ErrMalformedResponse.
// No retries are made.
func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) (core.ExpenseRecord, error) {
	reply, err := e.vision.Describe(ctx, ai.Request{
		System:    SystemPrompt,
		Prompt:    UserPrompt,
		Image:     image,
		MimeType:  mimeType,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		if errors.Is(err, ai.ErrEmptyReply) {
			return core.ExpenseRecord{}, fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
		}
		return core.ExpenseRecord{}, fmt.Errorf("%w: %w", core.ErrModelUnreachable, err)
	}
	slog.DebugContext(ctx, "Model reply received", "chars", len(reply))

	rec, err := Parse(reply, e.now())
	if err != nil {
		slog.WarnContext(ctx, "Model reply could not be parsed", "error", err, "reply", truncate(reply, 200))
		return core.ExpenseRecord{}, err
	}
	return rec, nil
}

// Parse decodes a raw model reply and normalizes it against now.
func Parse(reply string, now time.Time) (core.ExpenseRecord, error) {
	clean := CleanModelJSON(reply)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: %w", core.ErrMalformedResponse, err)
	}
	if fields == nil {
		return core.ExpenseRecord{}, fmt.Errorf("%w: reply is not a JSON object", core.ErrMalformedResponse)
	}
	return Normalize(fields, now), nil
}

// CleanModelJSON removes a Markdown code fence, with or without a language
// tag, and any text around the outermost JSON object.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "[") {
		return s
	}
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

// Normalize maps reply fields onto an ExpenseRecord. Unknown enum values
// fall back to their "other" variant, missing date and time come from now,
// missing currency is TRY and missing amounts stay absent.
func Normalize(fields map[string]json.RawMessage, now time.Time) core.ExpenseRecord {
	str := func(key string) string { return rawString(fields[key]) }

	rec := core.ExpenseRecord{
		Date:          normalizeDate(str(keyDate)),
		Time:          str(keyTime),
		Category:      core.ParseCategory(str(keyCategory)),
		Description:   str(keyDescription),
		Amount:        rawAmount(fields[keyAmount]),
		Currency:      str(keyCurrency),
		DocumentType:  core.ParseDocumentType(str(keyDocumentType)),
		Vendor:        str(keyVendor),
		TaxID:         str(keyTaxID),
		VATAmount:     rawAmount(fields[keyVATAmount]),
		PaymentMethod: core.ParsePaymentMethod(str(keyPaymentMethod)),
		Notes:         str(keyNotes),
	}
	return rec.WithDefaults(now)
}

func normalizeDate(s string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(core.DateLayout)
		}
	}
	return s
}

// rawString reads a JSON string, number or bool as text; null and objects are empty.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{', '[':
		return ""
	default:
		return string(raw)
	}
}

// rawAmount reads a JSON number exactly, or a numeric string leniently.
func rawAmount(raw json.RawMessage) decimal.NullDecimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}
	}
	if raw[0] == '"' {
		return core.ParseAmount(rawString(raw))
	}
	if _, err := strconv.ParseFloat(string(raw), 64); err != nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
