package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"masraf/internal/archive"
	"masraf/internal/core"
	"masraf/internal/ledger"
	applog "masraf/internal/log"
	"masraf/internal/media"
)

// Reply texts sent back to the sender.
const (
	MsgHelp = "Merhaba! Fatura, fiş veya banka dekontu fotoğrafı gönder, " +
		"otomatik olarak deftere kaydedeyim.\n\n" +
		"'özet' yazarak son 10 masrafını görebilirsin."
	MsgUnsupportedMedia = "Bu dosya türünü okuyamıyorum, lütfen fotoğraf gönder."
	MsgUnreadableImage  = "Görsel okunamadı, lütfen daha net bir fotoğraf gönder."
	MsgPersistFailure   = "Kaydedilemedi, deftere yazılırken hata oluştu. Lütfen daha sonra tekrar gönder."
	MsgDone             = "İşlem tamamlandı."
)

var summaryKeywords = map[string]bool{
	"summary": true,
	"report":  true,
	"özet":    true,
	"ozet":    true,
	"rapor":   true,
}

// MediaItem is one attachment reference of an inbound message.
type MediaItem struct {
	URL         string
	ContentType string
}

// Inbound is a message received from the messaging provider.
type Inbound struct {
	Sender     string
	Body       string
	AccountSID string
	Media      []MediaItem
}

type Fetcher interface {
	Fetch(ctx context.Context, url string, candidates []*media.Credential) (media.Media, error)
}

type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (core.ExpenseRecord, error)
}

type Archiver interface {
	Store(ctx context.Context, doc archive.Document) (string, error)
}

type PipelineConfig struct {
	// AccountSID is used when the inbound message carries none.
	AccountSID string
	AuthToken  string
	AuthOrder  media.Order
}

// Pipeline turns inbound messages into ledger rows and reply text.
type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	ledger    ledger.Writer
	summary   *SummaryReporter
	archive   Archiver
	cfg       PipelineConfig
	now       func() time.Time
}

func NewPipeline(f Fetcher, e Extractor, l ledger.Ledger, cfg PipelineConfig) *Pipeline {
	if cfg.AuthOrder == "" {
		cfg.AuthOrder = media.AuthFirst
	}
	return &Pipeline{
		fetcher:   f,
		extractor: e,
		ledger:    l,
		summary:   NewSummaryReporter(l),
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithArchive stores every fetched image before extraction.
func (p *Pipeline) WithArchive(a Archiver) *Pipeline {
	p.archive = a
	return p
}

// Handle processes the message and returns the reply text. Without media the
// body is treated as a command; media items are handled one after another and
// their result lines are joined by a blank line.
func (p *Pipeline) Handle(ctx context.Context, in Inbound) string {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentPipeline)
	logger.InfoContext(ctx, "Inbound message",
		applog.FieldSender, in.Sender,
		applog.FieldMediaCount, len(in.Media))

	if len(in.Media) == 0 {
		if IsSummaryRequest(in.Body) {
			return p.summary.Summarize(ctx)
		}
		return MsgHelp
	}

	lines := make([]string, 0, len(in.Media))
	for i, item := range in.Media {
		line := p.processItem(ctx, in, item)
		logger.DebugContext(ctx, "Media item processed", "index", i, applog.FieldMediaType, item.ContentType)
		lines = append(lines, line)
	}
	reply := strings.Join(lines, "\n\n")
	if strings.TrimSpace(reply) == "" {
		return MsgDone
	}
	return reply
}

// IsSummaryRequest reports whether body is one of the summary keywords.
func IsSummaryRequest(body string) bool {
	return summaryKeywords[strings.ToLower(strings.TrimSpace(body))]
}

func (p *Pipeline) processItem(ctx context.Context, in Inbound, item MediaItem) string {
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentPipeline)

	if item.URL == "" || (item.ContentType != "" && !media.IsImage(item.ContentType)) {
		logger.InfoContext(ctx, "Unsupported attachment", applog.FieldMediaType, item.ContentType)
		return MsgUnsupportedMedia
	}

	m, err := p.fetcher.Fetch(ctx, item.URL, p.candidates(in))
	if err != nil {
		logger.WarnContext(ctx, "Media fetch failed", applog.NewFields().
			WithOperation(applog.OpFetch).WithError(err).ToSlice()...)
		return MsgUnreadableImage
	}
	if !media.IsImage(m.MimeType) {
		logger.InfoContext(ctx, "Fetched attachment is not an image", applog.FieldMediaType, m.MimeType)
		return MsgUnsupportedMedia
	}

	if p.archive != nil {
		doc := archive.Document{Data: m.Data, MimeType: m.MimeType, Sender: in.Sender, ReceivedAt: p.now()}
		if _, err := p.archive.Store(ctx, doc); err != nil {
			logger.WarnContext(ctx, "Document archive failed", applog.NewFields().
				WithOperation(applog.OpArchive).WithError(err).ToSlice()...)
		}
	}

	rec, err := p.extractor.Extract(ctx, m.Data, m.MimeType)
	if err != nil {
		logger.WarnContext(ctx, "Extraction failed", applog.NewFields().
			WithOperation(applog.OpExtract).WithError(err).ToSlice()...)
		return MsgUnreadableImage
	}
	rec.Source = in.Sender
	rec = rec.WithDefaults(p.now())

	row, err := p.ledger.Append(ctx, rec)
	if err != nil {
		logger.ErrorContext(ctx, "Ledger append failed", applog.NewFields().
			WithOperation(applog.OpAppend).WithError(err).ToSlice()...)
		return MsgPersistFailure
	}

	logger.InfoContext(ctx, "Expense recorded", applog.NewFields().
		WithOperation(applog.OpAppend).
		WithRow(row, string(rec.Category), core.FormatAmount(rec.Amount)).ToSlice()...)
	return SuccessLine(rec, row)
}

func (p *Pipeline) candidates(in Inbound) []*media.Credential {
	sid := in.AccountSID
	if sid == "" {
		sid = p.cfg.AccountSID
	}
	return media.Candidates(p.cfg.AuthOrder, media.Credential{Username: sid, Password: p.cfg.AuthToken})
}

// SuccessLine describes a recorded expense.
func SuccessLine(rec core.ExpenseRecord, row int) string {
	return fmt.Sprintf("Kaydedildi! %s - %s %s\nSatıcı: %s\nTarih: %s | %s\nÖdeme: %s\nSatır: #%d",
		rec.Category, core.FormatAmount(rec.Amount), rec.Currency,
		rec.Vendor,
		rec.Date, rec.DocumentType,
		rec.PaymentMethod,
		row)
}
