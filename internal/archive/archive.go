// Package archive keeps a copy of every received document in Cloud Storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"masraf/internal/media"
)

// Document is one received attachment.
type Document struct {
	Data       []byte
	MimeType   string
	Sender     string
	ReceivedAt time.Time
}

// GCS uploads documents to a bucket using Application Default Credentials.
type GCS struct {
	client *storage.Client
	bucket string
	newID  func() string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, newID: uuid.NewString}, nil
}

// Store uploads the document and returns its gs:// URI.
func (g *GCS) Store(ctx context.Context, doc Document) (string, error) {
	name := ObjectName(doc.ReceivedAt, g.newID(), doc.MimeType)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = media.MimeType(doc.MimeType)
	w.Metadata = map[string]string{"sender": doc.Sender}
	if _, err := io.Copy(w, bytes.NewReader(doc.Data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy document to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	uri := URI(g.bucket, name)
	slog.InfoContext(ctx, "Document archived", "uri", uri, "bytes", len(doc.Data))
	return uri, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// ObjectName lays documents out by day: documents/YYYY/MM/DD/<id>.<ext>.
func ObjectName(at time.Time, id, mimeType string) string {
	return fmt.Sprintf("documents/%s/%s.%s", at.Format("2006/01/02"), id, media.Extension(mimeType))
}

func URI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}
