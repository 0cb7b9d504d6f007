// Package archive keeps raw statement files in Google Cloud Storage and
// reads statements given as gs:// URIs.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/statement-ledger/internal/logger"
)

const uploadTimeout = 2 * time.Minute

// objects is the slice of the storage API the archive uses.
type objects interface {
	NewWriter(ctx context.Context, bucket, object, contentType string) io.WriteCloser
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

type gcsObjects struct {
	client *storage.Client
}

func (g gcsObjects) NewWriter(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
	w := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

func (g gcsObjects) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return g.client.Bucket(bucket).Object(object).NewReader(ctx)
}

// Archiver writes uploaded statements to a bucket.
type Archiver struct {
	objects objects
	bucket  string
	now     func() time.Time
}

// New creates an Archiver for bucket using client.
func New(client *storage.Client, bucket string) *Archiver {
	return &Archiver{objects: gcsObjects{client: client}, bucket: bucket, now: time.Now}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName returns statements/<YYYY>/<MM>/<batchID>-<filename>, with the
// filename reduced to a safe base name.
func ObjectName(batchID, filename string, at time.Time) string {
	base := unsafeName.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	if base == "" || base == "." || base == "/" || base == "_" {
		base = "statement"
	}
	return fmt.Sprintf("statements/%04d/%02d/%s-%s", at.Year(), int(at.Month()), batchID, base)
}

// Archive uploads data and returns its gs:// URI.
func (a *Archiver) Archive(ctx context.Context, batchID, filename, contentType string, data []byte) (string, error) {
	object := ObjectName(batchID, filename, a.now().UTC())

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.objects.NewWriter(ctx, a.bucket, object, contentType)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: writing %s: %w", object, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalizing %s: %w", object, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", a.bucket, object)
	log := logger.FromContext(ctx)
	log.Info().Str("uri", uri).Int("bytes", len(data)).Msg("archived statement")
	return uri, nil
}

// ParseURI splits gs://bucket/object into its parts.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(uri, "gs://"), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return bucket, object, nil
}

// IsURI reports whether s looks like a gs:// URI.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

// Fetcher reads objects named by gs:// URIs.
type Fetcher struct {
	objects objects
}

// NewFetcher creates a Fetcher using client.
func NewFetcher(client *storage.Client) *Fetcher {
	return &Fetcher{objects: gcsObjects{client: client}}
}

// Fetch downloads the object at uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	r, err := f.objects.NewReader(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("Fetch: opening %s: %w", uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading %s: %w", uri, err)
	}
	return data, nil
}
