package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicAudioPrefix is the stable URL prefix under which stored recordings
// remain retrievable for the lifetime of their analysis record.
const PublicAudioPrefix = "/uploads/audio/"

// AudioStore persists uploaded recordings. Save returns the stable relative
// path recorded on the analysis row.
type AudioStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// Opener is an optional capability for stores that can stream a recording
// back directly (disk-backed storage).
type Opener interface {
	Open(name string) (io.ReadCloser, error)
}

// URLSigner is an optional capability for stores that serve recordings via
// pre-signed URLs (object storage).
type URLSigner interface {
	PresignGet(ctx context.Context, name string, expiry time.Duration) (string, error)
}

// NewAudioFilename builds a collision-resistant name from the upload time
// and a random suffix, keeping the original extension (mp3 when absent).
func NewAudioFilename(original string, now time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(original), "."))
	if ext == "" {
		ext = "mp3"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("analysis_%s_%s.%s", now.Format("20060102_150405"), suffix, ext)
}
