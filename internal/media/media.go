// Package media stores uploaded files on local disk and classifies them by sniffed content type.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured limit.
	ErrTooLarge = errors.New("file exceeds upload limit")
	// ErrUnsupportedType is returned for content that is not an image, video, audio or document.
	ErrUnsupportedType = errors.New("unsupported media type")
)

// Kind is the coarse media family.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
)

var documentTypes = []string{
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/rtf",
	"application/vnd.ms-excel",
	"application/vnd.ms-powerpoint",
}

// Classify maps a MIME type to its Kind.
func Classify(contentType string) (Kind, bool) {
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	switch {
	case base == "image/svg+xml":
		// SVG can carry script and uploads are served from the API origin.
		return "", false
	case strings.HasPrefix(base, "image/"):
		return KindImage, true
	case strings.HasPrefix(base, "video/"):
		return KindVideo, true
	case strings.HasPrefix(base, "audio/"):
		return KindAudio, true
	case strings.HasPrefix(base, "application/vnd.openxmlformats-officedocument."),
		strings.HasPrefix(base, "application/vnd.oasis.opendocument."):
		return KindDocument, true
	}
	for _, t := range documentTypes {
		if base == t {
			return KindDocument, true
		}
	}
	return "", false
}

// Media describes a stored upload.
type Media struct {
	Type        Kind   `json:"type"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// LocalStore writes uploads into a directory served under baseURL.
type LocalStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewLocalStore ensures dir exists.
func NewLocalStore(dir, baseURL string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}, nil
}

// Dir returns the storage directory.
func (s *LocalStore) Dir() string { return s.dir }

// MaxBytes returns the upload limit.
func (s *LocalStore) MaxBytes() int64 { return s.maxBytes }

// Save sniffs, classifies and stores body under a generated name keeping the detected extension.
func (s *LocalStore) Save(ctx context.Context, body io.Reader) (*Media, error) {
	raw, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detected := mimetype.Detect(raw)
	kind, ok := Classify(detected.String())
	if !ok {
		return nil, fmt.Errorf("%s: %w", detected.String(), ErrUnsupportedType)
	}

	name := uuid.NewString() + detected.Extension()
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, bytes.NewReader(raw)); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	return &Media{
		Type:        kind,
		URL:         s.baseURL + "/" + name,
		Filename:    name,
		ContentType: detected.String(),
		Size:        int64(len(raw)),
	}, nil
}
