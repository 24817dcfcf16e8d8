package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentNamespace seeds the name-based ids of documents, so the same
// relative path always maps to the same id across runs.
var DocumentNamespace = uuid.MustParse("6f1c9d2e-4b7a-5e3f-9a21-0c8d4e6b7f10")

// Common validation errors for Document
var (
	ErrEmptyDocumentPath = errors.New("document path cannot be empty")
	ErrInvalidDocumentID = errors.New("document ID does not match its path")
)

// supportedTypes maps lower-case extensions to MIME types.
var supportedTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".pdf":  "application/pdf",
}

// Document is a file queued for extraction.
type Document struct {
	ID       uuid.UUID `json:"id"`
	Path     string    `json:"path"`
	RelPath  string    `json:"rel_path"`
	MIMEType string    `json:"mime_type"`
	Size     int64     `json:"size"`
	FoundAt  time.Time `json:"found_at"`
}

// DocumentID returns the stable id for a path relative to the batch root.
func DocumentID(relPath string) uuid.UUID {
	return uuid.NewSHA1(DocumentNamespace, []byte(filepath.ToSlash(relPath)))
}

// IsSupported reports whether the file extension is one the extractor reads.
func IsSupported(path string) bool {
	_, ok := supportedTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// NewDocument creates a Document for path found under root.
// Returns an error if the file type is unsupported or exceeds maxSize.
func NewDocument(root, path string, size, maxSize int64) (*Document, error) {
	if path == "" {
		return nil, ErrEmptyDocumentPath
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s relative to %s: %w", path, root, err)
	}

	mimeType, ok := supportedTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, filepath.Ext(path))
	}

	doc := &Document{
		ID:       DocumentID(rel),
		Path:     path,
		RelPath:  filepath.ToSlash(rel),
		MIMEType: mimeType,
		Size:     size,
		FoundAt:  time.Now().UTC(),
	}

	if maxSize > 0 && size > maxSize {
		return doc, fmt.Errorf("%w: %d bytes exceeds %d", ErrDocumentTooLarge, size, maxSize)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks if the Document has valid data.
func (d *Document) Validate() error {
	if d.Path == "" {
		return ErrEmptyDocumentPath
	}
	if d.ID != DocumentID(d.RelPath) {
		return ErrInvalidDocumentID
	}
	if _, ok := supportedTypes[strings.ToLower(filepath.Ext(d.Path))]; !ok {
		return ErrUnsupportedDocument
	}
	return nil
}
