package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/phrazzld/scry-ingest/internal/domain"
)

// ErrEmptyDirectory is returned when a scan finds no supported documents.
var ErrEmptyDirectory = errors.New("no supported documents found")

// Scanner discovers documents below a root directory.
type Scanner struct {
	root        string
	maxFileSize int64
	logger      *slog.Logger
}

// NewScanner creates a Scanner for root. Files larger than maxFileSize are
// still returned so that they fail visibly instead of disappearing.
func NewScanner(root string, maxFileSize int64, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		root:        root,
		maxFileSize: maxFileSize,
		logger:      logger.With("component", "scanner", "root", root),
	}
}

// Scan walks the root in lexical order and returns one pending work item per
// supported document. Hidden directories are not entered.
func (s *Scanner) Scan() ([]batch.WorkItem, error) {
	var items []batch.WorkItem
	skipped := 0

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !domain.IsSupported(path) {
			skipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}

		doc, err := domain.NewDocument(s.root, path, info.Size(), s.maxFileSize)
		if err != nil && !errors.Is(err, domain.ErrDocumentTooLarge) {
			return err
		}
		if err != nil {
			s.logger.Warn("document exceeds size limit",
				"path", doc.RelPath,
				"size_bytes", info.Size(),
				"max_bytes", s.maxFileSize)
		}

		items = append(items, batch.NewWorkItem(doc.ID.String(), *doc))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyDirectory, s.root)
	}

	s.logger.Info("scan complete",
		"documents", len(items),
		"ignored_files", skipped)
	return items, nil
}
