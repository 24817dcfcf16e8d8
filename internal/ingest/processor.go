package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/phrazzld/scry-ingest/internal/domain"
	"github.com/phrazzld/scry-ingest/internal/extraction"
)

// Result is the payload of a completed work item.
type Result struct {
	Document     domain.Document      `json:"document"`
	Registration *domain.Registration `json:"registration"`
}

// Processor extracts registration data for one work item at a time.
type Processor struct {
	extractor   extraction.Extractor
	maxFileSize int64
	logger      *slog.Logger
}

// NewProcessor creates a Processor backed by extractor.
func NewProcessor(extractor extraction.Extractor, maxFileSize int64, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		extractor:   extractor,
		maxFileSize: maxFileSize,
		logger:      logger.With("component", "processor"),
	}
}

// Process implements batch.ProcessFunc. Errors the extractor reports as
// permanent are marked with batch.ErrPermanent so they are not retried.
func (p *Processor) Process(ctx context.Context, item batch.WorkItem) (batch.WorkItem, error) {
	doc, ok := documentOf(item)
	if !ok {
		return item, fmt.Errorf("%w: item %s carries no document", batch.ErrPermanent, item.ID)
	}

	if p.maxFileSize > 0 && doc.Size > p.maxFileSize {
		return item, fmt.Errorf("%w: %w: %d bytes", batch.ErrPermanent, domain.ErrDocumentTooLarge, doc.Size)
	}

	reg, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		if extraction.IsPermanent(err) {
			return item, fmt.Errorf("%w: %w", batch.ErrPermanent, err)
		}
		return item, err
	}

	p.logger.DebugContext(ctx, "document processed",
		"item_id", item.ID,
		"path", doc.RelPath,
		"attempt", item.RetryCount)

	item.Payload = Result{Document: doc, Registration: reg}
	return item, nil
}

func documentOf(item batch.WorkItem) (domain.Document, bool) {
	switch p := item.Payload.(type) {
	case domain.Document:
		return p, true
	case *domain.Document:
		if p != nil {
			return *p, true
		}
	case Result:
		return p.Document, true
	}
	return domain.Document{}, false
}
