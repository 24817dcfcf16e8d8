package extraction

import (
	"context"

	"github.com/phrazzld/scry-ingest/internal/domain"
)

// Extractor reads a registration document and returns the fields found in it.
//
// Implementations must honor ctx cancellation and must not retry on their
// own; the batch scheduler owns the retry policy.
type Extractor interface {
	Extract(ctx context.Context, doc domain.Document) (*domain.Registration, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, doc domain.Document) (*domain.Registration, error)

// Extract calls f(ctx, doc).
func (f ExtractorFunc) Extract(ctx context.Context, doc domain.Document) (*domain.Registration, error) {
	return f(ctx, doc)
}
