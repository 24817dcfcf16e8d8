package ingest

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/phrazzld/scry-ingest/internal/domain"
)

// ResultLine is one JSON line of the results output.
type ResultLine struct {
	ID           string               `json:"id"`
	Path         string               `json:"path,omitempty"`
	Status       batch.ItemStatus     `json:"status"`
	RetryCount   int                  `json:"retry_count"`
	DurationMs   int64                `json:"duration_ms"`
	Error        string               `json:"error,omitempty"`
	Registration *domain.Registration `json:"registration,omitempty"`
}

// WriteResults writes one JSON line per settled item to w, completed items
// first. It returns the number of lines written.
func WriteResults(w io.Writer, groups ...[]batch.WorkItem) (int, error) {
	enc := json.NewEncoder(w)
	written := 0
	for _, items := range groups {
		for _, item := range items {
			if err := enc.Encode(resultLine(item)); err != nil {
				return written, fmt.Errorf("failed to write result for %s: %w", item.ID, err)
			}
			written++
		}
	}
	return written, nil
}

func resultLine(item batch.WorkItem) ResultLine {
	line := ResultLine{
		ID:         item.ID,
		Status:     item.Status,
		RetryCount: item.RetryCount,
		DurationMs: item.ProcessingDurationMs(),
		Error:      item.LastError,
	}
	if res, ok := item.Payload.(Result); ok {
		line.Registration = res.Registration
	}
	if doc, ok := documentOf(item); ok {
		line.Path = doc.RelPath
	}
	return line
}
