package types

import "fmt"

// DocumentStatus tracks a document's position in the processing pipeline.
// Transitions are owned exclusively by the pipeline: PENDING -> PROCESSING ->
// COMPLETED | FAILED. Status is the only signal an external retry driver uses
// to decide whether to re-submit a document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// CanTransition reports whether moving from the current status to next is a
// legal state-machine step.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		// A retry driver may re-submit a failed document.
		return next == StatusProcessing
	default:
		return false
	}
}

// Document is a unit of raw content submitted for processing. Its chunk set
// is replaced wholesale on reprocessing, never patched in place.
type Document struct {
	ID         string
	RawContent string
	Kind       ContentKind
	Status     DocumentStatus
}

// Validate checks the document is acceptable for ingestion.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if d.RawContent == "" {
		return ErrEmptyContent
	}
	return nil
}
