// Package pipeline sequences the per-document processing stages and owns
// document status.
//
// One document runs chunk -> embed (in chunk order) -> index append ->
// extract -> graph merge, synchronously within one task. The orchestrator
// is the only component that knows all the others; status transitions
// (PENDING -> PROCESSING -> COMPLETED | FAILED) belong to it exclusively. A
// stage failure after partial progress marks the document FAILED without
// rolling back chunks or vectors already committed; status is the sole
// signal an external retry driver consults.
//
// Multiple documents may process concurrently under a bounded worker pool,
// but there is no cross-document transaction: one document's failure never
// blocks another's progress.
package pipeline
