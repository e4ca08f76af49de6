// Package chunker splits raw document content into retrieval-sized units.
//
// Dispatch is an exhaustive match over the content kind:
//   - BusinessDoc: semantic segments from an optional boundary-hint
//     collaborator, falling back to greedy paragraph packing
//   - Code: structural boundaries (go/parser for Go, line patterns otherwise)
//   - Checklist: list-item patterns tried in priority order
//   - Generic: fixed-size greedy word packing
//
// Two invariants hold for every kind: splitting is deterministic, and an
// atomic unit larger than the size limit is hard-cut rather than dropped.
package chunker
