package types

import "errors"

// Domain errors shared across packages
var (
	ErrUnknownContentKind = errors.New("unknown content kind")
	ErrEmptyContent       = errors.New("content cannot be empty")
	ErrInvalidChunkIndex  = errors.New("chunk index must be >= 0")
	ErrInvalidStatus      = errors.New("invalid document status transition")
)
