package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk is a retrieval-sized content unit derived from one document.
// Chunks are immutable once created; Index is unique and contiguous within
// the owning document.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Index      int
	Metadata   map[string]string
}

// Metadata keys stamped onto chunks and carried into the vector index.
const (
	MetaDocumentID = "document_id"
	MetaKind       = "kind"
	MetaChunkIndex = "chunk_index"
	MetaHash       = "content_hash"
)

// ContentHash returns the hex SHA-256 of the chunk content, used for
// dedup metadata and cache keys.
func (c *Chunk) ContentHash() string {
	sum := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(sum[:])
}

// Validate checks structural integrity of the chunk.
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return ErrEmptyContent
	}
	if c.Index < 0 {
		return ErrInvalidChunkIndex
	}
	if c.DocumentID == "" {
		return fmt.Errorf("chunk %s: document id is required", c.ID)
	}
	return nil
}
