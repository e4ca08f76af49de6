package extractor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

// DefaultMaxKeywords is the number of top-scored keywords kept per document.
const DefaultMaxKeywords = 20

// Config holds extractor configuration.
type Config struct {
	// MaxKeywords caps the keyword list for text extractions. Values
	// below 1 use DefaultMaxKeywords.
	MaxKeywords int
}

// DefaultConfig returns the standard extractor configuration.
func DefaultConfig() Config {
	return Config{MaxKeywords: DefaultMaxKeywords}
}

// Extractor derives keywords or typed code entities from document content.
type Extractor struct {
	maxKeywords int
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for degradation events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// New creates an Extractor.
func New(cfg Config, opts ...Option) *Extractor {
	e := &Extractor{
		maxKeywords: cfg.MaxKeywords,
		logger:      slog.Default(),
	}
	if e.maxKeywords < 1 {
		e.maxKeywords = DefaultMaxKeywords
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract dispatches on the content kind. Code content goes through the
// structural path first and falls back to keywords when parsing fails; all
// other kinds extract keywords directly. Empty content yields an empty
// extraction, never an error.
func (e *Extractor) Extract(_ context.Context, content string, kind types.ContentKind) (*types.Extraction, error) {
	if strings.TrimSpace(content) == "" {
		return &types.Extraction{}, nil
	}

	if kind.Tag() == types.TagCode {
		extraction, err := e.extractCode(content, kind.Language())
		if err != nil {
			e.logger.Warn("structural extraction failed, degrading to keywords",
				"language", kind.Language(), "error", err)
		} else if extraction.Structural() {
			return extraction, nil
		}
	}

	return &types.Extraction{Keywords: e.extractKeywords(content)}, nil
}
