package chunker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

const (
	// DefaultMaxChunkSize is the target maximum chunk size in bytes.
	DefaultMaxChunkSize = 2000

	// MinHintSegments is the minimum segment count a boundary hint must
	// return to be trusted over paragraph packing.
	MinHintSegments = 2
)

// SegmentHinter is the optional external boundary-hint collaborator. It
// suggests semantic segment boundaries for long prose. Implementations own
// their per-call timeout policy; the chunker only reacts to the result.
type SegmentHinter interface {
	SuggestSegments(ctx context.Context, text string, maxSize int) ([]string, error)
}

// Config contains chunker configuration.
type Config struct {
	MaxChunkSize int
}

// DefaultConfig returns the default chunker configuration.
func DefaultConfig() Config {
	return Config{MaxChunkSize: DefaultMaxChunkSize}
}

// Chunker splits raw content into retrieval-sized units per content kind.
type Chunker struct {
	maxSize int
	hinter  SegmentHinter
	logger  *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSegmentHinter attaches the optional boundary-hint collaborator.
func WithSegmentHinter(h SegmentHinter) Option {
	return func(c *Chunker) { c.hinter = h }
}

// WithLogger sets the structured logger used for degradation events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chunker) { c.logger = l }
}

// New creates a Chunker.
func New(cfg Config, opts ...Option) *Chunker {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	c := &Chunker{
		maxSize: cfg.MaxChunkSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxChunkSize returns the configured chunk size limit.
func (c *Chunker) MaxChunkSize() int { return c.maxSize }

// Split divides content into an ordered list of chunk contents. Dispatch is
// exhaustive over the content kind; empty content yields an empty list.
// Splitting is deterministic: the same content and configuration always
// produce the same chunks.
func (c *Chunker) Split(ctx context.Context, content string, kind types.ContentKind) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	switch kind.Tag() {
	case types.TagBusinessDoc:
		return c.splitBusinessDoc(ctx, content), nil
	case types.TagCode:
		return c.splitCode(content, kind.Language()), nil
	case types.TagChecklist:
		return c.splitChecklist(content), nil
	case types.TagGeneric:
		return c.splitGeneric(content), nil
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownContentKind, kind)
	}
}

// hardCut slices text at the size limit with no boundary awareness. Used as
// the last resort for atomic units larger than the limit.
func hardCut(text string, maxSize int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}
	cuts := make([]string, 0, len(text)/maxSize+1)
	for len(text) > maxSize {
		cuts = append(cuts, text[:maxSize])
		text = text[maxSize:]
	}
	if text != "" {
		cuts = append(cuts, text)
	}
	return cuts
}

// packUnits greedily accumulates units into chunks joined by sep, cutting
// before a unit that would push the chunk past maxSize. A single unit larger
// than maxSize is hard-cut rather than dropped; units are otherwise never
// split.
func packUnits(units []string, sep string, maxSize int) []string {
	var chunks []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, unit := range units {
		if unit == "" {
			continue
		}
		if len(unit) > maxSize {
			flush()
			chunks = append(chunks, hardCut(unit, maxSize)...)
			continue
		}
		extra := len(unit)
		if cur.Len() > 0 {
			extra += len(sep)
		}
		if cur.Len()+extra > maxSize {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(unit)
	}
	flush()

	return chunks
}
