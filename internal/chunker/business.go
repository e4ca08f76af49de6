package chunker

import (
	"context"
	"regexp"
	"strings"
)

var paragraphSep = regexp.MustCompile(`\n[ \t]*\n`)

// splitBusinessDoc splits prose. Content within the size limit stays whole.
// Longer content asks the boundary-hint collaborator for semantic segments;
// a failed, absent, or degenerate hint falls back to greedy paragraph
// packing. The fallback is silent toward the caller but logged.
func (c *Chunker) splitBusinessDoc(ctx context.Context, content string) []string {
	if len(content) <= c.maxSize {
		return []string{content}
	}

	if c.hinter != nil {
		segments, err := c.hinter.SuggestSegments(ctx, content, c.maxSize)
		if err == nil && len(segments) >= MinHintSegments {
			return clampSegments(segments, c.maxSize)
		}
		c.logger.Warn("boundary hint unavailable, packing paragraphs",
			"error", err, "segments", len(segments))
	}

	return c.packParagraphs(content)
}

// clampSegments enforces the size limit on hinted segments. The hint service
// is trusted for boundaries but not for sizes.
func clampSegments(segments []string, maxSize int) []string {
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		out = append(out, hardCut(seg, maxSize)...)
	}
	return out
}

// packParagraphs accumulates blank-line-delimited paragraphs until adding
// the next would exceed the size limit, then cuts.
func (c *Chunker) packParagraphs(content string) []string {
	paragraphs := paragraphSep.Split(content, -1)
	for i, p := range paragraphs {
		paragraphs[i] = strings.TrimSpace(p)
	}
	return packUnits(paragraphs, "\n\n", c.maxSize)
}
