package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

type stubHinter struct {
	segments []string
	err      error
	calls    int
}

func (s *stubHinter) SuggestSegments(_ context.Context, _ string, _ int) ([]string, error) {
	s.calls++
	return s.segments, s.err
}

func TestSplit_EmptyContent(t *testing.T) {
	c := New(DefaultConfig())

	for _, kind := range []types.ContentKind{
		types.Generic(), types.BusinessDoc(), types.Code("go"), types.Checklist(),
	} {
		chunks, err := c.Split(context.Background(), "   \n\t ", kind)
		require.NoError(t, err)
		assert.Empty(t, chunks, "kind %s", kind)
	}
}

func TestSplit_WithinLimitYieldsOneChunk(t *testing.T) {
	c := New(Config{MaxChunkSize: 100})

	content := "short business document"
	chunks, err := c.Split(context.Background(), content, types.BusinessDoc())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, content, chunks[0])
}

func TestSplit_Deterministic(t *testing.T) {
	c := New(Config{MaxChunkSize: 50})
	content := strings.Repeat("alpha beta gamma delta epsilon ", 20)

	first, err := c.Split(context.Background(), content, types.Generic())
	require.NoError(t, err)
	second, err := c.Split(context.Background(), content, types.Generic())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// A 5,000-character document with the hint service unavailable packs into
// exactly 3 chunks of paragraphs, each within the 2,000 byte limit.
func TestSplitBusinessDoc_ParagraphFallback(t *testing.T) {
	paragraphs := make([]string, 10)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("a", 490)
	}
	content := strings.Join(paragraphs, "\n\n")
	require.GreaterOrEqual(t, len(content), 4900)

	hinter := &stubHinter{err: errors.New("service unavailable")}
	c := New(Config{MaxChunkSize: 2000}, WithSegmentHinter(hinter))

	chunks, err := c.Split(context.Background(), content, types.BusinessDoc())
	require.NoError(t, err)
	assert.Equal(t, 1, hinter.calls)
	require.Len(t, chunks, 3)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch), 2000)
	}
}

func TestSplitBusinessDoc_UsesHintedSegments(t *testing.T) {
	hinter := &stubHinter{segments: []string{"first segment", "second segment", "third"}}
	c := New(Config{MaxChunkSize: 50}, WithSegmentHinter(hinter))

	content := strings.Repeat("long prose ", 20)
	chunks, err := c.Split(context.Background(), content, types.BusinessDoc())
	require.NoError(t, err)
	assert.Equal(t, []string{"first segment", "second segment", "third"}, chunks)
}

func TestSplitBusinessDoc_TooFewSegmentsFallsBack(t *testing.T) {
	hinter := &stubHinter{segments: []string{"only one"}}
	c := New(Config{MaxChunkSize: 30}, WithSegmentHinter(hinter))

	content := "para one\n\npara two\n\npara three\n\npara four"
	chunks, err := c.Split(context.Background(), content, types.BusinessDoc())
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	assert.NotContains(t, chunks, "only one")
}

func TestSplitCode_GoDeclarationBoundaries(t *testing.T) {
	content := `package demo

func First() int {
	return 1
}

func Second() int {
	return 2
}

type Thing struct {
	Name string
}
`
	c := New(Config{MaxChunkSize: 500})
	chunks, err := c.Split(context.Background(), content, types.Code("go"))
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Contains(t, chunks[0], "package demo")
	assert.Contains(t, chunks[1], "func First")
	assert.Contains(t, chunks[2], "func Second")
	assert.Contains(t, chunks[3], "type Thing")
}

func TestSplitCode_PythonPatternBoundaries(t *testing.T) {
	content := `def first():
    return 1

def second():
    return 2

class Thing:
    pass
`
	c := New(Config{MaxChunkSize: 500})
	chunks, err := c.Split(context.Background(), content, types.Code("python"))
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Contains(t, chunks[0], "def first")
	assert.Contains(t, chunks[2], "class Thing")
}

func TestSplitCode_OversizedUnitForcedCut(t *testing.T) {
	body := make([]string, 40)
	for i := range body {
		body[i] = "\tcallSomething()"
	}
	content := "func huge() {\n" + strings.Join(body, "\n") + "\n}"

	c := New(Config{MaxChunkSize: 120})
	chunks, err := c.Split(context.Background(), content, types.Code("go"))
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch), 120)
	}
}

func TestSplitChecklist_PatternPriority(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{
			name:    "numbered",
			content: "1. first task\n2. second task\n3. third task",
			want:    3,
		},
		{
			name:    "dashed",
			content: "- buy milk\n- walk dog",
			want:    2,
		},
		{
			name:    "checkbox",
			content: "- [ ] open item\n- [x] done item",
			want:    2,
		},
		{
			name:    "bracket headings",
			content: "[Setup] install deps\n[Build] run make",
			want:    2,
		},
	}

	c := New(Config{MaxChunkSize: 20}) // small enough to force one item per chunk
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := c.Split(context.Background(), tt.content, types.Checklist())
			require.NoError(t, err)
			assert.Len(t, chunks, tt.want)
		})
	}
}

func TestSplitChecklist_ItemsNeverSplit(t *testing.T) {
	content := "1. " + strings.Repeat("x", 40) + "\n2. " + strings.Repeat("y", 40) + "\n3. short"
	c := New(Config{MaxChunkSize: 60})

	chunks, err := c.Split(context.Background(), content, types.Checklist())
	require.NoError(t, err)
	for _, ch := range chunks {
		// Each chunk holds whole items only.
		assert.False(t, strings.HasPrefix(ch, "x"))
		assert.False(t, strings.HasPrefix(ch, "y"))
	}
}

func TestSplitChecklist_NoPatternFallsBackToParagraphs(t *testing.T) {
	content := "plain paragraph one\n\nplain paragraph two"
	c := New(Config{MaxChunkSize: 25})

	chunks, err := c.Split(context.Background(), content, types.Checklist())
	require.NoError(t, err)
	assert.Equal(t, []string{"plain paragraph one", "plain paragraph two"}, chunks)
}

func TestSplitGeneric_WordPacking(t *testing.T) {
	content := "one two three four five six"
	c := New(Config{MaxChunkSize: 13})

	chunks, err := c.Split(context.Background(), content, types.Generic())
	require.NoError(t, err)
	assert.Equal(t, []string{"one two three", "four five six"}, chunks)
}

func TestHardCut_AtomicOversizedUnit(t *testing.T) {
	word := strings.Repeat("z", 25)
	c := New(Config{MaxChunkSize: 10})

	chunks, err := c.Split(context.Background(), word, types.Generic())
	require.NoError(t, err)
	assert.Equal(t, []string{strings.Repeat("z", 10), strings.Repeat("z", 10), strings.Repeat("z", 5)}, chunks)
}
