package chunker

import (
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

// boundaryPatterns holds line-level structural start markers per language,
// used when no structural parser is available (or when parsing fails).
var boundaryPatterns = map[string][]*regexp.Regexp{
	"go": {
		regexp.MustCompile(`^func\s`),
		regexp.MustCompile(`^type\s`),
		regexp.MustCompile(`^(var|const)\s*\(`),
	},
	"python": {
		regexp.MustCompile(`^(async\s+)?def\s`),
		regexp.MustCompile(`^class\s`),
	},
	"javascript": {
		regexp.MustCompile(`^(export\s+)?(default\s+)?function\s`),
		regexp.MustCompile(`^(export\s+)?class\s`),
		regexp.MustCompile(`^(export\s+)?const\s+\w+\s*=\s*(async\s*)?\(`),
	},
	"typescript": {
		regexp.MustCompile(`^(export\s+)?(default\s+)?function\s`),
		regexp.MustCompile(`^(export\s+)?(abstract\s+)?class\s`),
		regexp.MustCompile(`^(export\s+)?interface\s`),
		regexp.MustCompile(`^(export\s+)?const\s+\w+\s*=\s*(async\s*)?\(`),
	},
	"java": {
		regexp.MustCompile(`^\s*(public|private|protected)\s+(static\s+)?(final\s+)?(abstract\s+)?(class|interface|enum)\s`),
		regexp.MustCompile(`^\s{0,8}(public|private|protected)\s+[\w<>\[\]]+\s+\w+\s*\(`),
	},
}

// genericCodePatterns is the default marker set for unrecognized languages.
var genericCodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(async\s+)?(func|def|function)\s`),
	regexp.MustCompile(`^(export\s+)?(class|interface|struct|type)\s`),
}

// splitCode applies language-specific structural boundary detection. Go gets
// real parse-tree declaration offsets; everything else (and Go sources that
// fail to parse) uses line-pattern markers. Lines accumulate until the next
// boundary or until the size limit forces a cut mid-unit.
func (c *Chunker) splitCode(content, language string) []string {
	lines := strings.Split(content, "\n")

	if strings.ToLower(language) == "go" {
		if boundaries, ok := goDeclBoundaries(content); ok {
			return c.splitAtLines(lines, boundaries)
		}
		c.logger.Debug("go parse failed, using pattern boundaries")
	}

	patterns, ok := boundaryPatterns[strings.ToLower(language)]
	if !ok {
		patterns = genericCodePatterns
	}

	boundaries := make(map[int]bool)
	for i, line := range lines {
		for _, re := range patterns {
			if re.MatchString(line) {
				boundaries[i] = true
				break
			}
		}
	}
	return c.splitAtLines(lines, boundaries)
}

// goDeclBoundaries parses Go source and returns the set of 0-based line
// indices where top-level declarations start.
func goDeclBoundaries(content string) (map[int]bool, bool) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "src.go", content, 0)
	if err != nil || file == nil {
		return nil, false
	}
	boundaries := make(map[int]bool, len(file.Decls))
	for _, decl := range file.Decls {
		pos := fset.Position(decl.Pos())
		boundaries[pos.Line-1] = true
	}
	return boundaries, true
}

// splitAtLines accumulates lines into chunks, cutting at boundary lines and
// whenever the accumulated size would exceed the limit (forced mid-unit cut
// for oversized units).
func (c *Chunker) splitAtLines(lines []string, boundaries map[int]bool) []string {
	var chunks []string
	var cur []string
	curLen := 0

	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, "\n"))
			cur = nil
			curLen = 0
		}
	}

	for i, line := range lines {
		if boundaries[i] && curLen > 0 {
			flush()
		}
		lineLen := len(line)
		if curLen > 0 {
			lineLen++ // joining newline
		}
		if curLen+lineLen > c.maxSize && curLen > 0 {
			flush()
			lineLen = len(line)
		}
		if lineLen > c.maxSize {
			flush()
			chunks = append(chunks, hardCut(line, c.maxSize)...)
			continue
		}
		cur = append(cur, line)
		curLen += lineLen
	}
	flush()

	return dropBlankChunks(chunks)
}

func dropBlankChunks(chunks []string) []string {
	out := chunks[:0]
	for _, ch := range chunks {
		if strings.TrimSpace(ch) != "" {
			out = append(out, ch)
		}
	}
	return out
}
