package chunker

import (
	"regexp"
	"strings"
)

// itemPatterns are tried in priority order; the first pattern yielding more
// than one item wins. Checkbox precedes dashed so "- [ ]" items are not
// claimed by the dash pattern with the box glued to the text.
var itemPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*\d+[.)]\s+`),           // numbered: 1. / 2)
	regexp.MustCompile(`^\s*[-*]?\s*\[[ xX]\]\s+`), // checkbox: - [ ] / [x]
	regexp.MustCompile(`^\s*-\s+`),                 // dashed
	regexp.MustCompile(`^\s*[*•]\s+`),              // bulleted
	regexp.MustCompile(`^\s*\[[^\]\n]+\]`),         // bracket heading: [Setup]
}

// splitChecklist splits itemized content on the winning item pattern and
// packs items greedily, never splitting one item across chunks. Content
// matching no pattern falls back to paragraph splitting.
func (c *Chunker) splitChecklist(content string) []string {
	for _, re := range itemPatterns {
		items := splitItems(content, re)
		if len(items) > 1 {
			return packUnits(items, "\n", c.maxSize)
		}
	}
	return c.packParagraphs(content)
}

// splitItems groups lines into items: a line matching the pattern starts a
// new item, continuation lines belong to the current one. Leading lines
// before the first match form their own preamble item.
func splitItems(content string, re *regexp.Regexp) []string {
	lines := strings.Split(content, "\n")
	var items []string
	var cur []string

	flush := func() {
		item := strings.TrimRight(strings.Join(cur, "\n"), " \t\n")
		if strings.TrimSpace(item) != "" {
			items = append(items, item)
		}
		cur = nil
	}

	for _, line := range lines {
		if re.MatchString(line) && len(cur) > 0 {
			flush()
		}
		cur = append(cur, line)
	}
	flush()

	return items
}
