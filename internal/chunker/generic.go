package chunker

import "strings"

// splitGeneric packs whitespace-separated words up to the size limit with no
// structural awareness.
func (c *Chunker) splitGeneric(content string) []string {
	return packUnits(strings.Fields(content), " ", c.maxSize)
}
