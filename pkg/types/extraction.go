package types

// Keyword is a weighted term extracted from free text.
type Keyword struct {
	Term      string
	Score     float64
	Frequency int
}

// EntityKind classifies typed structural entities extracted from code.
type EntityKind string

const (
	EntityType     EntityKind = "type"
	EntityFunction EntityKind = "function"
	EntityMethod   EntityKind = "method"
	EntityImport   EntityKind = "import"
)

// CodeEntity is a typed structural entity extracted from source code.
type CodeEntity struct {
	Kind       EntityKind
	Name       string
	Signature  string
	DocComment string
	StartLine  int
	EndLine    int
}

// RelationKind classifies structural relations between code entities.
// Relations derive from structural adjacency only, never dataflow analysis.
type RelationKind string

const (
	RelationInheritsFrom RelationKind = "inherits_from"
	RelationHasMethod    RelationKind = "has_method"
	RelationImports      RelationKind = "imports"
)

// CodeRelation links two code entities by name.
type CodeRelation struct {
	Kind RelationKind
	From string
	To   string
}

// Extraction is the output of the entity extractor: keywords for text
// content, typed entities and relations for code. Exactly one of the two
// shapes is populated; code that failed structural parsing degrades to
// keywords.
type Extraction struct {
	Keywords  []Keyword
	Entities  []CodeEntity
	Relations []CodeRelation
}

// Structural reports whether the extraction carries typed code entities.
func (e *Extraction) Structural() bool {
	return len(e.Entities) > 0 || len(e.Relations) > 0
}

// TermCounts flattens the extraction into per-term in-document occurrence
// counts, the shape the graph builder consumes. Keywords contribute their
// measured frequency; code entities count once per definition.
func (e *Extraction) TermCounts() map[string]int {
	counts := make(map[string]int, len(e.Keywords)+len(e.Entities))
	for _, kw := range e.Keywords {
		counts[kw.Term] += kw.Frequency
	}
	for _, ent := range e.Entities {
		counts[ent.Name]++
	}
	return counts
}

// EntityNames returns the set of entity names, used to tag graph nodes with
// the entity kind instead of the keyword kind.
func (e *Extraction) EntityNames() map[string]bool {
	if len(e.Entities) == 0 {
		return nil
	}
	names := make(map[string]bool, len(e.Entities))
	for _, ent := range e.Entities {
		names[ent.Name] = true
	}
	return names
}
