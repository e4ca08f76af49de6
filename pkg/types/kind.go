package types

import "fmt"

// KindTag discriminates the closed set of content kinds.
type KindTag uint8

const (
	TagGeneric KindTag = iota
	TagBusinessDoc
	TagCode
	TagChecklist
)

// ContentKind is a closed tagged variant over the content types the chunker
// and extractor understand. Code carries its language as a payload; use the
// constructors below rather than building the struct directly.
type ContentKind struct {
	tag  KindTag
	lang string
}

// Generic is unstructured text with no boundary awareness.
func Generic() ContentKind { return ContentKind{tag: TagGeneric} }

// BusinessDoc is prose split at semantic or paragraph boundaries.
func BusinessDoc() ContentKind { return ContentKind{tag: TagBusinessDoc} }

// Code is source code in the given language (lowercased, e.g. "go", "python").
func Code(language string) ContentKind {
	return ContentKind{tag: TagCode, lang: language}
}

// Checklist is itemized content (numbered, dashed, bulleted, checkbox).
func Checklist() ContentKind { return ContentKind{tag: TagChecklist} }

// Tag returns the variant discriminator for exhaustive switches.
func (k ContentKind) Tag() KindTag { return k.tag }

// Language returns the code language, empty for non-code kinds.
func (k ContentKind) Language() string { return k.lang }

func (k ContentKind) String() string {
	switch k.tag {
	case TagBusinessDoc:
		return "business_doc"
	case TagCode:
		if k.lang != "" {
			return "code:" + k.lang
		}
		return "code"
	case TagChecklist:
		return "checklist"
	case TagGeneric:
		return "generic"
	default:
		return fmt.Sprintf("unknown(%d)", k.tag)
	}
}

// ParseContentKind maps a wire-level kind name to a ContentKind. The language
// argument is only consulted for "code".
func ParseContentKind(name, language string) (ContentKind, error) {
	switch name {
	case "business_doc", "document":
		return BusinessDoc(), nil
	case "code":
		return Code(language), nil
	case "checklist":
		return Checklist(), nil
	case "generic", "text", "":
		return Generic(), nil
	default:
		return ContentKind{}, fmt.Errorf("%w: %q", ErrUnknownContentKind, name)
	}
}
