// Package extractor pulls graph-worthy terms out of document content.
//
// Text kinds (business docs, checklists, generic) produce weighted keywords:
// frequency scaled by term length, stopwords removed, top K kept. Go source
// is parsed with go/ast into typed entities (types, functions, methods,
// imports) and structural relations (inherits_from via embedding, has_method,
// imports); other languages get regex-based entity heuristics. Code that
// fails structural parsing degrades to keyword extraction rather than
// failing the document.
package extractor
