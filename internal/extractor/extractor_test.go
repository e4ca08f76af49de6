package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

func TestExtract_EmptyContent(t *testing.T) {
	e := New(DefaultConfig())

	extraction, err := e.Extract(context.Background(), "   \n ", types.BusinessDoc())
	require.NoError(t, err)
	assert.Empty(t, extraction.Keywords)
	assert.Empty(t, extraction.Entities)
}

func TestExtractKeywords_StopwordsAndShortTermsRemoved(t *testing.T) {
	e := New(DefaultConfig())

	extraction, err := e.Extract(context.Background(),
		"the deployment pipeline and the deployment schedule", types.BusinessDoc())
	require.NoError(t, err)

	terms := make(map[string]int)
	for _, kw := range extraction.Keywords {
		terms[kw.Term] = kw.Frequency
	}
	assert.Equal(t, 2, terms["deployment"])
	assert.Equal(t, 1, terms["pipeline"])
	assert.NotContains(t, terms, "the")
	assert.NotContains(t, terms, "and")
}

func TestExtractKeywords_FrequencyDominatesScore(t *testing.T) {
	e := New(DefaultConfig())

	content := strings.Repeat("kubernetes ", 5) + "docker"
	extraction, err := e.Extract(context.Background(), content, types.Generic())
	require.NoError(t, err)
	require.NotEmpty(t, extraction.Keywords)
	assert.Equal(t, "kubernetes", extraction.Keywords[0].Term)
	assert.Equal(t, 5, extraction.Keywords[0].Frequency)
}

func TestExtractKeywords_TopKCap(t *testing.T) {
	e := New(Config{MaxKeywords: 3})

	content := "alpha bravo charlie delta echo foxtrot golf hotel"
	extraction, err := e.Extract(context.Background(), content, types.Generic())
	require.NoError(t, err)
	assert.Len(t, extraction.Keywords, 3)
}

func TestExtractKeywords_Deterministic(t *testing.T) {
	e := New(DefaultConfig())
	content := "planning review planning budget review budget planning"

	first, err := e.Extract(context.Background(), content, types.Checklist())
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), content, types.Checklist())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtractGo_EntitiesAndRelations(t *testing.T) {
	content := `package store

import "context"

// Repo persists things.
type Repo struct {
	baseRepo
}

type Reader interface {
	Get(id string) string
}

func Open(path string) (*Repo, error) {
	return nil, nil
}

func (r *Repo) Close() error {
	return nil
}
`
	e := New(DefaultConfig())
	extraction, err := e.Extract(context.Background(), content, types.Code("go"))
	require.NoError(t, err)
	require.True(t, extraction.Structural())

	byName := make(map[string]types.CodeEntity)
	for _, ent := range extraction.Entities {
		byName[ent.Name] = ent
	}

	assert.Equal(t, types.EntityType, byName["Repo"].Kind)
	assert.Equal(t, "Repo persists things.", byName["Repo"].DocComment)
	assert.Equal(t, types.EntityType, byName["Reader"].Kind)
	assert.Equal(t, types.EntityFunction, byName["Open"].Kind)
	assert.Equal(t, "func Open(path string) (*Repo, error)", byName["Open"].Signature)
	assert.Equal(t, types.EntityMethod, byName["Close"].Kind)
	assert.Equal(t, types.EntityImport, byName["context"].Kind)

	assert.Contains(t, extraction.Relations, types.CodeRelation{
		Kind: types.RelationInheritsFrom, From: "Repo", To: "baseRepo",
	})
	assert.Contains(t, extraction.Relations, types.CodeRelation{
		Kind: types.RelationHasMethod, From: "Repo", To: "Close",
	})
	assert.Contains(t, extraction.Relations, types.CodeRelation{
		Kind: types.RelationHasMethod, From: "Reader", To: "Get",
	})
	assert.Contains(t, extraction.Relations, types.CodeRelation{
		Kind: types.RelationImports, From: "store", To: "context",
	})
}

func TestExtractGo_EmbeddedInterface(t *testing.T) {
	content := `package io2

type ReadCloser interface {
	Reader
	Closer
}
`
	e := New(DefaultConfig())
	extraction, err := e.Extract(context.Background(), content, types.Code("go"))
	require.NoError(t, err)

	assert.Contains(t, extraction.Relations, types.CodeRelation{
		Kind: types.RelationInheritsFrom, From: "ReadCloser", To: "Reader",
	})
	assert.Contains(t, extraction.Relations, types.CodeRelation{
		Kind: types.RelationInheritsFrom, From: "ReadCloser", To: "Closer",
	})
}

func TestExtractGo_ParseFailureDegradesToKeywords(t *testing.T) {
	content := "this is not valid go source { def broken("
	e := New(DefaultConfig())

	extraction, err := e.Extract(context.Background(), content, types.Code("go"))
	require.NoError(t, err)
	assert.False(t, extraction.Structural())
	assert.NotEmpty(t, extraction.Keywords)
}

func TestExtractPython_PatternHeuristics(t *testing.T) {
	content := `import os
from collections import deque

class Worker(BaseWorker):
    def run(self):
        pass

def main():
    pass
`
	e := New(DefaultConfig())
	extraction, err := e.Extract(context.Background(), content, types.Code("python"))
	require.NoError(t, err)
	require.True(t, extraction.Structural())

	kinds := make(map[string]types.EntityKind)
	for _, ent := range extraction.Entities {
		kinds[ent.Name] = ent.Kind
	}
	assert.Equal(t, types.EntityType, kinds["Worker"])
	assert.Equal(t, types.EntityFunction, kinds["run"])
	assert.Equal(t, types.EntityFunction, kinds["main"])
	assert.Equal(t, types.EntityImport, kinds["os"])
	assert.Equal(t, types.EntityImport, kinds["collections"])

	assert.Contains(t, extraction.Relations, types.CodeRelation{
		Kind: types.RelationInheritsFrom, From: "Worker", To: "BaseWorker",
	})
}

func TestExtractTypeScript_ClassExtends(t *testing.T) {
	content := `import { thing } from "./thing";

export class Derived extends Base {
}

export async function load(): Promise<void> {
}
`
	e := New(DefaultConfig())
	extraction, err := e.Extract(context.Background(), content, types.Code("typescript"))
	require.NoError(t, err)

	assert.Contains(t, extraction.Relations, types.CodeRelation{
		Kind: types.RelationInheritsFrom, From: "Derived", To: "Base",
	})

	names := make(map[string]bool)
	for _, ent := range extraction.Entities {
		names[ent.Name] = true
	}
	assert.True(t, names["load"])
	assert.True(t, names["./thing"])
}

func TestExtractUnknownLanguage_FallsBackToKeywords(t *testing.T) {
	content := "SELECT revenue FROM quarterly_reports WHERE region = 'emea'"
	e := New(DefaultConfig())

	extraction, err := e.Extract(context.Background(), content, types.Code("sql"))
	require.NoError(t, err)
	assert.False(t, extraction.Structural())
	assert.NotEmpty(t, extraction.Keywords)
}

func TestTermCounts_MergesKeywordsAndEntities(t *testing.T) {
	extraction := &types.Extraction{
		Keywords: []types.Keyword{{Term: "budget", Frequency: 3}},
		Entities: []types.CodeEntity{
			{Kind: types.EntityType, Name: "Repo"},
			{Kind: types.EntityMethod, Name: "Close"},
		},
	}

	counts := extraction.TermCounts()
	assert.Equal(t, 3, counts["budget"])
	assert.Equal(t, 1, counts["Repo"])
	assert.Equal(t, 1, counts["Close"])
}
