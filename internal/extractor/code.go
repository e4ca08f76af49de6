package extractor

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

// extractCode routes to the structural extractor for the language. Go gets
// a real AST walk; other known languages get line-pattern heuristics.
func (e *Extractor) extractCode(content, language string) (*types.Extraction, error) {
	if strings.ToLower(language) == "go" {
		return extractGo(content)
	}
	return extractByPattern(content, strings.ToLower(language)), nil
}

// extractGo parses content as a Go source file and walks the AST for typed
// entities and structural relations.
func extractGo(content string) (*types.Extraction, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "document.go", content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse go source: %w", err)
	}

	walker := &goWalker{fset: fset, extraction: &types.Extraction{}}
	if file.Name != nil {
		walker.packageName = file.Name.Name
	}
	walker.extractImports(file)
	ast.Inspect(file, walker.visit)

	return walker.extraction, nil
}

// goWalker accumulates entities and relations during AST traversal.
type goWalker struct {
	fset        *token.FileSet
	packageName string
	extraction  *types.Extraction
}

func (w *goWalker) visit(node ast.Node) bool {
	if node == nil {
		return false
	}

	switch n := node.(type) {
	case *ast.FuncDecl:
		w.extractFunction(n)
	case *ast.GenDecl:
		for _, spec := range n.Specs {
			if typeSpec, ok := spec.(*ast.TypeSpec); ok {
				w.extractType(typeSpec, n.Doc)
			}
		}
	}
	return true
}

func (w *goWalker) extractImports(file *ast.File) {
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		w.extraction.Entities = append(w.extraction.Entities, types.CodeEntity{
			Kind:      types.EntityImport,
			Name:      path,
			StartLine: w.line(imp.Pos()),
			EndLine:   w.line(imp.End()),
		})
		w.extraction.Relations = append(w.extraction.Relations, types.CodeRelation{
			Kind: types.RelationImports,
			From: w.packageName,
			To:   path,
		})
	}
}

func (w *goWalker) extractFunction(funcDecl *ast.FuncDecl) {
	entity := types.CodeEntity{
		Name:       funcDecl.Name.Name,
		Signature:  functionSignature(funcDecl),
		DocComment: docText(funcDecl.Doc),
		StartLine:  w.line(funcDecl.Pos()),
		EndLine:    w.line(funcDecl.End()),
	}

	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		entity.Kind = types.EntityMethod
		receiver := receiverType(funcDecl.Recv.List[0].Type)
		if receiver != "" {
			w.extraction.Relations = append(w.extraction.Relations, types.CodeRelation{
				Kind: types.RelationHasMethod,
				From: receiver,
				To:   funcDecl.Name.Name,
			})
		}
	} else {
		entity.Kind = types.EntityFunction
	}

	w.extraction.Entities = append(w.extraction.Entities, entity)
}

func (w *goWalker) extractType(typeSpec *ast.TypeSpec, doc *ast.CommentGroup) {
	entity := types.CodeEntity{
		Kind:       types.EntityType,
		Name:       typeSpec.Name.Name,
		DocComment: docText(doc),
		StartLine:  w.line(typeSpec.Pos()),
		EndLine:    w.line(typeSpec.End()),
	}

	switch t := typeSpec.Type.(type) {
	case *ast.StructType:
		entity.Signature = fmt.Sprintf("type %s struct", typeSpec.Name.Name)
		// Embedded fields express structural inheritance.
		if t.Fields != nil {
			for _, field := range t.Fields.List {
				if len(field.Names) != 0 {
					continue
				}
				if embedded := exprName(field.Type); embedded != "" {
					w.extraction.Relations = append(w.extraction.Relations, types.CodeRelation{
						Kind: types.RelationInheritsFrom,
						From: typeSpec.Name.Name,
						To:   embedded,
					})
				}
			}
		}
	case *ast.InterfaceType:
		entity.Signature = fmt.Sprintf("type %s interface", typeSpec.Name.Name)
		if t.Methods != nil {
			for _, method := range t.Methods.List {
				if len(method.Names) == 0 {
					// Embedded interface.
					if embedded := exprName(method.Type); embedded != "" {
						w.extraction.Relations = append(w.extraction.Relations, types.CodeRelation{
							Kind: types.RelationInheritsFrom,
							From: typeSpec.Name.Name,
							To:   embedded,
						})
					}
					continue
				}
				w.extraction.Relations = append(w.extraction.Relations, types.CodeRelation{
					Kind: types.RelationHasMethod,
					From: typeSpec.Name.Name,
					To:   method.Names[0].Name,
				})
			}
		}
	default:
		entity.Signature = fmt.Sprintf("type %s", typeSpec.Name.Name)
	}

	w.extraction.Entities = append(w.extraction.Entities, entity)
}

func (w *goWalker) line(pos token.Pos) int {
	return w.fset.Position(pos).Line
}

// receiverType extracts the receiver type name from a method
func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return exprName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// exprName returns the bare identifier a type expression names.
func exprName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return exprName(t.X)
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.IndexExpr:
		return exprName(t.X)
	}
	return ""
}

// functionSignature builds a readable signature string
func functionSignature(funcDecl *ast.FuncDecl) string {
	var sig strings.Builder

	sig.WriteString("func ")
	if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
		sig.WriteString("(")
		sig.WriteString(exprString(funcDecl.Recv.List[0].Type))
		sig.WriteString(") ")
	}
	sig.WriteString(funcDecl.Name.Name)

	sig.WriteString("(")
	if funcDecl.Type.Params != nil {
		sig.WriteString(fieldListString(funcDecl.Type.Params))
	}
	sig.WriteString(")")

	if funcDecl.Type.Results != nil {
		results := fieldListString(funcDecl.Type.Results)
		if results != "" {
			if funcDecl.Type.Results.NumFields() > 1 {
				sig.WriteString(" (")
				sig.WriteString(results)
				sig.WriteString(")")
			} else {
				sig.WriteString(" ")
				sig.WriteString(results)
			}
		}
	}

	return sig.String()
}

func fieldListString(fieldList *ast.FieldList) string {
	if fieldList == nil || len(fieldList.List) == 0 {
		return ""
	}

	var parts []string
	for _, field := range fieldList.List {
		typeStr := exprString(field.Type)
		if len(field.Names) > 0 {
			for _, name := range field.Names {
				parts = append(parts, fmt.Sprintf("%s %s", name.Name, typeStr))
			}
		} else {
			parts = append(parts, typeStr)
		}
	}
	return strings.Join(parts, ", ")
}

func exprString(expr ast.Expr) string {
	if expr == nil {
		return ""
	}

	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.ArrayType:
		return "[]" + exprString(t.Elt)
	case *ast.MapType:
		return fmt.Sprintf("map[%s]%s", exprString(t.Key), exprString(t.Value))
	case *ast.ChanType:
		return "chan " + exprString(t.Value)
	case *ast.FuncType:
		return "func(...)"
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.Ellipsis:
		return "..." + exprString(t.Elt)
	default:
		return "..."
	}
}

func docText(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

// entityPatterns are line-level heuristics for languages without a real
// parser here. Each pattern captures the entity name in group 1; class
// patterns additionally capture a parent in group 2 when the syntax
// expresses inheritance inline.
type entityPatterns struct {
	function *regexp.Regexp
	class    *regexp.Regexp
	imports  *regexp.Regexp
}

var languagePatterns = map[string]entityPatterns{
	"python": {
		function: regexp.MustCompile(`^\s*def\s+(\w+)`),
		class:    regexp.MustCompile(`^\s*class\s+(\w+)(?:\(\s*(\w+)[^)]*\))?`),
		imports:  regexp.MustCompile(`^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`),
	},
	"javascript": {
		function: regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)`),
		class:    regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)(?:\s+extends\s+(\w+))?`),
		imports:  regexp.MustCompile(`^\s*import\s+.*from\s+['"]([^'"]+)['"]`),
	},
	"typescript": {
		function: regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)`),
		class:    regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+(\w+)(?:\s+extends\s+(\w+))?`),
		imports:  regexp.MustCompile(`^\s*import\s+.*from\s+['"]([^'"]+)['"]`),
	},
	"java": {
		function: regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?[\w<>\[\]]+\s+(\w+)\s*\(`),
		class:    regexp.MustCompile(`^\s*(?:public\s+)?(?:abstract\s+|final\s+)?class\s+(\w+)(?:\s+extends\s+(\w+))?`),
		imports:  regexp.MustCompile(`^\s*import\s+([\w.]+);`),
	},
}

// extractByPattern applies line heuristics for non-Go languages. Unknown
// languages yield an empty extraction, which the caller degrades to
// keywords.
func extractByPattern(content, language string) *types.Extraction {
	patterns, ok := languagePatterns[language]
	if !ok {
		return &types.Extraction{}
	}

	extraction := &types.Extraction{}
	for i, line := range strings.Split(content, "\n") {
		lineNo := i + 1

		if m := patterns.class.FindStringSubmatch(line); m != nil {
			extraction.Entities = append(extraction.Entities, types.CodeEntity{
				Kind:      types.EntityType,
				Name:      m[1],
				Signature: strings.TrimSpace(line),
				StartLine: lineNo,
				EndLine:   lineNo,
			})
			if len(m) > 2 && m[2] != "" {
				extraction.Relations = append(extraction.Relations, types.CodeRelation{
					Kind: types.RelationInheritsFrom,
					From: m[1],
					To:   m[2],
				})
			}
			continue
		}

		if m := patterns.function.FindStringSubmatch(line); m != nil {
			extraction.Entities = append(extraction.Entities, types.CodeEntity{
				Kind:      types.EntityFunction,
				Name:      m[1],
				Signature: strings.TrimSpace(line),
				StartLine: lineNo,
				EndLine:   lineNo,
			})
			continue
		}

		if m := patterns.imports.FindStringSubmatch(line); m != nil {
			name := m[1]
			if name == "" && len(m) > 2 {
				name = m[2]
			}
			extraction.Entities = append(extraction.Entities, types.CodeEntity{
				Kind:      types.EntityImport,
				Name:      name,
				StartLine: lineNo,
				EndLine:   lineNo,
			})
		}
	}
	return extraction
}
