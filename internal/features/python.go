package features

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/RishiKendai/codenest/internal/models"
)

// ErrSyntax is returned when a grammar-aware parse finds syntax errors.
var ErrSyntax = errors.New("syntax errors found in source code")

var pythonKeywords = []string{"def", "class", "if", "else", "elif", "for", "while", "try", "except", "import", "from"}

var pythonKeywordRes = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(pythonKeywords))
	for i, kw := range pythonKeywords {
		res[i] = regexp.MustCompile(`\b` + kw + `\b`)
	}
	return res
}()

// tree-sitter parsers are not safe for concurrent use
var pythonParsers = sync.Pool{
	New: func() any {
		p := sitter.NewParser()
		p.SetLanguage(python.GetLanguage())
		return p
	},
}

// ExtractPython walks the tree-sitter parse tree of a Python file.
// A file with syntax errors yields ErrSyntax and no features.
func ExtractPython(ctx context.Context, source []byte) (*models.FileFeatures, error) {
	parser := pythonParsers.Get().(*sitter.Parser)
	defer pythonParsers.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}

	w := &pyWalker{src: source, ff: &models.FileFeatures{}}
	w.walk(root)
	w.ff.Keywords = countKeywords(string(source), pythonKeywords, pythonKeywordRes)
	return w.ff, nil
}

type pyWalker struct {
	src []byte
	ff  *models.FileFeatures
}

func (w *pyWalker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

func (w *pyWalker) walk(n *sitter.Node) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "function_definition":
		w.ff.FunctionsCount++
		w.ff.ControlFlow = append(w.ff.ControlFlow, "function_def")
		if name := n.ChildByFieldName("name"); name != nil {
			w.ff.FunctionNames = append(w.ff.FunctionNames, w.text(name))
		}
	case "class_definition":
		w.ff.ClassesCount++
		w.ff.ControlFlow = append(w.ff.ControlFlow, "class_def")
	case "if_statement", "elif_clause":
		w.ff.ControlFlow = append(w.ff.ControlFlow, "if")
	case "for_statement":
		w.ff.ControlFlow = append(w.ff.ControlFlow, "for")
		w.bindTargets(n.ChildByFieldName("left"))
	case "while_statement":
		w.ff.ControlFlow = append(w.ff.ControlFlow, "while")
	case "try_statement":
		w.ff.ControlFlow = append(w.ff.ControlFlow, "try")
	case "import_statement":
		w.importNames(n)
	case "import_from_statement":
		w.importFromNames(n)
	case "assignment", "augmented_assignment", "for_in_clause":
		w.bindTargets(n.ChildByFieldName("left"))
	case "named_expression":
		w.bindTargets(n.ChildByFieldName("name"))
	case "as_pattern":
		if p := n.Parent(); p != nil && p.Type() == "with_item" {
			w.bindTargets(n.ChildByFieldName("alias"))
		}
	case "string":
		w.stringLiteral(n)
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i))
	}
}

// bindTargets records every identifier bound by an assignment target.
// Attribute and subscript targets bind no new name.
func (w *pyWalker) bindTargets(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		w.ff.VariableNames = append(w.ff.VariableNames, w.text(n))
	case "attribute", "subscript":
		return
	case "as_pattern_target":
		if n.NamedChildCount() == 0 {
			w.ff.VariableNames = append(w.ff.VariableNames, w.text(n))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.bindTargets(n.NamedChild(i))
		}
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"expression_list", "parenthesized_expression", "list_splat_pattern",
		"list_splat":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.bindTargets(n.NamedChild(i))
		}
	}
}

func (w *pyWalker) importNames(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "name" {
			continue
		}
		if name := importedName(n.Child(i), w.src); name != "" {
			w.ff.Imports = append(w.ff.Imports, name)
		}
	}
}

func (w *pyWalker) importFromNames(n *sitter.Node) {
	mod := n.ChildByFieldName("module_name")
	if mod == nil {
		return
	}
	module := w.text(mod)
	if mod.Type() == "relative_import" {
		module = ""
		for i := 0; i < int(mod.NamedChildCount()); i++ {
			if c := mod.NamedChild(i); c.Type() == "dotted_name" {
				module = w.text(c)
			}
		}
	}
	module = strings.TrimLeft(module, ".")
	if module == "" {
		return
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "wildcard_import" {
			w.ff.Imports = append(w.ff.Imports, module+".*")
			continue
		}
		if n.FieldNameForChild(i) != "name" {
			continue
		}
		if name := importedName(child, w.src); name != "" {
			w.ff.Imports = append(w.ff.Imports, module+"."+name)
		}
	}
}

func importedName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "dotted_name", "identifier":
		return n.Content(src)
	case "aliased_import":
		if name := n.ChildByFieldName("name"); name != nil {
			return name.Content(src)
		}
	}
	return ""
}

func (w *pyWalker) stringLiteral(n *sitter.Node) {
	var b strings.Builder
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "string_start":
			if strings.ContainsAny(w.text(c), "bB") {
				return
			}
		case "string_content":
			b.WriteString(w.text(c))
		}
	}
	value := b.String()
	if utf8.RuneCountInString(value) >= minLiteralRunes {
		w.ff.StringLiterals = append(w.ff.StringLiterals, truncateRunes(value, maxLiteralRunes))
	}
}
