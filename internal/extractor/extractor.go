// Package extractor turns source files into code unit drafts using
// tree-sitter grammars.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
)

// anonymous names units whose definition node has no name field.
const anonymous = "anonymous"

// ErrParse marks a file that could not be parsed cleanly.
var ErrParse = errors.New("parse failed")

// Draft is a code unit as found in a file, before footprinting and
// enrichment.
type Draft struct {
	ID       string
	FilePath string
	Name     string
	Code     string
	Calls    []string
}

// Extractor finds function-like definitions in source files.
type Extractor struct {
	registry *Registry
}

// New creates an extractor backed by the given registry.
func New(r *Registry) *Extractor {
	return &Extractor{registry: r}
}

// Supports reports whether files at path are parsed at all.
func (e *Extractor) Supports(path string) bool {
	return e.registry.Supports(path)
}

// Extract returns one draft per function-like definition in src, in
// pre-order. Nested definitions are returned as their own drafts. Files with
// an unregistered extension yield nil and no error. Files that do not parse
// cleanly yield nil and an error wrapping ErrParse.
func (e *Extractor) Extract(ctx context.Context, relPath string, src []byte) ([]Draft, error) {
	spec, lang := e.registry.Lookup(relPath)
	if spec == nil {
		return nil, nil
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("%s: invalid utf-8: %w", relPath, ErrParse)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %v: %w", relPath, lang, err, ErrParse)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%s (%s): syntax errors: %w", relPath, lang, ErrParse)
	}

	var drafts []Draft
	walk(root, func(n *sitter.Node) {
		if !spec.functions[n.Type()] {
			return
		}
		name := anonymous
		if id := n.ChildByFieldName("name"); id != nil {
			name = id.Content(src)
		}
		drafts = append(drafts, Draft{
			ID:       store.UnitID(relPath, name),
			FilePath: relPath,
			Name:     name,
			Code:     n.Content(src),
			Calls:    collectCalls(n, spec, src),
		})
	})
	return drafts, nil
}

// collectCalls returns the distinct texts of call nodes under n, in order of
// first appearance.
func collectCalls(n *sitter.Node, spec *LanguageSpec, src []byte) []string {
	seen := make(map[string]bool)
	calls := []string{}
	walk(n, func(c *sitter.Node) {
		if !spec.calls[c.Type()] {
			return
		}
		text := c.Content(src)
		if !seen[text] {
			seen[text] = true
			calls = append(calls, text)
		}
	})
	return calls
}

// walk visits n and all of its descendants in pre-order.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}
