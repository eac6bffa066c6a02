// Package languages registers the grammars the extractor understands.
package languages

import "github.com/lumisproject/digital-twin-project-oracle/internal/extractor"

// Default returns a registry with every supported language.
func Default() *extractor.Registry {
	r := extractor.NewRegistry()
	RegisterPython(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
	RegisterRust(r)
	RegisterGo(r)
	return r
}
