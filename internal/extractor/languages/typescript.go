package languages

import (
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor"
)

// RegisterTypeScript covers .ts only; .tsx needs the tsx grammar and is not
// indexed.
func RegisterTypeScript(r *extractor.Registry) {
	r.Register("typescript", &extractor.LanguageSpec{
		Language: typescript.GetLanguage(),
		Functions: []string{
			"function_declaration",
			"generator_function_declaration",
			"method_definition",
		},
		Calls:      []string{"call_expression"},
		Extensions: []string{"ts"},
	})
}
