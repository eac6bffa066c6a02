package languages

import (
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor"
)

func RegisterJavaScript(r *extractor.Registry) {
	r.Register("javascript", &extractor.LanguageSpec{
		Language: javascript.GetLanguage(),
		Functions: []string{
			"function_declaration",
			"generator_function_declaration",
			"method_definition",
		},
		Calls:      []string{"call_expression"},
		Extensions: []string{"js", "jsx", "mjs", "cjs"},
	})
}
