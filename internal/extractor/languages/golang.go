package languages

import (
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor"
)

func RegisterGo(r *extractor.Registry) {
	r.Register("go", &extractor.LanguageSpec{
		Language:   golang.GetLanguage(),
		Functions:  []string{"function_declaration", "method_declaration"},
		Calls:      []string{"call_expression"},
		Extensions: []string{"go"},
	})
}
