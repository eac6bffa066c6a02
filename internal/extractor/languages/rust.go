package languages

import (
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor"
)

func RegisterRust(r *extractor.Registry) {
	r.Register("rust", &extractor.LanguageSpec{
		Language:   rust.GetLanguage(),
		Functions:  []string{"function_item"},
		Calls:      []string{"call_expression"},
		Extensions: []string{"rs"},
	})
}
