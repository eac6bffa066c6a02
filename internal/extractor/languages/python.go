package languages

import (
	"github.com/smacker/go-tree-sitter/python"

	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor"
)

func RegisterPython(r *extractor.Registry) {
	r.Register("python", &extractor.LanguageSpec{
		Language:   python.GetLanguage(),
		Functions:  []string{"function_definition"},
		Calls:      []string{"call"},
		Extensions: []string{"py"},
	})
}
