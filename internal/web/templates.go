package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates holds all parsed templates
type Templates struct {
	index     *template.Template
	character *template.Template
}

// ParseTemplates parses all templates and returns a Templates struct
func ParseTemplates() (*Templates, error) {
	// Parse base template
	base, err := template.New("base.html").ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, err
	}

	// Parse each page template by cloning base and adding the page
	index, err := template.Must(base.Clone()).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	character, err := template.Must(base.Clone()).ParseFS(templateFS, "templates/character.html")
	if err != nil {
		return nil, err
	}

	return &Templates{
		index:     index,
		character: character,
	}, nil
}
