package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templates embed.FS

// Templates parses the page templates bundled into the binary.
func Templates() (*template.Template, error) {
	return template.ParseFS(templates, "templates/*.html")
}
