package render

import (
	"embed"
	"html/template"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/anime-shed/authenticity-validator-go/pkg/models"
)

// PageTemplate is the name of the upload page template
const PageTemplate = "index.html.tmpl"

//go:embed templates/*.tmpl
var templateFS embed.FS

// FuncMap exposes the label helpers to templates
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"yesNo":         YesNo,
		"metadataLabel": MetadataLabel,
		"detailsJSON":   DetailsJSON,
		"humanSize":     HumanSize,
	}
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.tmpl")
}

// WriteHTML renders the upload page for state
func WriteHTML(w io.Writer, tmpl *template.Template, state models.InteractionState) error {
	return tmpl.ExecuteTemplate(w, PageTemplate, NewView(state))
}

// HumanSize formats a byte count using binary units
func HumanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
