// Package widget renders the embeddable chat widget script.
package widget

import (
	_ "embed"
	"fmt"
	"io"
	"text/template"

	"botcraft/internal/domain/models"
)

//go:embed assets/widget.js.tmpl
var source string

var script = template.Must(template.New("widget.js").Parse(source))

// Params are the values baked into a rendered script.
type Params struct {
	// BaseURL is the origin the widget calls back to, without a trailing slash.
	BaseURL string
	// APIKey is used when the script tag carries no data-api-key attribute.
	APIKey string
}

type templateData struct {
	Params
	Defaults models.Customization
}

// ContentType of the rendered script.
const ContentType = "application/javascript; charset=utf-8"

// Render writes the widget script for p to w.
func Render(w io.Writer, p Params) error {
	data := templateData{Params: p, Defaults: models.DefaultCustomization()}
	if err := script.Execute(w, data); err != nil {
		return fmt.Errorf("render widget: %w", err)
	}
	return nil
}
