// internal/app/features/donate/templates.go
package donate

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "donate",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
