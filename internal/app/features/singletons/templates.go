// internal/app/features/singletons/templates.go
package singletons

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "singletons",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
