// Package resources embeds the shared layouts (public site and admin shell)
// and the static bundle: site.css, site.js and the testimonial avatars.
package resources

import (
	"embed"
	"io/fs"
	"net/http"
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var sharedFS embed.FS

//go:embed assets/css/*.css assets/js/*.js assets/img/*.svg
var assetsFS embed.FS

var registerOnce sync.Once

// LoadSharedTemplates registers the layouts; call it before templates.Boot.
func LoadSharedTemplates() {
	registerOnce.Do(func() {
		templates.Register(templates.Set{
			Name:     "shared",
			FS:       sharedFS,
			Patterns: []string{"templates/*.gohtml"},
		})
	})
}

// AssetsHandler serves the embedded bundle under prefix. Files change only
// with a deploy, so browsers may keep them for a day.
func AssetsHandler(prefix string) http.Handler {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic(err) // the embed pattern guarantees the directory
	}
	files := http.StripPrefix(prefix, http.FileServer(http.FS(sub)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}
