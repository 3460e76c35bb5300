package viewdata

import (
	"net/http"

	"github.com/dalemusser/gicesite/internal/app/system/collections"
	"github.com/dalemusser/gicesite/internal/domain/models"
)

// FormField is one schema field as the shared schema_fields partial renders
// it. Image fields carry their widget state in Image.
type FormField struct {
	Key      string
	Label    string
	Help     string
	Input    string // collections.Kind as a string
	Required bool
	Options  []string
	Value    string
	Error    string
	IsImage  bool
	Image    ImageField
}

// FormFields lays out fs for an editor form. values holds the input strings
// (stored or echoed), stored supplies the current image URLs, and r, when it
// carries a posted form, restores the image source the user picked.
func FormFields(fs collections.FieldSet, values map[string]string, stored models.Document, errs collections.FieldErrors, r *http.Request) []FormField {
	out := make([]FormField, 0, len(fs))
	for _, f := range fs {
		label := f.Label
		if label == "" {
			label = f.Key
		}
		ff := FormField{
			Key:      f.Key,
			Label:    label,
			Help:     f.Help,
			Input:    string(f.Kind),
			Required: f.Required,
			Options:  f.Options,
			Value:    values[f.Key],
			Error:    errs[f.Key],
		}
		if f.Kind == collections.KindImage {
			ff.IsImage = true
			ff.Image = ImageField{
				Key:      f.Key,
				Label:    label,
				Required: f.Required,
				Current:  stored.String(f.Key),
			}
			if r != nil && r.PostForm != nil {
				ff.Image.Source = r.PostForm.Get(f.Key + "_source")
				ff.Image.Link = r.PostForm.Get(f.Key + "_link")
			}
		}
		out = append(out, ff)
	}
	return out
}
