package collections

import (
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/gicesite/internal/app/system/categories"
	"github.com/dalemusser/gicesite/internal/app/system/htmlsanitize"
	"github.com/dalemusser/gicesite/internal/app/system/inputval"
	"github.com/dalemusser/gicesite/internal/app/system/normalize"
	"github.com/dalemusser/gicesite/internal/domain/models"
)

// FieldsMarker is the hidden form input listing the keys rendered by an
// editor form. Fields named there count as submitted even when the browser
// omits them, which is how an unchecked checkbox is told apart from a field
// that was not on the form at all.
const FieldsMarker = "_fields"

// DateLayout is the wire format of date fields.
const DateLayout = "2006-01-02"

// Values is a set of field values ready to be written.
type Values map[string]any

// FieldErrors maps a field key to a message.
type FieldErrors map[string]string

// First returns one message in field order, for the banner.
func (fe FieldErrors) First(fs FieldSet) string {
	for _, f := range fs {
		if msg, ok := fe[f.Key]; ok {
			return msg
		}
	}
	for _, msg := range fe {
		return msg
	}
	return ""
}

// FieldSet is an ordered list of fields forming one editor form.
type FieldSet []Field

// Images returns the image fields.
func (fs FieldSet) Images() []Field {
	var out []Field
	for _, f := range fs {
		if f.Kind == KindImage {
			out = append(out, f)
		}
	}
	return out
}

// Field looks up a field by key.
func (fs FieldSet) Field(key string) (Field, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Draft parses every non-image field from a create form. Required fields
// must be present and non-empty.
func (fs FieldSet) Draft(form url.Values) (Values, FieldErrors) {
	vals := Values{}
	errs := FieldErrors{}
	for _, f := range fs {
		if f.Kind == KindImage {
			continue
		}
		fs.parseInto(vals, errs, f, form)
	}
	return vals, errs
}

// Patch parses only the non-image fields that were submitted, so an update
// never touches a stored field the form did not carry.
func (fs FieldSet) Patch(form url.Values) (Values, FieldErrors) {
	submitted := submittedKeys(form)
	vals := Values{}
	errs := FieldErrors{}
	for _, f := range fs {
		if f.Kind == KindImage || !submitted[f.Key] {
			continue
		}
		fs.parseInto(vals, errs, f, form)
	}
	return vals, errs
}

func submittedKeys(form url.Values) map[string]bool {
	keys := make(map[string]bool, len(form))
	for k := range form {
		keys[k] = true
	}
	for _, k := range form[FieldsMarker] {
		keys[k] = true
	}
	return keys
}

func (fs FieldSet) parseInto(vals Values, errs FieldErrors, f Field, form url.Values) {
	raw := strings.TrimSpace(form.Get(f.Key))
	label := f.Label
	if label == "" {
		label = f.Key
	}

	if f.Kind == KindBool {
		vals[f.Key] = raw == "on" || raw == "true" || raw == "1"
		return
	}

	if raw == "" {
		if f.Required {
			errs[f.Key] = label + " is required."
			return
		}
		switch f.Kind {
		case KindCategories:
			vals[f.Key] = []string{}
			vals[f.FoldedKey()] = []string{}
		case KindNumber, KindDate:
			vals[f.Key] = nil
		default:
			vals[f.Key] = ""
		}
		return
	}

	switch f.Kind {
	case KindText, KindTextarea:
		if f.Max > 0 && utf8.RuneCountInString(raw) > f.Max {
			errs[f.Key] = fmt.Sprintf("%s must be at most %d characters.", label, f.Max)
			return
		}
		vals[f.Key] = raw
	case KindHTML:
		vals[f.Key] = htmlsanitize.Sanitize(raw)
	case KindEmail:
		email := normalize.Email(raw)
		if !inputval.IsValidEmail(email) {
			errs[f.Key] = label + " must be a valid email address."
			return
		}
		vals[f.Key] = email
	case KindURL:
		if !inputval.IsValidHTTPURL(raw) {
			errs[f.Key] = label + " must be a valid URL starting with http:// or https://."
			return
		}
		vals[f.Key] = raw
	case KindSelect:
		if !slices.Contains(f.Options, raw) {
			errs[f.Key] = label + " must be one of: " + strings.Join(f.Options, ", ") + "."
			return
		}
		vals[f.Key] = raw
	case KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			errs[f.Key] = label + " must be a number."
			return
		}
		// integers stay int64 while float64 holds them exactly
		if math.Abs(n) <= 1<<53 && n == math.Trunc(n) {
			vals[f.Key] = int64(n)
		} else {
			vals[f.Key] = n
		}
	case KindDate:
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			errs[f.Key] = label + " must be a date (YYYY-MM-DD)."
			return
		}
		vals[f.Key] = d.UTC()
	case KindCategories:
		tags := categories.Parse(raw)
		vals[f.Key] = tags
		vals[f.FoldedKey()] = categories.FoldAll(tags)
	}
}

// FormValues renders a stored document back into form input strings.
func (fs FieldSet) FormValues(doc models.Document) map[string]string {
	out := make(map[string]string, len(fs))
	for _, f := range fs {
		switch f.Kind {
		case KindCategories:
			out[f.Key] = strings.Join(doc.Strings(f.Key), ", ")
		case KindBool:
			if doc.Bool(f.Key) {
				out[f.Key] = "on"
			}
		case KindDate:
			if t := doc.Time(f.Key); !t.IsZero() {
				out[f.Key] = t.Format(DateLayout)
			}
		default:
			out[f.Key] = doc.String(f.Key)
		}
	}
	return out
}

// RawValues echoes the submitted form back so a failed save keeps the draft.
func (fs FieldSet) RawValues(form url.Values) map[string]string {
	out := make(map[string]string, len(fs))
	for _, f := range fs {
		out[f.Key] = form.Get(f.Key)
	}
	return out
}
