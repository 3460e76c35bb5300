// Package inputval checks form structs against their `validate` tags with
// waffle/pantry/validate and words the first failure for the person filling
// the form in, using the field's `label` tag.
package inputval

import (
	"errors"
	"net/mail"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
)

// Result carries the messages for the fields that failed.
type Result struct {
	Messages []string
}

func (r *Result) HasErrors() bool { return len(r.Messages) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0]
}

var (
	validator     *validate.Validator
	validatorOnce sync.Once
)

// rules adds the site's own rules to the pantry ones (required, email,
// oneof, min, max).
func rules() *validate.Validator {
	validatorOnce.Do(func() {
		validator = validate.New(validate.WithStopOnFirstError())
		validator.RegisterRuleFunc("adminrole", func(v any) bool {
			s, ok := v.(string)
			return ok && models.IsValidRole(strings.ToLower(strings.TrimSpace(s)))
		}, "adminrole")
		// Empty is allowed; pair with required when the link is mandatory.
		validator.RegisterRuleFunc("httpurl", func(v any) bool {
			s, ok := v.(string)
			return ok && (s == "" || IsValidHTTPURL(s))
		}, "httpurl")
	})
	return validator
}

// Validate runs the tag rules on s, a struct or pointer to one.
func Validate(s any) *Result {
	res := &Result{}
	err := rules().Struct(s)
	if err == nil {
		return res
	}

	var failures validate.Errors
	if !errors.As(err, &failures) {
		res.Messages = append(res.Messages, "The form could not be checked.")
		return res
	}
	labels := labelsOf(s)
	for _, f := range failures {
		label := labels[f.Field]
		if label == "" {
			label = f.Field
		}
		res.Messages = append(res.Messages, message(label, f.Rule, f.Param))
	}
	return res
}

// labelsOf maps each field, keyed the way validate reports it (json name
// when present), to its label tag.
func labelsOf(s any) map[string]string {
	v := reflect.Indirect(reflect.ValueOf(s))
	if v.Kind() != reflect.Struct {
		return nil
	}
	t := v.Type()
	labels := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Name
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
			key = name
		}
		if l := f.Tag.Get("label"); l != "" {
			labels[key] = l
		}
	}
	return labels
}

func message(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + "."
	case "max":
		return label + " must be at most " + param + "."
	case "adminrole":
		return label + " must be one of: " + strings.Join(models.AllRoles(), ", ") + "."
	case "httpurl":
		return label + " must be a link starting with http:// or https://."
	}
	return label + " is invalid."
}

// IsValidEmail accepts a bare address with a dotted domain, not
// "Name <addr>".
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	_, domain, _ := strings.Cut(s, "@")
	return strings.Contains(domain, ".")
}

// IsValidHTTPURL reports whether s is an absolute http or https link.
func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
