package intake

import (
	"github.com/gorilla/securecookie"
)

// Codec signs a Flow into an opaque string for a hidden form field, so the
// visitor cannot hand-craft a PhotoSet state with an arbitrary URL.
type Codec struct {
	sc *securecookie.SecureCookie
}

const codecName = "intake"

// NewCodec creates a Codec from a hash key (32 or 64 bytes recommended).
func NewCodec(hashKey []byte) *Codec {
	sc := securecookie.New(hashKey, nil)
	sc.MaxAge(2 * 60 * 60)
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Codec{sc: sc}
}

// Encode signs f.
func (c *Codec) Encode(f Flow) (string, error) {
	return c.sc.Encode(codecName, f)
}

// Decode verifies and decodes s. An empty s is a fresh flow.
func (c *Codec) Decode(s string) (Flow, error) {
	if s == "" {
		return New(), nil
	}
	var f Flow
	if err := c.sc.Decode(codecName, s, &f); err != nil {
		return New(), err
	}
	if f.Photo == "" {
		f.Photo = NoPhoto
	}
	if f.Form == "" {
		f.Form = FormIncomplete
	}
	return f, nil
}
