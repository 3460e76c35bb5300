package mediaupload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkConverter(t *testing.T) {
	c := LinkConverter{CDNHost: "cdn.example"}

	tests := []struct {
		name string
		link string
		want string
	}{
		{"file view link", "https://drive.google.com/file/d/1AbC_d-9/view?usp=sharing", "https://cdn.example/d/1AbC_d-9"},
		{"open link", "https://drive.google.com/open?id=XYZ123", "https://cdn.example/d/XYZ123"},
		{"uc link with extra params", "https://drive.google.com/uc?export=view&id=abc-DEF", "https://cdn.example/d/abc-DEF"},
		{"surrounding whitespace", "  https://drive.google.com/file/d/QQ/view  ", "https://cdn.example/d/QQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Convert(tt.link)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinkConverterInvalid(t *testing.T) {
	c := LinkConverter{}
	for _, link := range []string{
		"https://example.com/photo.jpg",
		"https://drive.google.com/drive/folders",
		"not a url",
		"",
	} {
		got, err := c.Convert(link)
		assert.ErrorIs(t, err, ErrInvalidLink, link)
		assert.Empty(t, got, link)
	}
}

func TestLinkConverterDefaultHost(t *testing.T) {
	got, err := LinkConverter{}.Convert("https://drive.google.com/file/d/abc/view")
	require.NoError(t, err)
	assert.Equal(t, "https://"+DefaultCDNHost+"/d/abc", got)
}
