// Package htmlsanitize cleans staff-entered rich text (news bodies, the site
// footer) before it is stored or rendered.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once    sync.Once
	rich    *bluemonday.Policy
	textual *bluemonday.Policy
)

func load() {
	once.Do(func() {
		rich = bluemonday.UGCPolicy()
		rich.AllowElements("u", "s", "sub", "sup", "mark", "figure", "figcaption")
		rich.AllowAttrs("loading").Matching(bluemonday.SpaceSeparatedTokens).OnElements("img")
		rich.RequireNoFollowOnLinks(true)
		rich.AddTargetBlankToFullyQualifiedLinks(true)
		textual = bluemonday.StrictPolicy()
	})
}

// Sanitize keeps formatting, links and images and drops scripts, handlers
// and unsafe URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	load()
	return rich.Sanitize(s)
}

func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// PrepareForDisplay renders a stored body. Text without tags becomes
// escaped paragraphs; anything else goes through Sanitize.
func PrepareForDisplay(content string) template.HTML {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if strings.ContainsRune(content, '<') && strings.ContainsRune(content, '>') {
		return SanitizeToHTML(content)
	}
	return template.HTML(paragraphs(content))
}

// paragraphs splits on blank lines; single newlines become <br>.
func paragraphs(text string) string {
	var b strings.Builder
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			b.WriteString("<p>" + strings.ReplaceAll(template.HTMLEscapeString(block), "\n", "<br>") + "</p>")
		}
	}
	return b.String()
}

// Excerpt returns the text of content, whitespace collapsed, cut to at most
// max runes on a word boundary with an ellipsis. max <= 0 means no limit.
func Excerpt(content string, max int) string {
	load()
	text := strings.Join(strings.Fields(html.UnescapeString(textual.Sanitize(content))), " ")
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	cut := string([]rune(text)[:max])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// Summary returns summary when it has text, otherwise an excerpt of body.
func Summary(summary, body string, max int) string {
	if strings.TrimSpace(summary) != "" {
		return summary
	}
	return Excerpt(body, max)
}
