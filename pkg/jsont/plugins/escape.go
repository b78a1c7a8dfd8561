package plugins

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

var (
	slugKillChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]+`)
	whitespace    = regexp.MustCompile(`\s+`)
	oneSpace      = regexp.MustCompile(`\s`)
	htmlTags      = regexp.MustCompile(`<[^>]*?>`)

	lower = cases.Lower(language.Und)

	htmlReplacer = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	htmlAttrReplacer = strings.NewReplacer(
		"{", "&#123;",
		"}", "&#125;",
		">", "&gt;",
		`"`, "&quot;",
		"|", "&#124;",
		"<", "&lt;",
		"&", "&amp;",
	)
	scriptTagReplacer = strings.NewReplacer("</script", `<\/script`)
)

// eatNull returns the text of v with JSON null as the empty string.
func eatNull(v any) string {
	if v == nil {
		return ""
	}
	return node.AsText(v)
}

func escapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

func escapeHTMLAttribute(s string) string {
	return htmlAttrReplacer.Replace(s)
}

func escapeScriptTags(s string) string {
	return scriptTagReplacer.Replace(s)
}

func slugify(s string) string {
	s = slugKillChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	return lower.String(s)
}

func removeTags(s string) string {
	return htmlTags.ReplaceAllString(s, "")
}

// truncate shortens s to at most maxLen grapheme clusters, cutting after
// the last whitespace inside the limit when there is one, and appends
// ellipses.
func truncate(s string, maxLen int, ellipses string) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if uniseg.GraphemeClusterCount(s) <= maxLen {
		return s
	}

	end := 0
	lastSpace := -1
	state := -1
	rest := s
	for i := 0; i < maxLen && rest != ""; i++ {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		end += len(cluster)
		if r := []rune(cluster); len(r) == 1 && unicode.IsSpace(r[0]) {
			lastSpace = end
		}
	}
	if lastSpace >= 0 {
		end = lastSpace
	}
	return s[:end] + ellipses
}

// isJSONStart reports whether s looks like the start of a JSON value.
func isJSONStart(s string) bool {
	s = strings.TrimLeft(s, " ")
	if s == "" {
		return false
	}
	switch s[0] {
	case '"', '-', '[', '{', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	}
	return strings.HasPrefix(s, "false") || strings.HasPrefix(s, "null") || strings.HasPrefix(s, "true")
}

const (
	uriReserved   = ";/?:@&=+$,#"
	uriUnreserved = "-_.!~*'()"
)

// encodeURI escapes s the way JavaScript's encodeURI does.
func encodeURI(s string) string {
	return uriEncode(s, uriReserved+uriUnreserved)
}

// encodeURIComponent escapes s the way JavaScript's encodeURIComponent does.
func encodeURIComponent(s string) string {
	return uriEncode(s, uriUnreserved)
}

func uriEncode(s, keep string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x80 && (isAlnum(c) || strings.IndexByte(keep, c) >= 0) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
