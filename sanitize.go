package pdfwrap

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// entityReplacer maps the currency glyphs some fonts render poorly to
// named entities.
var entityReplacer = strings.NewReplacer(
	"€", "&euro;",
	"£", "&pound;",
	"$", "&dollar;",
)

// ConvertEntities replaces €, £ and $ with their named HTML entities.
func ConvertEntities(s string) string {
	return entityReplacer.Replace(s)
}

// Letters that do not decompose into ASCII plus combining marks.
var asciiFolds = map[rune]string{
	'ß': "ss", 'Æ': "AE", 'æ': "ae", 'Ø': "O", 'ø': "o",
	'Œ': "OE", 'œ': "oe", 'Ł': "L", 'ł': "l", 'Đ': "D",
	'đ': "d", 'Þ': "TH", 'þ': "th", 'ı': "i",
}

// FallbackName reduces filename to printable ASCII without '%' so it can
// be quoted in a Content-Disposition header.
func FallbackName(filename string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, filename)
	if err != nil {
		folded = filename
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r == '%' || r == '"' || r == '\\':
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		default:
			b.WriteString(asciiFolds[r])
		}
	}
	return b.String()
}
