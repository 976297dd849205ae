package registration

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultDownloadSlug is used when the producer name yields no usable characters
const DefaultDownloadSlug = "piaui-mais-genetica"

// DownloadFileName returns the attachment filename offered for a receipt
// download, e.g. "inscricao-joao-da-silva.pdf".
func DownloadFileName(name string) string {
	slug := Slugify(name)
	if slug == "" {
		slug = DefaultDownloadSlug
	}
	return "inscricao-" + slug + ".pdf"
}

// Slugify lower-cases s, strips diacritics, joins words with '-' and drops
// anything that is not an ASCII letter or digit.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	words := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(words, "-")
}
