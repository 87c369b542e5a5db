package prose

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DescriptionLen is the rune limit for meta descriptions.
const DescriptionLen = 160

// PlainText returns the text content of an HTML fragment with whitespace
// runs collapsed to single spaces. Entities are decoded.
func PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return strings.TrimSpace(s[:pos])
		}
		i++
	}
	return s
}

// Description is the meta description for an HTML fragment.
func Description(html string) string {
	return Truncate(PlainText(html), DescriptionLen)
}
