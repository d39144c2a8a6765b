package document

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// blockTags are the elements that mark a response as an HTML document rather than
// Markdown with an occasional inline tag.
const blockTags = "h1, h2, h3, h4, p, ul, ol, li, div, section, article"

// Normalize converts generated text that came back as HTML into Markdown so the parser sees
// headings and list items. Markdown input is returned untouched.
func Normalize(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "<") {
		return text
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return text
	}
	if doc.Find(blockTags).Length() == 0 {
		return text
	}

	converted := md.NewConverter("", true, nil).Convert(doc.Selection)
	if strings.TrimSpace(converted) == "" {
		return text
	}
	return converted
}
