package document

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fumiama/go-docx"
)

const (
	titleSize     = "48"
	timestampSize = "20"
	mutedColor    = "808080"
	dividerColor  = "000000"
	// dividerWidth is 6 inches in EMU.
	dividerWidth = 5486400
	dividerLine  = 12700
)

var headingSizes = map[int]string{1: "36", 2: "30", 3: "26"}

var markdownLink = regexp.MustCompile(`^\[([^\]]+)\]\((\S+)\)$`)

// RenderDocx encodes blocks as a Word document headed by title and a generation timestamp.
func RenderDocx(title string, blocks []Block, generatedAt time.Time) ([]byte, error) {
	doc := buildDocx(title, blocks, generatedAt)

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}

func buildDocx(title string, blocks []Block, generatedAt time.Time) *docx.Docx {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().Justification("center").
		AddText(title).Bold().Size(titleSize)
	doc.AddParagraph().Justification("center").
		AddText("Generated: " + generatedAt.Format("2006-01-02 15:04:05")).
		Size(timestampSize).Color(mutedColor)
	doc.AddParagraph()

	number := 0
	for _, block := range blocks {
		if block.Kind != KindNumbered {
			number = 0
		}

		switch block.Kind {
		case KindHeading:
			level := clampLevel(block.Level)
			doc.AddParagraph().Style(fmt.Sprintf("Heading%d", level)).
				AddText(block.Text).Bold().Size(headingSizes[level])
		case KindParagraph:
			text := strings.TrimSpace(block.Text)
			if text == "" {
				continue
			}
			para := doc.AddParagraph()
			if label, url, ok := parseLink(text); ok {
				para.AddLink(label, url)
				continue
			}
			para.AddText(text)
		case KindBullet:
			doc.AddParagraph().Style("ListBullet").AddText("• " + block.Text)
		case KindNumbered:
			number++
			doc.AddParagraph().Style("ListNumber").AddText(fmt.Sprintf("%d. %s", number, block.Text))
		case KindBlank:
			doc.AddParagraph()
		}
	}

	doc.AddParagraph().Justification("center").
		AddInlineShape(dividerWidth, 0, "Divider", "auto", "line", &docx.ALine{
			W:         dividerLine,
			SolidFill: &docx.ASolidFill{SrgbClr: &docx.ASrgbClr{Val: dividerColor}},
		})

	return doc
}

func clampLevel(level int) int {
	switch {
	case level < 1:
		return 1
	case level > 3:
		return 3
	default:
		return level
	}
}

// parseLink matches a paragraph made of exactly one Markdown link.
func parseLink(text string) (label, url string, ok bool) {
	m := markdownLink.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
