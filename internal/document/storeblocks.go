package document

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxRichTextRunes is the record store's limit for a single rich text object.
const maxRichTextRunes = 2000

// StoreBlock is a block in the record store's native JSON representation.
type StoreBlock struct {
	Object           string        `json:"object"`
	Type             string        `json:"type"`
	Heading1         *RichTextBody `json:"heading_1,omitempty"`
	Heading2         *RichTextBody `json:"heading_2,omitempty"`
	Heading3         *RichTextBody `json:"heading_3,omitempty"`
	Paragraph        *RichTextBody `json:"paragraph,omitempty"`
	BulletedListItem *RichTextBody `json:"bulleted_list_item,omitempty"`
	NumberedListItem *RichTextBody `json:"numbered_list_item,omitempty"`
}

// RichTextBody wraps the rich text of a block.
type RichTextBody struct {
	RichText []RichText `json:"rich_text"`
}

// RichText is a single text run.
type RichText struct {
	Type string      `json:"type"`
	Text TextContent `json:"text"`
}

// TextContent carries the run content and an optional link.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a rich text hyperlink target.
type Link struct {
	URL string `json:"url"`
}

// Body returns the populated variant of the block.
func (b StoreBlock) Body() *RichTextBody {
	for _, body := range []*RichTextBody{b.Heading1, b.Heading2, b.Heading3, b.Paragraph, b.BulletedListItem, b.NumberedListItem} {
		if body != nil {
			return body
		}
	}
	return nil
}

// PlainText concatenates the content of every rich text run.
func (b StoreBlock) PlainText() string {
	body := b.Body()
	if body == nil {
		return ""
	}
	var sb strings.Builder
	for _, rt := range body.RichText {
		sb.WriteString(rt.Text.Content)
	}
	return sb.String()
}

// RenderStoreBlocks encodes blocks for appending to a record store page.
func RenderStoreBlocks(blocks []Block) []StoreBlock {
	out := make([]StoreBlock, 0, len(blocks))

	for _, block := range blocks {
		switch block.Kind {
		case KindHeading:
			level := clampLevel(block.Level)
			sb := StoreBlock{Object: "block", Type: fmt.Sprintf("heading_%d", level)}
			body := &RichTextBody{RichText: TextRuns(block.Text)}
			switch level {
			case 1:
				sb.Heading1 = body
			case 2:
				sb.Heading2 = body
			default:
				sb.Heading3 = body
			}
			out = append(out, sb)
		case KindParagraph:
			text := strings.TrimSpace(block.Text)
			if text == "" {
				continue
			}
			runs := TextRuns(text)
			if label, url, ok := parseLink(text); ok {
				runs = []RichText{{Type: "text", Text: TextContent{Content: label, Link: &Link{URL: url}}}}
			}
			out = append(out, StoreBlock{Object: "block", Type: "paragraph", Paragraph: &RichTextBody{RichText: runs}})
		case KindBullet:
			out = append(out, StoreBlock{
				Object:           "block",
				Type:             "bulleted_list_item",
				BulletedListItem: &RichTextBody{RichText: TextRuns(block.Text)},
			})
		case KindNumbered:
			out = append(out, StoreBlock{
				Object:           "block",
				Type:             "numbered_list_item",
				NumberedListItem: &RichTextBody{RichText: TextRuns(block.Text)},
			})
		case KindBlank:
			out = append(out, StoreBlock{Object: "block", Type: "paragraph", Paragraph: &RichTextBody{RichText: []RichText{}}})
		}
	}

	return out
}

// TextRuns splits text into rich text runs that respect the store's per-run length limit.
func TextRuns(text string) []RichText {
	if text == "" {
		return []RichText{}
	}

	var runs []RichText
	for text != "" {
		cut := len(text)
		if utf8.RuneCountInString(text) > maxRichTextRunes {
			cut = 0
			for i := 0; i < maxRichTextRunes; i++ {
				_, size := utf8.DecodeRuneInString(text[cut:])
				cut += size
			}
		}
		runs = append(runs, RichText{Type: "text", Text: TextContent{Content: text[:cut]}})
		text = text[cut:]
	}
	return runs
}
