package document

// Kind tags the variant held by a Block.
type Kind int

const (
	KindBlank Kind = iota
	KindHeading
	KindParagraph
	KindBullet
	KindNumbered
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindBullet:
		return "bullet"
	case KindNumbered:
		return "numbered"
	default:
		return "blank"
	}
}

// Block is one typed unit of generated content. Level is only meaningful for headings (1-3).
type Block struct {
	Kind  Kind
	Level int
	Text  string
}

// Heading builds a heading block.
func Heading(level int, text string) Block {
	return Block{Kind: KindHeading, Level: level, Text: text}
}

// Paragraph builds a paragraph block.
func Paragraph(text string) Block {
	return Block{Kind: KindParagraph, Text: text}
}

// Bullet builds a bulleted list item.
func Bullet(text string) Block {
	return Block{Kind: KindBullet, Text: text}
}

// Numbered builds a numbered list item.
func Numbered(text string) Block {
	return Block{Kind: KindNumbered, Text: text}
}

// Blank builds a blank separator.
func Blank() Block {
	return Block{Kind: KindBlank}
}
