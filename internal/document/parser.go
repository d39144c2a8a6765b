package document

import "strings"

// Parse scans generated text line by line and returns its blocks in order.
//
// Consecutive non-markup lines are buffered and emitted as a single paragraph when the
// next markup line, blank line or end of input is reached. Blank lines are never collapsed.
// A paragraph may consist of whitespace only; renderers drop those.
func Parse(text string) []Block {
	var (
		blocks []Block
		buffer []string
	)

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		blocks = append(blocks, Paragraph(strings.Join(buffer, "\n")))
		buffer = buffer[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()
			blocks = append(blocks, Blank())
		case strings.HasPrefix(trimmed, "# "):
			flush()
			blocks = append(blocks, Heading(1, strings.TrimSpace(trimmed[2:])))
		case strings.HasPrefix(trimmed, "## "):
			flush()
			blocks = append(blocks, Heading(2, strings.TrimSpace(trimmed[3:])))
		case strings.HasPrefix(trimmed, "### "):
			flush()
			blocks = append(blocks, Heading(3, strings.TrimSpace(trimmed[4:])))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			flush()
			blocks = append(blocks, Bullet(strings.TrimSpace(trimmed[2:])))
		case isNumberedItem(trimmed):
			flush()
			item := trimmed
			if _, after, ok := strings.Cut(trimmed, ". "); ok {
				item = after
			}
			blocks = append(blocks, Numbered(item))
		default:
			buffer = append(buffer, line)
		}
	}
	flush()

	return blocks
}

// isNumberedItem matches a single digit 1-9 followed by ". ".
func isNumberedItem(line string) bool {
	if len(line) < 3 {
		return false
	}
	return line[0] >= '1' && line[0] <= '9' && line[1] == '.' && line[2] == ' '
}
