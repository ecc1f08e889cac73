package render

import (
	"regexp"
	"strings"
)

var (
	heading1Re = regexp.MustCompile(`^#\s+(.*)$`)
	heading2Re = regexp.MustCompile(`^##\s+(.*)$`)
	heading3Re = regexp.MustCompile(`^###+\s+(.*)$`)
	listItemRe = regexp.MustCompile(`^( *)(?:([-*])\s+|(\d+)\.\s*)(.*)$`)
)

type converter struct {
	blocks     []Block
	paragraphs []string
	list       []Block
}

func (c *converter) flushParagraphs() {
	for _, line := range c.paragraphs {
		if line = strings.TrimSpace(line); line != "" {
			c.blocks = append(c.blocks, Block{Type: BlockParagraph, RichText: ParseAnnotations(line)})
		}
	}
	c.paragraphs = nil
}

func (c *converter) flushList() {
	c.blocks = append(c.blocks, c.list...)
	c.list = nil
}

func (c *converter) flush() {
	c.flushList()
	c.flushParagraphs()
}

func (c *converter) heading(kind, text string) {
	c.flush()
	c.blocks = append(c.blocks, Block{Type: kind, RichText: ParseAnnotations(strings.TrimSpace(text))})
	if kind == BlockHeading1 {
		c.blocks = append(c.blocks, Block{Type: BlockDivider})
	}
}

func (c *converter) listItem(indent int, bulleted bool, text string) {
	c.flushParagraphs()
	kind := BlockNumberedItem
	if bulleted {
		kind = BlockBulletedItem
	}
	item := Block{Type: kind, RichText: ParseAnnotations(strings.TrimSpace(text))}
	if indent >= 2 && len(c.list) > 0 {
		parent := &c.list[len(c.list)-1]
		parent.Children = append(parent.Children, item)
		return
	}
	c.list = append(c.list, item)
}

// Convert turns markdown-shaped text into native blocks. It supports three
// heading levels, paragraphs terminated by blank lines, bulleted and
// numbered lists where an indent of two or more spaces nests an item under
// the previous top-level item, and inline link, code, bold and italic spans.
func Convert(md string) []Block {
	var c converter
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			c.flush()
			continue
		}
		if m := heading1Re.FindStringSubmatch(line); m != nil {
			c.heading(BlockHeading1, m[1])
			continue
		}
		if m := heading2Re.FindStringSubmatch(line); m != nil {
			c.heading(BlockHeading2, m[1])
			continue
		}
		if m := heading3Re.FindStringSubmatch(line); m != nil {
			c.heading(BlockHeading3, m[1])
			continue
		}
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			c.listItem(len(m[1]), m[2] != "", m[4])
			continue
		}
		c.flushList()
		c.paragraphs = append(c.paragraphs, line)
	}
	c.flush()
	return c.blocks
}
