package report

import (
	"strings"
)

type NodeKind int

const (
	NodeBlank NodeKind = iota
	NodeHeading
	NodeParagraph
	NodeListItem
)

// Node is one line of a digest section. Level is the heading level (1-3)
// for headings and the nesting depth (0-2) for list items.
type Node struct {
	Kind  NodeKind
	Level int
	Text  string
}

func Heading(level int, text string) Node { return Node{Kind: NodeHeading, Level: level, Text: text} }
func Paragraph(text string) Node          { return Node{Kind: NodeParagraph, Text: text} }
func ListItem(depth int, text string) Node {
	return Node{Kind: NodeListItem, Level: depth, Text: text}
}
func Blank() Node { return Node{Kind: NodeBlank} }

func (n Node) markdown() string {
	switch n.Kind {
	case NodeHeading:
		return strings.Repeat("#", n.Level) + " " + n.Text
	case NodeParagraph:
		return n.Text
	case NodeListItem:
		return strings.Repeat("    ", n.Level) + "* " + n.Text
	}
	return ""
}

type SectionName string

const (
	SectionVacations SectionName = "vacations"
	SectionReleases  SectionName = "releases"
	SectionDigest    SectionName = "digest"
	SectionJournals  SectionName = "journals"
)

// sectionOrder fixes the final concatenation order regardless of the order
// formatters ran in.
var sectionOrder = []SectionName{SectionVacations, SectionReleases, SectionDigest, SectionJournals}

// Document is a digest under construction. It is a value: every With*
// method returns a new Document and leaves the receiver untouched.
type Document struct {
	Title    string
	Tag      string
	Summary  []string
	sections map[SectionName][]Node
}

func NewDocument(title, tag string) Document {
	return Document{Title: title, Tag: tag}
}

// WithSection returns a copy of d with the named section replaced and the
// given summary lines appended.
func (d Document) WithSection(name SectionName, nodes []Node, summary ...string) Document {
	next := make(map[SectionName][]Node, len(d.sections)+1)
	for k, v := range d.sections {
		next[k] = v
	}
	next[name] = append([]Node(nil), nodes...)
	d.sections = next
	d.Summary = append(append([]string(nil), d.Summary...), summary...)
	return d
}

func (d Document) Section(name SectionName) []Node {
	return d.sections[name]
}

func (d Document) HasSection(name SectionName) bool {
	_, ok := d.sections[name]
	return ok
}

// Markdown concatenates all present sections in their fixed order.
func (d Document) Markdown() string {
	var parts []string
	for _, name := range sectionOrder {
		nodes, ok := d.sections[name]
		if !ok || len(nodes) == 0 {
			continue
		}
		lines := make([]string, 0, len(nodes))
		for _, n := range nodes {
			lines = append(lines, n.markdown())
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
