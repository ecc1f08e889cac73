package render

import (
	"encoding/json"
)

const (
	BlockParagraph    = "paragraph"
	BlockHeading1     = "heading_1"
	BlockHeading2     = "heading_2"
	BlockHeading3     = "heading_3"
	BlockBulletedItem = "bulleted_list_item"
	BlockNumberedItem = "numbered_list_item"
	BlockDivider      = "divider"
)

type Link struct {
	URL string `json:"url"`
}

type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link"`
}

type Annotations struct {
	Bold   bool `json:"bold,omitempty"`
	Italic bool `json:"italic,omitempty"`
	Code   bool `json:"code,omitempty"`
}

type RichText struct {
	Type        string       `json:"type"`
	Text        TextContent  `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

func plainText(s string) RichText {
	return RichText{Type: "text", Text: TextContent{Content: s}}
}

// Block is one native document block. It serializes in the document store's
// shape, with the payload keyed by the block type.
type Block struct {
	Type     string
	RichText []RichText
	Children []Block
}

type blockBody struct {
	RichText []RichText `json:"rich_text"`
	Children []Block    `json:"children,omitempty"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"object": "block",
		"type":   b.Type,
	}
	if b.Type == BlockDivider {
		m[b.Type] = struct{}{}
	} else {
		m[b.Type] = blockBody{RichText: b.RichText, Children: b.Children}
	}
	return json.Marshal(m)
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw["type"], &b.Type); err != nil {
		return err
	}
	if b.Type == BlockDivider {
		return nil
	}
	var body blockBody
	if payload, ok := raw[b.Type]; ok {
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
	}
	b.RichText = body.RichText
	b.Children = body.Children
	return nil
}

// PlainText concatenates the text content of a block.
func (b Block) PlainText() string {
	s := ""
	for _, rt := range b.RichText {
		s += rt.Text.Content
	}
	return s
}
