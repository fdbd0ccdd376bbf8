package notion

import (
	"encoding/json"
	"fmt"
)

// Block is one node of a page's content tree. Content holds the
// type-specific payload as one of a closed set of variants.
type Block struct {
	ID          string
	Type        string
	HasChildren bool
	Archived    bool
	InTrash     bool
	Content     BlockContent
}

// BlockContent is implemented only by the variants in this file.
type BlockContent interface {
	text() string
}

// RichTextBlock covers paragraphs, headings, list items, to-dos, toggles,
// quotes, callouts, and code.
type RichTextBlock struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language,omitempty"`
	Checked  bool       `json:"checked,omitempty"`
}

func (b *RichTextBlock) text() string { return PlainTextOf(b.RichText) }

// TitleBlock is a child_page or child_database reference.
type TitleBlock struct {
	Title string `json:"title"`
}

func (b *TitleBlock) text() string { return b.Title }

// LinkBlock is a bookmark or embed.
type LinkBlock struct {
	URL string `json:"url"`
}

func (b *LinkBlock) text() string { return b.URL }

// EquationBlock holds a KaTeX expression.
type EquationBlock struct {
	Expression string `json:"expression"`
}

func (b *EquationBlock) text() string { return b.Expression }

// FileBlock is a pdf or file attachment. Its own text is the caption;
// the attachment body is only read when extraction is enabled.
type FileBlock struct {
	Name     string     `json:"name,omitempty"`
	Caption  []RichText `json:"caption,omitempty"`
	Kind     string     `json:"type"`
	File     *fileURL   `json:"file,omitempty"`
	External *fileURL   `json:"external,omitempty"`
}

type fileURL struct {
	URL string `json:"url"`
}

func (b *FileBlock) text() string { return PlainTextOf(b.Caption) }

// URL returns the download location of the attachment.
func (b *FileBlock) URL() string {
	switch {
	case b.File != nil:
		return b.File.URL
	case b.External != nil:
		return b.External.URL
	}
	return ""
}

// UnknownBlock is any unsupported or unrecognized block type.
type UnknownBlock struct{}

func (UnknownBlock) text() string { return "" }

var richTextTypes = map[string]bool{
	"paragraph":          true,
	"heading_1":          true,
	"heading_2":          true,
	"heading_3":          true,
	"bulleted_list_item": true,
	"numbered_list_item": true,
	"to_do":              true,
	"toggle":             true,
	"quote":              true,
	"callout":            true,
	"code":               true,
}

// Text returns the block's own extracted text. Unknown types yield "".
func (b *Block) Text() string {
	if b.Content == nil {
		return ""
	}
	return b.Content.text()
}

// UnmarshalJSON decodes the common block fields and the payload stored
// under the key named by "type".
func (b *Block) UnmarshalJSON(data []byte) error {
	var head struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
		Archived    bool   `json:"archived"`
		InTrash     bool   `json:"in_trash"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.ID = head.ID
	b.Type = head.Type
	b.HasChildren = head.HasChildren
	b.Archived = head.Archived
	b.InTrash = head.InTrash
	b.Content = UnknownBlock{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, ok := raw[head.Type]
	if !ok || len(payload) == 0 || string(payload) == "null" {
		return nil
	}

	var content BlockContent
	switch {
	case richTextTypes[head.Type]:
		content = &RichTextBlock{}
	case head.Type == "child_page", head.Type == "child_database":
		content = &TitleBlock{}
	case head.Type == "bookmark", head.Type == "embed":
		content = &LinkBlock{}
	case head.Type == "equation":
		content = &EquationBlock{}
	case head.Type == "pdf", head.Type == "file":
		content = &FileBlock{}
	default:
		return nil
	}
	if err := json.Unmarshal(payload, content); err != nil {
		return fmt.Errorf("failed to decode %s block %s: %w", head.Type, head.ID, err)
	}
	b.Content = content
	return nil
}
