package notion

import "strings"

// UntitledTitle is used when a page carries no title property.
const UntitledTitle = "Untitled"

// RichText is one inline span of formatted text.
type RichText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

// PlainTextOf concatenates spans, falling back to text.content when plain_text is empty.
func PlainTextOf(spans []RichText) string {
	var sb strings.Builder
	for _, s := range spans {
		switch {
		case s.PlainText != "":
			sb.WriteString(s.PlainText)
		case s.Text != nil:
			sb.WriteString(s.Text.Content)
		}
	}
	return sb.String()
}

// Parent identifies the container of a page, database, or data source.
type Parent struct {
	Type         string `json:"type"`
	PageID       string `json:"page_id,omitempty"`
	DatabaseID   string `json:"database_id,omitempty"`
	DataSourceID string `json:"data_source_id,omitempty"`
	BlockID      string `json:"block_id,omitempty"`
	Workspace    bool   `json:"workspace,omitempty"`
}

// Property is a page property. Only the title type carries text used here.
type Property struct {
	ID    string     `json:"id"`
	Type  string     `json:"type"`
	Title []RichText `json:"title,omitempty"`
}

// Page is a Notion page or data-source row.
type Page struct {
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	LastEditedTime string              `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	InTrash        bool                `json:"in_trash"`
	Parent         Parent              `json:"parent"`
	Properties     map[string]Property `json:"properties"`
}

// Title returns the text of the page's title-typed property, or UntitledTitle.
func (p *Page) Title() string {
	for _, prop := range p.Properties {
		if prop.Type != "title" {
			continue
		}
		if t := PlainTextOf(prop.Title); t != "" {
			return t
		}
		return UntitledTitle
	}
	return UntitledTitle
}

// DataSource is a table of rows belonging to a database.
type DataSource struct {
	ID             string     `json:"id"`
	Object         string     `json:"object"`
	Title          []RichText `json:"title,omitempty"`
	Parent         Parent     `json:"parent"`
	DatabaseParent Parent     `json:"database_parent"`
}

// Name returns the data source's title text.
func (d *DataSource) Name() string { return PlainTextOf(d.Title) }

// Database is a container of one or more data sources.
type Database struct {
	ID          string     `json:"id"`
	Title       []RichText `json:"title,omitempty"`
	Parent      Parent     `json:"parent"`
	DataSources []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data_sources"`
}

// BlockList is one page of block children.
type BlockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// PageList is one page of data-source rows.
type PageList struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// DataSourceList is one page of search results filtered to data sources.
type DataSourceList struct {
	Results    []DataSource `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor *string      `json:"next_cursor"`
}

func nextCursor(hasMore bool, cursor *string) string {
	if !hasMore || cursor == nil {
		return ""
	}
	return *cursor
}
