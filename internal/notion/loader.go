package notion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/models"
)

const (
	pageSeparator = "\n\n"
	rowSeparator  = "\n"
)

// AttachmentExtractor turns a downloaded attachment into plain text.
type AttachmentExtractor interface {
	Extract(name string, data []byte) (string, error)
}

// Selection names what to load. A data source id, when set, is used alone.
type Selection struct {
	PageIDs      []string
	DatabaseID   string
	DataSourceID string
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.PageIDs) == 0 && strings.TrimSpace(s.DatabaseID) == "" && strings.TrimSpace(s.DataSourceID) == ""
}

// Loader builds documents from pages, data sources, and databases.
type Loader struct {
	client             *Client
	maxDepth           int
	extractor          AttachmentExtractor
	maxAttachmentBytes int64
	logger             *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger.
func WithLoaderLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithLoaderMaxDepth caps block nesting during page walks.
func WithLoaderMaxDepth(depth int) LoaderOption {
	return func(ld *Loader) { ld.maxDepth = depth }
}

// WithAttachments enables text extraction from pdf and file blocks up to maxBytes each.
func WithAttachments(ex AttachmentExtractor, maxBytes int64) LoaderOption {
	return func(ld *Loader) {
		ld.extractor = ex
		ld.maxAttachmentBytes = maxBytes
	}
}

// NewLoader creates a loader backed by client.
func NewLoader(client *Client, opts ...LoaderOption) *Loader {
	ld := &Loader{client: client, maxDepth: DefaultMaxDepth, maxAttachmentBytes: 20 << 20, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load resolves a selection to documents. A data source id is loaded alone.
// Otherwise the database (if any) is loaded first, where a failure is logged
// and skipped, then each page id. A page that hosts a data source is replaced
// by that data source's rows; each data source is loaded once. Page ids that
// are not valid Notion ids are skipped. A page or data-source failure aborts the load.
func (l *Loader) Load(ctx context.Context, sel Selection) ([]models.Document, error) {
	if ds := strings.TrimSpace(sel.DataSourceID); ds != "" {
		return l.LoadDataSource(ctx, ds)
	}

	var docs []models.Document
	if db := strings.TrimSpace(sel.DatabaseID); db != "" {
		dbDocs, err := l.LoadDatabase(ctx, db)
		if err != nil {
			l.logger.Warn("database load failed, continuing", zap.String("database_id", db), zap.Error(err))
		} else {
			docs = append(docs, dbDocs...)
		}
	}

	seen := make(map[string]bool)
	for _, raw := range sel.PageIDs {
		pageID, err := NormalizeID(raw)
		if err != nil {
			l.logger.Warn("skipping invalid page id", zap.String("page_id", raw))
			continue
		}
		if dsID := l.DiscoverDataSource(ctx, pageID); dsID != "" {
			key, _ := CompactID(dsID)
			if seen[key] {
				continue
			}
			seen[key] = true
			rows, err := l.LoadDataSource(ctx, dsID)
			if err != nil {
				return nil, err
			}
			docs = append(docs, rows...)
			continue
		}
		doc, err := l.LoadPage(ctx, pageID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadPage fetches one page and its full block tree. Any failure is returned.
func (l *Loader) LoadPage(ctx context.Context, rawID string) (models.Document, error) {
	pageID, err := NormalizeID(rawID)
	if err != nil {
		return models.Document{}, err
	}
	page, err := l.client.RetrievePage(ctx, pageID)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to load page %s: %w", pageID, err)
	}
	walker := NewWalker(l.client, WithMaxDepth(l.maxDepth), WithWalkerLogger(l.logger))
	parts, err := l.collect(ctx, walker, pageID)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to load page %s: %w", pageID, err)
	}
	title := page.Title()
	doc := newDocument(pageID, title, joinOrPlaceholder(parts, pageSeparator, title), page, models.KindPage)
	l.logger.Debug("loaded page", zap.String("page_id", pageID), zap.String("title", title), zap.Int("parts", len(parts)))
	return doc, nil
}

// LoadDataSource pages through every row of a data source. A row whose
// content cannot be fetched is logged and kept with placeholder text.
// Failure to list rows is returned.
func (l *Loader) LoadDataSource(ctx context.Context, rawID string) ([]models.Document, error) {
	dsID, err := NormalizeID(rawID)
	if err != nil {
		return nil, err
	}
	walker := NewWalker(l.client, WithMaxDepth(l.maxDepth), WithSkipFailedChildren(), WithWalkerLogger(l.logger))

	var docs []models.Document
	cursor := ""
	for {
		list, err := l.client.QueryDataSource(ctx, dsID, cursor, PageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to query data source %s: %w", dsID, err)
		}
		for i := range list.Results {
			row := &list.Results[i]
			title := row.Title()
			parts, err := l.collect(ctx, walker, row.ID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				l.logger.Warn("row content unavailable", zap.String("page_id", row.ID), zap.String("title", title), zap.Error(err))
				parts = nil
			}
			doc := newDocument(row.ID, title, joinOrPlaceholder(parts, rowSeparator, title), row, models.KindRow)
			doc.Metadata[models.MetaDataSourceID] = dsID
			docs = append(docs, doc)
		}
		cursor = nextCursor(list.HasMore, list.NextCursor)
		if cursor == "" {
			break
		}
	}
	l.logger.Debug("loaded data source", zap.String("data_source_id", dsID), zap.Int("rows", len(docs)))
	return docs, nil
}

// LoadDatabase loads every data source of a database.
func (l *Loader) LoadDatabase(ctx context.Context, rawID string) ([]models.Document, error) {
	dbID, err := NormalizeID(rawID)
	if err != nil {
		return nil, err
	}
	db, err := l.client.RetrieveDatabase(ctx, dbID)
	if err != nil {
		return nil, fmt.Errorf("failed to load database %s: %w", dbID, err)
	}
	if len(db.DataSources) == 0 {
		return nil, fmt.Errorf("database %s has no data sources", dbID)
	}
	var docs []models.Document
	for _, ds := range db.DataSources {
		rows, err := l.LoadDataSource(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, rows...)
	}
	return docs, nil
}

// ListTitles returns up to limit row titles without fetching block content.
func (l *Loader) ListTitles(ctx context.Context, rawID string, limit int) ([]string, error) {
	dsID, err := NormalizeID(rawID)
	if err != nil {
		return nil, err
	}
	var titles []string
	cursor := ""
	for {
		list, err := l.client.QueryDataSource(ctx, dsID, cursor, PageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to query data source %s: %w", dsID, err)
		}
		for i := range list.Results {
			if limit > 0 && len(titles) >= limit {
				return titles, nil
			}
			titles = append(titles, list.Results[i].Title())
		}
		cursor = nextCursor(list.HasMore, list.NextCursor)
		if cursor == "" {
			return titles, nil
		}
	}
}

// collect walks rootID and returns the trimmed, non-empty text of each block.
func (l *Loader) collect(ctx context.Context, walker *Walker, rootID string) ([]string, error) {
	var parts []string
	for b, err := range walker.Walk(ctx, rootID) {
		if err != nil {
			return nil, err
		}
		if t := strings.TrimSpace(b.Text()); t != "" {
			parts = append(parts, t)
		}
		if fb, ok := b.Content.(*FileBlock); ok && l.extractor != nil {
			if t := strings.TrimSpace(l.attachmentText(ctx, b.ID, fb)); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return parts, nil
}

func (l *Loader) attachmentText(ctx context.Context, blockID string, fb *FileBlock) string {
	u := fb.URL()
	if u == "" {
		return ""
	}
	name := fb.Name
	if name == "" {
		name = fileNameFromURL(u)
	}
	data, err := l.client.Download(ctx, u, l.maxAttachmentBytes)
	if err != nil {
		l.logger.Warn("attachment download failed", zap.String("block_id", blockID), zap.Error(err))
		return ""
	}
	text, err := l.extractor.Extract(name, data)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			l.logger.Warn("attachment extraction failed", zap.String("block_id", blockID), zap.String("name", name), zap.Error(err))
		}
		return ""
	}
	return text
}

func fileNameFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}

func joinOrPlaceholder(parts []string, sep, title string) string {
	content := strings.TrimSpace(strings.Join(parts, sep))
	if content == "" {
		return Placeholder(title)
	}
	return content
}

// Placeholder is the text of a document whose content is empty.
func Placeholder(title string) string {
	return "[Page: " + title + "]"
}

func newDocument(id, title, content string, page *Page, kind string) models.Document {
	return models.Document{
		ID:       id,
		SourceID: id,
		Title:    title,
		Content:  content,
		Metadata: map[string]string{
			models.MetaSource:         id,
			models.MetaTitle:          title,
			models.MetaURL:            page.URL,
			models.MetaKind:           kind,
			models.MetaLastEditedTime: page.LastEditedTime,
		},
	}
}
