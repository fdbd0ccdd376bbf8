package search

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/notionrag/internal/keyword"
)

// NoteHit is a keyword match on a whole note.
type NoteHit struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
}

// SearchNotes runs a keyword search over note titles and content. It never calls the
// embedding provider. The keyword index is opened on first use.
func (e *Engine) SearchNotes(ctx context.Context, query string, limit int, snippetRunes int) ([]NoteHit, error) {
	e.kwOnce.Do(func() {
		e.kw, e.kwErr = keyword.OpenBleveIndex(filepath.Join(e.dir, keyword.DirName))
	})
	if e.kwErr != nil {
		return nil, fmt.Errorf("keyword index unavailable: %w", e.kwErr)
	}

	results, err := e.kw.Search(ctx, query, limit, &keyword.SearchOptions{TitleBoost: 3, FuzzyEnabled: true, Fuzziness: 1})
	if err != nil {
		return nil, err
	}
	hits := make([]NoteHit, 0, len(results))
	for _, r := range results {
		doc, err := e.store.GetDocument(ctx, r.ID)
		if err != nil {
			continue
		}
		hits = append(hits, NoteHit{
			DocumentID: doc.ID,
			Title:      doc.Title,
			URL:        doc.Metadata["url"],
			Score:      r.Score,
			Snippet:    Highlight(doc.Content, query, snippetRunes),
		})
	}
	return hits, nil
}

// Highlight returns a window of about maxRunes runes of content around the first query
// term it contains, with "..." marking cut ends. Without a match it returns the start.
func Highlight(content, query string, maxRunes int) string {
	content = strings.Join(strings.Fields(content), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(content) <= maxRunes {
		return content
	}
	runes := []rune(content)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	start := 0
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if i := indexRunes(lower, []rune(term)); i >= 0 {
			start = max(i-maxRunes/4, 0)
			break
		}
	}
	end := min(start+maxRunes, len(runes))
	start = max(end-maxRunes, 0)

	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j := range sub {
			if s[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
