// Package cli provides output writers for the notionrag commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/rag"
	"github.com/hyperjump/notionrag/internal/search"
	"github.com/hyperjump/notionrag/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

const rule = "============================================================"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer. In debug mode the retrieved chunks are listed first,
// each cut to previewRunes.
func WriteAnswer(w io.Writer, a models.Answer, debug bool, previewRunes int, format OutputFormat) error {
	if format == OutputJSON {
		if !debug {
			a.Chunks = nil
		}
		return writeJSON(w, a)
	}
	if debug {
		fmt.Fprintln(w, "--- Retrieved chunks ---")
		for i, ch := range a.Chunks {
			fmt.Fprintf(w, "\n[%d] %s\n\n", i+1, utils.Truncate(ch.Content, previewRunes))
		}
		fmt.Fprint(w, "--- Answer ---\n\n")
	}
	fmt.Fprintln(w, a.Text)
	return nil
}

// WriteChunks writes retrieved chunks with their scores.
func WriteChunks(w io.Writer, chunks []models.RetrievedChunk, previewRunes int, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"chunks": chunks})
	}
	if len(chunks) == 0 {
		fmt.Fprintln(w, "No matching chunks.")
		return nil
	}
	for i, ch := range chunks {
		fmt.Fprintf(w, "[%d] %.4f  %s\n", i+1, ch.Score, titleOrUntitled(ch.Title))
		fmt.Fprintf(w, "    %s\n\n", utils.Preview(ch.Content, previewRunes))
	}
	return nil
}

// WriteNoteHits writes keyword search hits.
func WriteNoteHits(w io.Writer, query string, hits []search.NoteHit, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"query": query, "hits": hits})
	}
	fmt.Fprintf(w, "\nFound %d notes matching %q\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintf(w, "%d. %s (score %.3f)\n", i+1, titleOrUntitled(h.Title), h.Score)
		if h.URL != "" {
			fmt.Fprintf(w, "   %s\n", h.URL)
		}
		if h.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", h.Snippet)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteTitles writes the quick explore listing.
func WriteTitles(w io.Writer, titles []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"titles": titles})
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "YOUR NOTION NOTES (%d titles)\n", len(titles))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	for _, t := range titles {
		fmt.Fprintf(w, "  • %s\n", t)
	}
	fmt.Fprintln(w, "\nUse words from these titles in your questions.")
	fmt.Fprintln(w, "   Run without --quick to see sample content.")
	return nil
}

// Explore limits.
const (
	ExploreTitles  = 25
	ExploreSamples = 5
)

type exploreJSON struct {
	Total   int           `json:"total"`
	Titles  []string      `json:"titles"`
	Samples []exploreNote `json:"samples"`
}

type exploreNote struct {
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// WriteExplore writes titles, content samples and question ideas for docs.
func WriteExplore(w io.Writer, docs []models.Document, previewRunes int, format OutputFormat) error {
	titles := make([]string, 0, ExploreTitles)
	for i := 0; i < len(docs) && i < ExploreTitles; i++ {
		titles = append(titles, titleOrUntitled(docs[i].Title))
	}
	samples := make([]exploreNote, 0, ExploreSamples)
	for i := 0; i < len(docs) && i < ExploreSamples; i++ {
		samples = append(samples, exploreNote{
			Title:   titleOrUntitled(docs[i].Title),
			Preview: utils.Preview(docs[i].Content, previewRunes),
		})
	}
	if format == OutputJSON {
		return writeJSON(w, exploreJSON{Total: len(docs), Titles: titles, Samples: samples})
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "WHAT'S IN YOUR NOTION (%d notes)\n", len(docs))
	fmt.Fprintln(w, rule)
	fmt.Fprint(w, "\nNote titles:\n\n")
	for _, t := range titles {
		fmt.Fprintf(w, "  • %s\n", t)
	}
	if len(docs) > ExploreTitles {
		fmt.Fprintf(w, "  ... and %d more\n", len(docs)-ExploreTitles)
	}
	fmt.Fprintln(w, "\n"+strings.Repeat("-", len(rule)))
	fmt.Fprintf(w, "Sample content (from first %d notes):\n\n", ExploreSamples)
	for _, s := range samples {
		fmt.Fprintf(w, "  [%s]\n  %s\n\n", s.Title, s.Preview)
	}
	fmt.Fprintln(w, strings.Repeat("-", len(rule)))
	fmt.Fprint(w, "TRY ASKING QUESTIONS USING WORDS FROM ABOVE:\n\n")
	fmt.Fprintln(w, "  • What coaching services are offered?")
	fmt.Fprintln(w, "  • How can I book or schedule a session?")
	fmt.Fprintln(w, "  • Tell me about [topic from your notes]")
	fmt.Fprintln(w, "\nTIPS:")
	fmt.Fprintln(w, "  - Use keywords from your note titles and content")
	fmt.Fprintln(w, "  - Run 'notionrag ingest' to index these notes")
	fmt.Fprintln(w, "  - Use --debug to see what gets retrieved:")
	fmt.Fprintln(w, "    notionrag query \"your question\" --debug")
	fmt.Fprintln(w, rule)
	return nil
}

// WriteStatus writes the served index status.
func WriteStatus(w io.Writer, st *rag.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	m := st.Manifest
	fmt.Fprintf(w, "Index:          %s\n", st.Dir)
	fmt.Fprintf(w, "Documents:      %d\n", st.Documents)
	fmt.Fprintf(w, "Chunks:         %d\n", st.Chunks)
	fmt.Fprintf(w, "Model:          %s (%d dims)\n", m.EmbeddingModel, m.Dimensions)
	fmt.Fprintf(w, "Chunking:       %d / %d overlap\n", m.ChunkSize, m.ChunkOverlap)
	fmt.Fprintf(w, "Vector backend: %s\n", m.VectorBackend)
	if !m.BuiltAt.IsZero() {
		fmt.Fprintf(w, "Built:          %s\n", m.BuiltAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Disk usage:     %s\n", FormatBytes(st.DiskBytes))
	return nil
}

// WriteUsage writes a user's usage for today.
func WriteUsage(w io.Writer, u models.Usage, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, u)
	}
	fmt.Fprintf(w, "%s: %d of %d prompts used today (%d remaining)\n", u.User, u.Used, u.Limit, u.Remaining)
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func titleOrUntitled(t string) string {
	if strings.TrimSpace(t) == "" {
		return "Untitled"
	}
	return t
}
