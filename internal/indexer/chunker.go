// Package indexer chunks notes and rebuilds the on-disk index from them.
package indexer

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/hyperjump/notionrag/internal/models"
)

// Separators in priority order: paragraph, line, sentence, word, character.
var Separators = []string{"\n\n", "\n", ". ", " ", ""}

// chunkNamespace scopes deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("4f6c1d0e-8a39-5b1f-9c7e-2d3a4b5c6d7e")

// Chunker splits note text into overlapping, size-bounded chunks measured in runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(Separators),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}
}

// Split returns the chunk texts for one piece of text. Blank text yields no chunks.
func (c *Chunker) Split(text string) ([]string, error) {
	text = Preprocess(text)
	if text == "" {
		return nil, nil
	}
	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// Chunk splits each document and returns chunks in document order. Each chunk inherits its
// document's metadata. Chunk IDs are derived from the document ID and position, so the same
// input always produces the same chunks.
func (c *Chunker) Chunk(docs []models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, doc := range docs {
		texts, err := c.Split(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		for i, text := range texts {
			chunks = append(chunks, models.Chunk{
				ID:         ChunkID(doc.ID, i),
				DocumentID: doc.ID,
				SourceID:   doc.SourceID,
				Title:      doc.Title,
				Content:    text,
				ChunkIndex: i,
				Metadata:   maps.Clone(doc.Metadata),
			})
		}
	}
	return chunks, nil
}

// ChunkID returns the deterministic ID of the i-th chunk of a document.
func ChunkID(docID string, i int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(docID+"#"+strconv.Itoa(i))).String()
}
