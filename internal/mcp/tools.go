package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/answer"
	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/models"
)

const maxK = 50

// AskInput is the input schema for ask_notes.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the notes"`
	Debug    bool   `json:"debug,omitempty" jsonschema:"include the retrieved chunks in the output"`
}

// AskOutput is the output schema for ask_notes.
type AskOutput struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Chunks  []Chunk  `json:"chunks,omitempty"`
}

// Source is a note that contributed context to an answer.
type Source struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
}

// RetrieveInput is the input schema for retrieve_notes.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the text to find similar note passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return (default 8)"`
}

// RetrieveOutput is the output schema for retrieve_notes.
type RetrieveOutput struct {
	Chunks []Chunk `json:"chunks"`
}

// Chunk is one retrieved passage.
type Chunk struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

// SearchInput is the input schema for search_notes.
type SearchInput struct {
	Query string `json:"query" jsonschema:"keywords to look for in note titles and content"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of notes to return (default 10)"`
}

// SearchOutput is the output schema for search_notes.
type SearchOutput struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// SearchResult is one keyword hit.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_notes",
		Description: "Answer a question using only the indexed Notion notes",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve_notes",
		Description: "Return the note passages most similar to a query, without generating an answer",
	}, s.handleRetrieve)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_notes",
		Description: "Keyword search over note titles and content",
	}, s.handleSearch)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	a, err := s.assistant.Ask(ctx, input.Question)
	if err != nil {
		s.logger.Debug("ask_notes failed", zap.Error(err))
		if errors.Is(err, indexer.ErrNoIndex) {
			return nil, AskOutput{}, errors.New(answer.NoIndexMessage)
		}
		if a.Text == "" {
			return nil, AskOutput{}, err
		}
		return nil, AskOutput{}, errors.New(a.Text)
	}
	out := AskOutput{Answer: a.Text, Sources: sources(a.Chunks)}
	if input.Debug {
		out.Chunks = toChunks(a.Chunks)
	}
	return nil, out, nil
}

func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RetrieveOutput{}, fmt.Errorf("query is required")
	}
	k := input.K
	if k <= 0 {
		k = s.defaultK
	}
	if k > maxK {
		k = maxK
	}
	chunks, err := s.assistant.RetrieveK(ctx, input.Query, k)
	if err != nil {
		if errors.Is(err, indexer.ErrNoIndex) {
			return nil, RetrieveOutput{}, errors.New(answer.NoIndexMessage)
		}
		return nil, RetrieveOutput{}, err
	}
	return nil, RetrieveOutput{Chunks: toChunks(chunks)}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	hits, err := s.assistant.SearchNotes(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	out := SearchOutput{Results: make([]SearchResult, len(hits)), Count: len(hits)}
	for i, h := range hits {
		out.Results[i] = SearchResult{DocumentID: h.DocumentID, Title: h.Title, URL: h.URL, Score: h.Score, Snippet: h.Snippet}
	}
	return nil, out, nil
}

// sources lists each contributing note once, in retrieval order.
func sources(chunks []models.RetrievedChunk) []Source {
	out := make([]Source, 0, len(chunks))
	seen := make(map[string]bool)
	for _, ch := range chunks {
		if seen[ch.DocumentID] {
			continue
		}
		seen[ch.DocumentID] = true
		out = append(out, Source{DocumentID: ch.DocumentID, Title: ch.Title, URL: ch.Metadata[models.MetaURL]})
	}
	return out
}

func toChunks(chunks []models.RetrievedChunk) []Chunk {
	out := make([]Chunk, len(chunks))
	for i, ch := range chunks {
		out[i] = Chunk{DocumentID: ch.DocumentID, Title: ch.Title, Content: ch.Content, Score: ch.Score}
	}
	return out
}
