package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/notionrag/internal/models"
)

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

type noteDoc struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

func noteMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Standard analyzer lowercases and tokenizes without stemming, so names match as written.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("content", text)

	kw := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("id", kw)
	docMapping.AddFieldMappingsAt("source", kw)

	im.AddDocumentMapping("note", docMapping)
	im.DefaultType = "note"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates a new, empty Bleve index at path. An existing index at path is removed first:
// the keyword index is always rebuilt in full alongside the vector index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("failed to clear Bleve index: %w", err)
	}
	index, err := bleve.New(path, noteMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// OpenBleveIndex opens an existing index read-only.
func OpenBleveIndex(path string) (*BleveIndex, error) {
	index, err := bleve.OpenUsing(path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, fmt.Errorf("failed to open Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes one note.
func (b *BleveIndex) Index(ctx context.Context, doc *models.Document) error {
	return b.index.Index(doc.ID, toNoteDoc(doc))
}

// IndexBatch indexes notes in a single Bleve batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, docs []models.Document) error {
	batch := b.index.NewBatch()
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(docs[i].ID, toNoteDoc(&docs[i])); err != nil {
			return fmt.Errorf("failed to batch document %s: %w", docs[i].ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index batch: %w", err)
	}
	return nil
}

func toNoteDoc(doc *models.Document) noteDoc {
	return noteDoc{ID: doc.ID, Title: doc.Title, Content: doc.Content, Source: doc.SourceID}
}

// Search returns up to limit notes matching query, best first.
// Multi-term queries with a title boost score title and content separately and
// penalize notes that match only some of the terms.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []*KeywordResult{}, nil
	}
	var o SearchOptions
	if opts != nil {
		o = *opts
	}
	if o.FuzzyEnabled && o.Fuzziness <= 0 {
		o.Fuzziness = 1
	}

	if o.TitleBoost <= 1 {
		hits, err := b.run(b.buildQuery(query, "", o), limit)
		if err != nil {
			return nil, err
		}
		out := make([]*KeywordResult, 0, len(hits))
		for _, h := range hits {
			out = append(out, &KeywordResult{ID: h.id, Score: h.score})
		}
		return out, nil
	}
	return b.searchBoosted(query, limit, o)
}

type hit struct {
	id    string
	score float64
}

func (b *BleveIndex) run(q blevequery.Query, size int) ([]hit, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	hits := make([]hit, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = hit{id: h.ID, score: h.Score}
	}
	return hits, nil
}

func (b *BleveIndex) searchBoosted(query string, limit int, o SearchOptions) ([]*KeywordResult, error) {
	reqSize := max(limit*2, 50)

	titleHits, err := b.run(b.buildQuery(query, "title", o), reqSize)
	if err != nil {
		return nil, err
	}
	contentHits, err := b.run(b.buildQuery(query, "content", o), reqSize)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, h := range titleHits {
		scores[h.id] += h.score * o.TitleBoost
	}
	for _, h := range contentHits {
		scores[h.id] += h.score
	}

	// (matched/total)^2 so notes matching every term outrank partial matches.
	terms := tokenizeQuery(query)
	if len(terms) > 1 {
		coverage := make(map[string]int)
		for _, term := range terms {
			hits, err := b.run(b.buildQuery(term, "", o), reqSize)
			if err != nil {
				continue
			}
			for _, h := range hits {
				coverage[h.id]++
			}
		}
		for id := range scores {
			c := float64(max(coverage[id], 1)) / float64(len(terms))
			scores[id] *= c * c
		}
	}

	merged := make([]hit, 0, len(scores))
	for id, s := range scores {
		merged = append(merged, hit{id: id, score: s})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].id < merged[j].id
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	out := make([]*KeywordResult, len(merged))
	for i, m := range merged {
		out[i] = &KeywordResult{ID: m.id, Score: m.score}
	}
	return out, nil
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries when fuzzy matching is on.
// An empty field searches all fields.
func (b *BleveIndex) buildQuery(query, field string, o SearchOptions) blevequery.Query {
	terms := tokenizeQuery(query)
	if !o.FuzzyEnabled || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(o.Fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of notes in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
