package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"go.uber.org/zap"
)

// chromaBatchSize bounds the records sent per Add call.
const chromaBatchSize = 256

// ChromaIndex stores vectors in a Chroma collection. The collection uses
// cosine distance; Search converts distances back to similarity.
type ChromaIndex struct {
	client     chromago.Client
	name       string
	dimensions int
	logger     *zap.Logger

	mu         sync.RWMutex
	collection chromago.Collection
}

// ChromaOption configures a ChromaIndex.
type ChromaOption func(*ChromaIndex)

// WithChromaLogger sets the logger.
func WithChromaLogger(l *zap.Logger) ChromaOption {
	return func(c *ChromaIndex) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChromaIndex connects to the Chroma server at baseURL (empty for the
// client default) and opens or creates the named collection.
func NewChromaIndex(ctx context.Context, baseURL, collection string, dimensions int, opts ...ChromaOption) (*ChromaIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	var clientOpts []chromago.ClientOption
	if baseURL != "" {
		clientOpts = append(clientOpts, chromago.WithBaseURL(baseURL))
	}
	client, err := chromago.NewHTTPClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}
	c := &ChromaIndex{client: client, name: collection, dimensions: dimensions, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.open(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return c, nil
}

func (c *ChromaIndex) open(ctx context.Context) error {
	col, err := c.client.GetOrCreateCollection(ctx, c.name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
				chromago.NewStringAttribute("created_by", "notionrag"),
				chromago.NewIntAttribute("dimensions", int64(c.dimensions)),
			),
		),
		chromago.WithEmbeddingFunctionCreate(precomputed{}),
	)
	if err != nil {
		return fmt.Errorf("failed to open collection %s: %w", c.name, err)
	}
	c.mu.Lock()
	c.collection = col
	c.mu.Unlock()
	return nil
}

func (c *ChromaIndex) current() chromago.Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection
}

// Add uploads records in batches with their text and metadata.
func (c *ChromaIndex) Add(ctx context.Context, records []Record) error {
	col := c.current()
	for start := 0; start < len(records); start += chromaBatchSize {
		batch := records[start:min(start+chromaBatchSize, len(records))]
		ids := make([]chromago.DocumentID, len(batch))
		texts := make([]string, len(batch))
		embs := make([]embeddings.Embedding, len(batch))
		metas := make([]chromago.DocumentMetadata, len(batch))
		for i, r := range batch {
			if len(r.Vector) != c.dimensions {
				return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", r.ID, len(r.Vector), c.dimensions)
			}
			ids[i] = chromago.DocumentID(r.ID)
			texts[i] = r.Content
			embs[i] = embeddings.NewEmbeddingFromFloat32(r.Vector)
			attrs := make([]*chromago.MetaAttribute, 0, len(r.Metadata))
			for k, v := range r.Metadata {
				attrs = append(attrs, chromago.NewStringAttribute(k, v))
			}
			metas[i] = chromago.NewDocumentMetadata(attrs...)
		}
		if err := col.Add(ctx,
			chromago.WithIDs(ids...),
			chromago.WithTexts(texts...),
			chromago.WithEmbeddings(embs...),
			chromago.WithMetadatas(metas...),
		); err != nil {
			return fmt.Errorf("failed to add to chroma: %w", err)
		}
		c.logger.Debug("chroma batch added", zap.String("collection", c.name), zap.Int("count", len(batch)))
	}
	return nil
}

// Search queries the collection; scores are 1 - cosine distance.
func (c *ChromaIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != c.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), c.dimensions)
	}
	if k <= 0 {
		return []Result{}, nil
	}
	res, err := c.current().Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(query)),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chroma: %w", err)
	}
	out := []Result{}
	idGroups := res.GetIDGroups()
	if len(idGroups) == 0 {
		return out, nil
	}
	var distances embeddings.Distances
	if dg := res.GetDistancesGroups(); len(dg) > 0 {
		distances = dg[0]
	}
	for i, id := range idGroups[0] {
		r := Result{ID: string(id)}
		if i < len(distances) {
			r.Score = 1 - float64(distances[i])
		}
		out = append(out, r)
	}
	return out, nil
}

// Reset drops and recreates the collection.
func (c *ChromaIndex) Reset(ctx context.Context) error {
	if err := c.client.DeleteCollection(ctx, c.name); err != nil {
		c.logger.Debug("chroma delete collection", zap.String("collection", c.name), zap.Error(err))
	}
	return c.open(ctx)
}

// Save is a no-op; Chroma persists server side.
func (c *ChromaIndex) Save(string) error { return nil }

// Load is a no-op; the collection is read live.
func (c *ChromaIndex) Load(string) error { return nil }

// Size returns the collection count.
func (c *ChromaIndex) Size(ctx context.Context) (int, error) {
	n, err := c.current().Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count chroma collection %s: %w", c.name, err)
	}
	return n, nil
}

// precomputed stands in for Chroma's embedding function. Every record and
// query carries its own vector, so the collection never embeds text itself.
type precomputed struct{}

var errPrecomputed = errors.New("chroma collection expects precomputed embeddings")

func (precomputed) EmbedDocuments(context.Context, []string) ([]embeddings.Embedding, error) {
	return nil, errPrecomputed
}

func (precomputed) EmbedQuery(context.Context, string) (embeddings.Embedding, error) {
	return nil, errPrecomputed
}

// Close releases the client.
func (c *ChromaIndex) Close() error {
	return c.client.Close()
}
