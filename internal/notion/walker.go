package notion

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"
)

// DefaultMaxDepth bounds nesting below the root.
const DefaultMaxDepth = 32

// BlockLister lists one page of a block's children.
type BlockLister interface {
	ListBlockChildren(ctx context.Context, blockID, cursor string) (*BlockList, error)
}

// Walker traverses a block tree depth-first using an explicit stack.
type Walker struct {
	lister             BlockLister
	maxDepth           int
	skipFailedChildren bool
	logger             *zap.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithMaxDepth caps how deep the walk descends. Deeper children are skipped.
func WithMaxDepth(depth int) WalkerOption {
	return func(w *Walker) {
		if depth > 0 {
			w.maxDepth = depth
		}
	}
}

// WithSkipFailedChildren logs and skips subtrees whose children cannot be listed
// instead of ending the walk. Failures at the root are always returned.
func WithSkipFailedChildren() WalkerOption {
	return func(w *Walker) { w.skipFailedChildren = true }
}

// WithWalkerLogger sets the logger.
func WithWalkerLogger(l *zap.Logger) WalkerOption {
	return func(w *Walker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWalker creates a walker over lister.
func NewWalker(lister BlockLister, opts ...WalkerOption) *Walker {
	w := &Walker{lister: lister, maxDepth: DefaultMaxDepth, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type frame struct {
	blockID string
	depth   int
	blocks  []Block
	pos     int
	cursor  string
	loaded  bool
}

// exhausted reports whether the frame has no buffered blocks and no further pages.
func (f *frame) exhausted() bool {
	return f.loaded && f.pos >= len(f.blocks) && f.cursor == ""
}

// Walk yields every live block under rootID in reading order: a block, then
// its descendants, then its next sibling. Each block's children are paged
// through to completion before the walk moves on. Archived and trashed blocks
// and their subtrees are skipped. The sequence is single-use; after an error
// is yielded it ends.
func (w *Walker) Walk(ctx context.Context, rootID string) iter.Seq2[*Block, error] {
	return func(yield func(*Block, error) bool) {
		stack := []*frame{{blockID: rootID}}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			top := stack[len(stack)-1]
			if top.exhausted() {
				stack = stack[:len(stack)-1]
				continue
			}
			if !top.loaded || top.pos >= len(top.blocks) {
				list, err := w.lister.ListBlockChildren(ctx, top.blockID, top.cursor)
				if err != nil {
					if top.depth > 0 && w.skipFailedChildren {
						w.logger.Warn("skipping block children",
							zap.String("block_id", top.blockID),
							zap.Int("depth", top.depth),
							zap.Error(err))
						stack = stack[:len(stack)-1]
						continue
					}
					yield(nil, fmt.Errorf("failed to list children of %s: %w", top.blockID, err))
					return
				}
				top.blocks = list.Results
				top.pos = 0
				top.loaded = true
				top.cursor = nextCursor(list.HasMore, list.NextCursor)
				w.logger.Debug("listed block children",
					zap.String("block_id", top.blockID),
					zap.Int("depth", top.depth),
					zap.Int("count", len(list.Results)),
					zap.Bool("has_more", top.cursor != ""))
				continue
			}

			b := &top.blocks[top.pos]
			top.pos++
			if b.Archived || b.InTrash {
				continue
			}
			if !yield(b, nil) {
				return
			}
			if !b.HasChildren {
				continue
			}
			if top.depth+1 > w.maxDepth {
				w.logger.Warn("max depth reached, skipping children",
					zap.String("block_id", b.ID),
					zap.Int("max_depth", w.maxDepth))
				continue
			}
			stack = append(stack, &frame{blockID: b.ID, depth: top.depth + 1})
		}
	}
}
