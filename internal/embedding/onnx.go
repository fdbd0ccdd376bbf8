//go:build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/notionrag/pkg/utils"
)

var onnxInputNames = []string{"input_ids", "attention_mask", "token_type_ids"}

// onnxIO holds the tensors bound to a session. Inputs are rewritten in place
// before each run.
type onnxIO struct {
	ids, mask, types *ort.Tensor[int64]
	out              *ort.Tensor[float32]
}

func newONNXIO(seqLen, dims int) (*onnxIO, error) {
	io := &onnxIO{}
	inShape := ort.NewShape(1, int64(seqLen))
	var err error
	for _, slot := range []**ort.Tensor[int64]{&io.ids, &io.mask, &io.types} {
		if *slot, err = ort.NewEmptyTensor[int64](inShape); err != nil {
			io.destroy()
			return nil, fmt.Errorf("failed to allocate input tensor: %w", err)
		}
	}
	if io.out, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dims))); err != nil {
		io.destroy()
		return nil, fmt.Errorf("failed to allocate output tensor: %w", err)
	}
	return io, nil
}

func (io *onnxIO) inputs() []ort.ArbitraryTensor {
	return []ort.ArbitraryTensor{io.ids, io.mask, io.types}
}

func (io *onnxIO) outputs() []ort.ArbitraryTensor { return []ort.ArbitraryTensor{io.out} }

func (io *onnxIO) load(enc Encoding) {
	copy(io.ids.GetData(), enc.IDs)
	copy(io.mask.GetData(), enc.Mask)
	copy(io.types.GetData(), enc.Types)
}

func (io *onnxIO) destroy() error {
	var errs []error
	for _, t := range []*ort.Tensor[int64]{io.ids, io.mask, io.types} {
		if t != nil {
			errs = append(errs, t.Destroy())
		}
	}
	if io.out != nil {
		errs = append(errs, io.out.Destroy())
	}
	return errors.Join(errs...)
}

// ONNXEmbedder runs a local sentence-embedding model through ONNX Runtime.
// It needs CGO and the onnxruntime shared library at run time.
type ONNXEmbedder struct {
	mu        sync.Mutex
	session   *ort.AdvancedSession
	io        *onnxIO
	tokenizer Tokenizer
	model     string
	dims      int
	seqLen    int
}

// NewONNXEmbedder loads the model at opts.ModelPath. The model must take
// BERT-style inputs and produce a single pooled vector named "output".
func NewONNXEmbedder(opts Options) (*ONNXEmbedder, error) {
	switch {
	case opts.ModelPath == "":
		return nil, fmt.Errorf("%w: onnx model path", ErrMissingOption)
	case opts.Dimensions <= 0:
		return nil, fmt.Errorf("%w: onnx dimensions", ErrMissingOption)
	}
	seqLen := opts.MaxTokens
	if seqLen <= 0 {
		seqLen = defaultMaxTokens
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
		}
	}

	io, err := newONNXIO(seqLen, opts.Dimensions)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewAdvancedSession(opts.ModelPath, onnxInputNames, []string{"output"}, io.inputs(), io.outputs(), nil)
	if err != nil {
		_ = io.destroy()
		return nil, fmt.Errorf("failed to load onnx model %s: %w", opts.ModelPath, err)
	}
	return &ONNXEmbedder{
		session:   session,
		io:        io,
		tokenizer: HashTokenizer{},
		model:     "onnx:" + filepath.Base(opts.ModelPath),
		dims:      opts.Dimensions,
		seqLen:    seqLen,
	}, nil
}

// Embed returns the unit-length embedding of text. Runs are serialized
// because the session shares one set of tensors.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, ErrClosed
	}

	e.io.load(e.tokenizer.Encode(text, e.seqLen))
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("failed to run onnx model: %w", err)
	}
	vec := append([]float32(nil), e.io.out.GetData()[:e.dims]...)
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (e *ONNXEmbedder) Dimensions() int { return e.dims }

// Model returns "onnx:" and the model file name.
func (e *ONNXEmbedder) Model() string { return e.model }

// Close releases the session and its tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := errors.Join(e.session.Destroy(), e.io.destroy())
	e.session, e.io = nil, nil
	return err
}
