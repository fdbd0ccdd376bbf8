//go:build !cgo

package embedding

import (
	"context"
	"errors"
)

var errONNXUnavailable = errors.New("onnx embedder needs a cgo build with onnxruntime installed")

// ONNXEmbedder is unavailable in builds without cgo.
type ONNXEmbedder struct{}

func NewONNXEmbedder(Options) (*ONNXEmbedder, error) { return nil, errONNXUnavailable }

func (*ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errONNXUnavailable
}

func (*ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errONNXUnavailable
}

func (*ONNXEmbedder) Dimensions() int { return 0 }
func (*ONNXEmbedder) Model() string   { return "onnx" }
func (*ONNXEmbedder) Close() error    { return nil }
