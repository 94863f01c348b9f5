//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXEmbedder is unavailable without CGO.
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO.
func NewONNXEmbedder(_ string, _, _ int) (*ONNXEmbedder, error) {
	return nil, errNoCGO
}

func (e *ONNXEmbedder) EmbedDocument(context.Context, string) ([]float32, error) { return nil, errNoCGO }
func (e *ONNXEmbedder) EmbedQuery(context.Context, string) ([]float32, error)    { return nil, errNoCGO }
func (e *ONNXEmbedder) Dimensions() int                                          { return 0 }
func (e *ONNXEmbedder) Close() error                                             { return nil }
func (e *ONNXEmbedder) Describe() string                                         { return "onnx" }
