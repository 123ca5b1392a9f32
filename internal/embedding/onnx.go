//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/folio/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder uses ONNX Runtime to produce embeddings. It requires CGO and the onnxruntime shared library.
// Tensors are allocated once with a fixed [batch, tokens] shape, so runs must not overlap.
type ONNXEmbedder struct {
	session   *ort.AdvancedSession
	opts      ONNXOptions
	tokenizer Tokenizer

	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
}

// NewONNXEmbedder creates an ONNX embedder. The runtime environment is initialized if not already done.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	opts.applyDefaults()
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("ONNX embedder needs the model dimensions")
	}
	if !ort.IsInitialized() {
		if opts.SharedLibrary != "" {
			ort.SetSharedLibraryPath(opts.SharedLibrary)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	batch, tokens, dim := int64(opts.BatchSize), int64(opts.MaxTokens), int64(opts.Dimensions)
	e := &ONNXEmbedder{opts: opts, tokenizer: opts.Tokenizer}

	var err error
	if e.inputIDsTensor, err = ort.NewTensor(ort.NewShape(batch, tokens), make([]int64, batch*tokens)); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewTensor(ort.NewShape(batch, tokens), make([]int64, batch*tokens)); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDsTensor, err = ort.NewTensor(ort.NewShape(batch, tokens), make([]int64, batch*tokens)); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outShape := ort.NewShape(batch, tokens, dim)
	if opts.Pooling == PoolingNone {
		outShape = ort.NewShape(batch, dim)
	}
	if e.outputTensor, err = ort.NewTensor(outShape, make([]float32, outShape.FlattenedSize())); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return e, nil
}

// EmbedBatch runs the model over texts in chunks of the tensor batch size.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+e.opts.BatchSize, len(texts))
		vecs, err := e.run(texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *ONNXEmbedder) run(texts []string) ([][]float32, error) {
	tokens := e.opts.MaxTokens
	ids := e.inputIDsTensor.GetData()
	mask := e.attentionMaskTensor.GetData()
	types := e.tokenTypeIDsTensor.GetData()
	clear(ids)
	clear(mask)
	clear(types)

	for i, text := range texts {
		inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, tokens)
		copy(ids[i*tokens:(i+1)*tokens], inputIDs)
		copy(mask[i*tokens:(i+1)*tokens], attentionMask)
		copy(types[i*tokens:(i+1)*tokens], tokenTypeIDs)
	}

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	dim := e.opts.Dimensions
	hidden := e.outputTensor.GetData()
	var vecs [][]float32
	if e.opts.Pooling == PoolingNone {
		vecs = make([][]float32, len(texts))
		for i := range texts {
			vecs[i] = cloneVector(hidden[i*dim : (i+1)*dim])
		}
	} else {
		vecs = e.opts.Pooling.Pool(hidden, mask, len(texts), tokens, dim)
	}
	for _, v := range vecs {
		utils.NormalizeL2(v)
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.opts.Dimensions
}

// ConcurrentSafe is false; runs share the preallocated tensors.
func (e *ONNXEmbedder) ConcurrentSafe() bool { return false }

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
