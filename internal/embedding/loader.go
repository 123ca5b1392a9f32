package embedding

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hyperjump/folio/internal/config"
	"go.uber.org/zap"
)

// NewLoader returns a Loader that builds the model described by cfg. When the model
// file is missing and cfg.AllowMock is set it falls back to a MockEmbedder.
func NewLoader(cfg config.EmbeddingConfig, logger *zap.Logger) Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context) (Embedder, error) {
		if _, err := os.Stat(cfg.ModelPath()); err != nil {
			if cfg.AllowMock && errors.Is(err, fs.ErrNotExist) {
				logger.Warn("model file not found, using mock embeddings",
					zap.String("model", cfg.ModelPath()))
				return NewMockEmbedder(cfg.Dimensions), nil
			}
			return nil, fmt.Errorf("model file: %w", err)
		}

		dims := cfg.Dimensions
		if dims <= 0 {
			d, err := ReadModelDimensions(cfg.ConfigPath())
			if err != nil {
				return nil, err
			}
			dims = d
		}
		pooling, err := ParsePooling(cfg.Pooling)
		if err != nil {
			return nil, err
		}
		tok, err := loadTokenizer(cfg.TokenizerPath(), logger)
		if err != nil {
			return nil, err
		}

		logger.Debug("loading ONNX model",
			zap.String("model", cfg.ModelPath()),
			zap.Int("dimensions", dims),
			zap.String("pooling", string(pooling)),
		)
		model, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:     cfg.ModelPath(),
			Tokenizer:     tok,
			SharedLibrary: cfg.SharedLibrary,
			Dimensions:    dims,
			MaxTokens:     cfg.MaxTokens,
			BatchSize:     cfg.BatchSize,
			OutputName:    cfg.OutputName,
			Pooling:       pooling,
		})
		if err != nil {
			return nil, err
		}
		return model, nil
	}
}

func loadTokenizer(path string, logger *zap.Logger) (Tokenizer, error) {
	tok, err := LoadWordPieceTokenizer(path)
	if err == nil {
		return tok, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("tokenizer not found, using whitespace tokenizer", zap.String("path", path))
		return &SimpleTokenizer{}, nil
	}
	return nil, err
}
