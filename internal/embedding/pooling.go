package embedding

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Pooling reduces per-token hidden states to one vector per input.
type Pooling string

const (
	// PoolingMean averages token states weighted by the attention mask.
	PoolingMean Pooling = "mean"
	// PoolingCLS takes the first token state.
	PoolingCLS Pooling = "cls"
	// PoolingNone expects the model output to already be one vector per input.
	PoolingNone Pooling = "none"
)

// ParsePooling parses a pooling name; empty means mean pooling.
func ParsePooling(s string) (Pooling, error) {
	switch p := Pooling(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PoolingMean, nil
	case PoolingMean, PoolingCLS, PoolingNone:
		return p, nil
	default:
		return "", fmt.Errorf("unknown pooling %q", s)
	}
}

// Pool reduces hidden, laid out as [batch][tokens][dim], into batch vectors.
// mask is [batch][tokens].
func (p Pooling) Pool(hidden []float32, mask []int64, batch, tokens, dim int) [][]float32 {
	out := make([][]float32, batch)
	for b := range batch {
		vec := make([]float32, dim)
		base := b * tokens * dim
		switch p {
		case PoolingCLS:
			copy(vec, hidden[base:base+dim])
		default:
			var count float32
			for t := range tokens {
				if mask[b*tokens+t] == 0 {
					continue
				}
				row := hidden[base+t*dim : base+(t+1)*dim]
				for i, v := range row {
					vec[i] += v
				}
				count++
			}
			if count > 0 {
				for i := range vec {
					vec[i] /= count
				}
			}
		}
		out[b] = vec
	}
	return out
}

type modelConfig struct {
	HiddenSize int `json:"hidden_size"`
	Dim        int `json:"dim"`
}

// ReadModelDimensions returns the hidden size declared in a model config.json.
func ReadModelDimensions(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read model config: %w", err)
	}
	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return 0, fmt.Errorf("failed to parse model config: %w", err)
	}
	switch {
	case cfg.HiddenSize > 0:
		return cfg.HiddenSize, nil
	case cfg.Dim > 0:
		return cfg.Dim, nil
	}
	return 0, fmt.Errorf("model config %s declares no hidden_size", path)
}
