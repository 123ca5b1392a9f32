package embedding

// ONNXOptions locates the model artifacts and fixes the tensor shapes.
type ONNXOptions struct {
	ModelPath     string
	Tokenizer     Tokenizer
	SharedLibrary string
	Dimensions    int
	MaxTokens     int
	BatchSize     int
	OutputName    string
	Pooling       Pooling
}

func (o *ONNXOptions) applyDefaults() {
	if o.Tokenizer == nil {
		o.Tokenizer = &SimpleTokenizer{}
	}
	if o.MaxTokens <= 2 {
		o.MaxTokens = 256
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.OutputName == "" {
		o.OutputName = "last_hidden_state"
	}
	if o.Pooling == "" {
		o.Pooling = PoolingMean
	}
}
