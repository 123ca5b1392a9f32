package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "./uploads"
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}
	if cfg.Server.ShutdownTimeoutMS == 0 {
		cfg.Server.ShutdownTimeoutMS = 10000
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.TimeoutMS == 0 {
		cfg.Qdrant.TimeoutMS = 20000
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "qdrant"
	}
	if cfg.Embedding.ModelDir == "" {
		cfg.Embedding.ModelDir = "./model"
	}
	if cfg.Embedding.ModelFile == "" {
		cfg.Embedding.ModelFile = "model.onnx"
	}
	if cfg.Embedding.TokenizerFile == "" {
		cfg.Embedding.TokenizerFile = "tokenizer.json"
	}
	if cfg.Embedding.ConfigFile == "" {
		cfg.Embedding.ConfigFile = "config.json"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = "mean"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Chunking.Strategy == "" {
		cfg.Chunking.Strategy = "sentences"
	}
	if cfg.Chunking.TargetSize == 0 {
		cfg.Chunking.TargetSize = 200
	}
	if cfg.Chunking.MaxTokens == 0 {
		cfg.Chunking.MaxTokens = 128
	}
	if cfg.Chunking.Workers == 0 {
		cfg.Chunking.Workers = 4
	}
	if cfg.Collection.Policy == "" {
		cfg.Collection.Policy = "fail"
	}
	if cfg.Collection.Distance == "" {
		cfg.Collection.Distance = "dot"
	}
	if cfg.Collection.UpsertBatch == 0 {
		cfg.Collection.UpsertBatch = 256
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 100
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".txt", ".md", ".docx", ".xlsx", ".pptx"}
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
}
