package ai

import "context"

// Service binds a GeminiClient to its generation and embedding configuration
// so callers do not carry config through every call site.
type Service struct {
	client *GeminiClient
	genCfg GenerationConfig
	embCfg EmbeddingConfig
}

func NewService(client *GeminiClient, genCfg GenerationConfig, embCfg EmbeddingConfig) *Service {
	return &Service{client: client, genCfg: genCfg, embCfg: embCfg}
}

func (s *Service) StreamGenerate(ctx context.Context, req GenerateRequest, onChunk func(chunk string) error) (string, error) {
	return s.client.StreamGenerate(ctx, s.genCfg, req, onChunk)
}

// EmbedQuery embeds a search query with the retrieval-query task type.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.client.Embed(ctx, s.embCfg, text, TaskQuery)
}

// EmbedDocuments embeds a batch of corpus chunks with the retrieval-document
// task type.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return s.client.EmbedBatch(ctx, s.embCfg, texts, TaskDocument)
}
