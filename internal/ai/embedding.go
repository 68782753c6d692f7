package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Task hints passed to the embedding model. They change the model's internal
// weighting for indexing versus querying, not the shape of the result.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

// EmbeddingConfig holds API settings for the text-embedding endpoint.
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Embed returns the embedding vector for a single text.
func (c *GeminiClient) Embed(ctx context.Context, cfg EmbeddingConfig, text, taskType string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, cfg, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request and returns one vector per input,
// index-aligned. The batch fails atomically: any upstream failure surfaces as
// a single error with no partial results.
func (c *GeminiClient) EmbedBatch(ctx context.Context, cfg EmbeddingConfig, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding input %d is empty", i)
		}
	}

	type embedRequest struct {
		Model    string        `json:"model"`
		Content  geminiContent `json:"content"`
		TaskType string        `json:"taskType"`
	}
	requests := make([]embedRequest, len(texts))
	for i, t := range texts {
		requests[i] = embedRequest{
			Model:    "models/" + cfg.Model,
			Content:  geminiContent{Parts: []geminiPart{{Text: t}}},
			TaskType: taskType,
		}
	}

	bodyBytes, err := json.Marshal(map[string]interface{}{"requests": requests})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents",
		strings.TrimRight(cfg.BaseURL, "/"), cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(parsed.Embeddings))
	}

	vectors := make([][]float32, len(parsed.Embeddings))
	for i := range parsed.Embeddings {
		if len(parsed.Embeddings[i].Values) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vectors[i] = parsed.Embeddings[i].Values
	}
	return vectors, nil
}
