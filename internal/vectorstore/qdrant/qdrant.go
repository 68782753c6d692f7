// Package qdrant is a minimal REST client for a Qdrant collection holding
// figure-partitioned source chunks.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"thucydides/internal/vectorstore"
)

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

var _ vectorstore.Index = (*Store)(nil)

// EnsureCollection creates the collection if it does not exist. Qdrant
// answers 200 when a collection with the same schema is already present.
func (s *Store) EnsureCollection(ctx context.Context) error {
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorstore.VectorSize,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body, nil)
}

// Recreate drops the collection and creates it empty.
func (s *Store) Recreate(ctx context.Context) error {
	// Deleting a missing collection is not an error worth surfacing; the
	// create below fails loudly if the server is actually unreachable.
	_ = s.do(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", s.collection), nil, nil)
	return s.EnsureCollection(ctx)
}

func (s *Store) Upsert(ctx context.Context, docs []vectorstore.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	points := make([]map[string]interface{}, len(docs))
	for i, doc := range docs {
		if len(doc.Vector) != vectorstore.VectorSize {
			return fmt.Errorf("document %s has vector size %d, want %d", doc.ID, len(doc.Vector), vectorstore.VectorSize)
		}
		points[i] = map[string]interface{}{
			"id":     doc.ID,
			"vector": doc.Vector,
			"payload": map[string]interface{}{
				"figure_name": doc.FigureName,
				"source_name": doc.SourceName,
				"text":        doc.Text,
			},
		}
	}
	body := map[string]interface{}{"points": points}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), body, nil)
}

func (s *Store) Search(ctx context.Context, vector []float32, figureName string, limit int) ([]vectorstore.RetrievedDocument, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("search limit must be positive, got %d", limit)
	}
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{
					"key":   "figure_name",
					"match": map[string]interface{}{"value": figureName},
				},
			},
		},
	}

	var resp struct {
		Result []struct {
			ID      string          `json:"id"`
			Score   float32         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection), body, &resp); err != nil {
		return nil, err
	}

	docs := make([]vectorstore.RetrievedDocument, 0, len(resp.Result))
	for _, hit := range resp.Result {
		var payload struct {
			FigureName string `json:"figure_name"`
			SourceName string `json:"source_name"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(hit.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode search payload failed: %w", err)
		}
		docs = append(docs, vectorstore.RetrievedDocument{
			IndexedDocument: vectorstore.IndexedDocument{
				ID:         hit.ID,
				FigureName: payload.FigureName,
				SourceName: payload.SourceName,
				Text:       payload.Text,
			},
			Score: hit.Score,
		})
	}
	return docs, nil
}

// Ping checks that the collection is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", s.collection), nil, nil)
}

func (s *Store) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal qdrant request failed: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("build qdrant request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode qdrant response failed: %w", err)
		}
	}
	return nil
}
