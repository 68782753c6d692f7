package qdrant

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thucydides/internal/vectorstore"
)

func TestSearchSendsStrictFigureFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/collections/sources/points/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))

		var body struct {
			Limit       int  `json:"limit"`
			WithPayload bool `json:"with_payload"`
			Filter      struct {
				Must []struct {
					Key   string `json:"key"`
					Match struct {
						Value string `json:"value"`
					} `json:"match"`
				} `json:"must"`
			} `json:"filter"`
		}
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, 3, body.Limit)
		assert.True(t, body.WithPayload)
		require.Len(t, body.Filter.Must, 1)
		assert.Equal(t, "figure_name", body.Filter.Must[0].Key)
		assert.Equal(t, "Socrates", body.Filter.Must[0].Match.Value)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": []map[string]interface{}{
				{
					"id":    "p1",
					"score": 0.92,
					"payload": map[string]string{
						"figure_name": "Socrates",
						"source_name": "The Apology of Socrates by Plato",
						"text":        "I am wiser than this man.",
					},
				},
				{
					"id":    "p2",
					"score": 0.81,
					"payload": map[string]string{
						"figure_name": "Socrates",
						"source_name": "The Apology of Socrates by Plato",
						"text":        "The unexamined life is not worth living.",
					},
				},
			},
		})
	}))
	defer srv.Close()

	store := New(Config{URL: srv.URL, APIKey: "secret", Collection: "sources"})
	vector := make([]float32, vectorstore.VectorSize)
	docs, err := store.Search(context.Background(), vector, "Socrates", 3)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "p1", docs[0].ID)
	assert.InDelta(t, 0.92, docs[0].Score, 1e-6)
	assert.GreaterOrEqual(t, docs[0].Score, docs[1].Score)
	for _, doc := range docs {
		assert.Equal(t, "Socrates", doc.FigureName)
	}
}

func TestSearchRejectsNonPositiveLimit(t *testing.T) {
	store := New(Config{URL: "http://localhost:6333", Collection: "sources"})
	_, err := store.Search(context.Background(), nil, "Socrates", 0)
	assert.Error(t, err)
}

func TestUpsertSendsPointsWithPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/sources/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))

		var body struct {
			Points []struct {
				ID      string             `json:"id"`
				Vector  []float32          `json:"vector"`
				Payload map[string]string  `json:"payload"`
			} `json:"points"`
		}
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Len(t, body.Points, 1)
		assert.Equal(t, "doc-1", body.Points[0].ID)
		assert.Len(t, body.Points[0].Vector, vectorstore.VectorSize)
		assert.Equal(t, "Cleopatra", body.Points[0].Payload["figure_name"])
		assert.Equal(t, "Plutarch's Life of Antony", body.Points[0].Payload["source_name"])

		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	store := New(Config{URL: srv.URL, Collection: "sources"})
	err := store.Upsert(context.Background(), []vectorstore.IndexedDocument{
		{
			ID:         "doc-1",
			FigureName: "Cleopatra",
			SourceName: "Plutarch's Life of Antony",
			Text:       "...",
			Vector:     make([]float32, vectorstore.VectorSize),
		},
	})
	require.NoError(t, err)
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	store := New(Config{URL: "http://localhost:6333", Collection: "sources"})
	err := store.Upsert(context.Background(), []vectorstore.IndexedDocument{
		{ID: "bad", Vector: []float32{1, 2, 3}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector size")
}

func TestRecreateDeletesThenCreates(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	store := New(Config{URL: srv.URL, Collection: "sources"})
	require.NoError(t, store.Recreate(context.Background()))
	assert.Equal(t, []string{http.MethodDelete, http.MethodPut}, methods)
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"wrong vector size"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	store := New(Config{URL: srv.URL, Collection: "sources"})
	err := store.EnsureCollection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
