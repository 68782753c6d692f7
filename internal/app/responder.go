package app

import (
	"context"

	"thucydides/internal/ai"
	"thucydides/internal/model"
	"thucydides/internal/vectorstore"
)

// chatTopK is how many source passages back a single answer.
const chatTopK = 3

const degradedAnswer = "I am currently facing difficulty processing your request with the available sources."

// Embedder turns text into a retrieval-query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator streams model output chunk by chunk and returns the full text.
type Generator interface {
	StreamGenerate(ctx context.Context, req ai.GenerateRequest, onChunk func(chunk string) error) (string, error)
}

// Responder runs one retrieval-augmented answer turn: embed the question,
// pull the figure's best-matching passages, prompt the model in persona, and
// stream the reply.
type Responder struct {
	embedder  Embedder
	index     vectorstore.Index
	generator Generator
}

type AnswerInput struct {
	Persona       string
	FigureName    string
	Query         string
	History       []model.Message
	AllowExternal bool
}

func NewResponder(embedder Embedder, index vectorstore.Index, generator Generator) *Responder {
	return &Responder{embedder: embedder, index: index, generator: generator}
}

// StreamAnswer emits text events as the model produces them, then exactly one
// citations event. Upstream failures never propagate: the caller instead
// receives a fixed apology text followed by an empty citations event, so the
// terminal event is guaranteed either way. The returned error is non-nil only
// when emit itself fails.
func (r *Responder) StreamAnswer(ctx context.Context, input AnswerInput, emit EmitFunc) error {
	docs, err := r.retrieve(ctx, input.Query, input.FigureName)
	if err != nil {
		return degrade(emit)
	}

	history := make([]ai.ChatMessage, 0, len(input.History))
	for _, msg := range input.History {
		role := "model"
		if msg.Role == model.RoleUser {
			role = "user"
		}
		history = append(history, ai.ChatMessage{Role: role, Content: msg.Content})
	}

	req := ai.GenerateRequest{
		SystemInstruction: buildAnswerPrompt(input.Persona, input.Query, docs, input.AllowExternal),
		History:           history,
		Prompt:            "Please answer my last question based on the sources and instructions provided.",
	}

	var emitErr error
	if _, err := r.generator.StreamGenerate(ctx, req, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		emitErr = emit(StreamEvent{Type: EventText, Content: chunk})
		return emitErr
	}); err != nil {
		if emitErr != nil {
			return emitErr
		}
		return degrade(emit)
	}

	citations := make([]model.Citation, 0, len(docs))
	for _, doc := range docs {
		citations = append(citations, model.Citation{Source: doc.SourceName, TextQuote: doc.Text})
	}
	return emit(StreamEvent{Type: EventCitations, Data: citations})
}

func (r *Responder) retrieve(ctx context.Context, query, figureName string) ([]vectorstore.RetrievedDocument, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.index.Search(ctx, vector, figureName, chatTopK)
}

func degrade(emit EmitFunc) error {
	if err := emit(StreamEvent{Type: EventText, Content: degradedAnswer}); err != nil {
		return err
	}
	return emit(StreamEvent{Type: EventCitations, Data: []model.Citation{}})
}
