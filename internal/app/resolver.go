package app

import (
	"context"
	"encoding/json"

	"thucydides/internal/ai"
	"thucydides/internal/model"
	"thucydides/internal/pkg/jsonstream"
)

const resolverFailure = "An unexpected error occurred with the AI service."

// MatchPayload is the canonical figure triple emitted on a successful match.
// It is rebuilt from the candidate row, never trusted from model output.
type MatchPayload struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Resolver runs the figure-matching reasoning stream: the model narrates its
// search as a series of JSON objects which are scanned out of the raw token
// stream and re-emitted as typed events.
type Resolver struct {
	generator Generator
}

type MatchInput struct {
	Query         string
	Candidates    []model.Figure
	FileContext   string
	AllowExternal bool
}

func NewResolver(generator Generator) *Resolver {
	return &Resolver{generator: generator}
}

type narration struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StreamMatch emits log events as the model reasons, then a match or error
// event, and always a final done event. A transport or decode failure turns
// into a single error event before done. The returned error is non-nil only
// when emit itself fails.
func (r *Resolver) StreamMatch(ctx context.Context, input MatchInput, emit EmitFunc) error {
	req := ai.GenerateRequest{
		Prompt: buildMatchPrompt(input.Query, input.Candidates, input.FileContext, input.AllowExternal),
	}

	scanner := &jsonstream.Scanner{}
	var emitErr error
	_, genErr := r.generator.StreamGenerate(ctx, req, func(chunk string) error {
		for _, raw := range scanner.Write(chunk) {
			var obj narration
			if err := json.Unmarshal(raw, &obj); err != nil {
				continue
			}
			if emitErr = r.emitNarration(obj, input.Candidates, emit); emitErr != nil {
				return emitErr
			}
		}
		return nil
	})
	if genErr != nil {
		if emitErr != nil {
			return emitErr
		}
		if err := emit(StreamEvent{Type: EventError, Payload: resolverFailure}); err != nil {
			return err
		}
	}
	return emit(StreamEvent{Type: EventDone})
}

func (r *Resolver) emitNarration(obj narration, candidates []model.Figure, emit EmitFunc) error {
	switch obj.Type {
	case "log", "error":
		var text string
		if err := json.Unmarshal(obj.Payload, &text); err != nil {
			return nil
		}
		return emit(StreamEvent{Type: EventType(obj.Type), Payload: text})
	case "match":
		var payload struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(obj.Payload, &payload); err != nil {
			return nil
		}
		for _, f := range candidates {
			if f.Name == payload.Name {
				return emit(StreamEvent{
					Type:    EventMatch,
					Payload: MatchPayload{ID: f.ID, Name: f.Name, Avatar: f.Avatar},
				})
			}
		}
		// The model named a figure outside the candidate list. Surface it
		// as an error rather than inventing an id for a row we don't have.
		return emit(StreamEvent{
			Type:    EventError,
			Payload: "I could not find a suitable figure for your request. Please try rephrasing.",
		})
	default:
		return nil
	}
}
