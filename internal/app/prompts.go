package app

import (
	"fmt"
	"strings"

	"thucydides/internal/model"
	"thucydides/internal/vectorstore"
)

const maxFileContextChars = 2000

// buildPersonaPrompt produces the base system instruction for a figure.
// Retrieval context is layered on top per turn by buildAnswerPrompt.
func buildPersonaPrompt(figure model.Figure) string {
	return fmt.Sprintf(`You are an AI expert embodying the historical figure: %s (%s).
Your persona, speaking style, and knowledge MUST be based on this person's historical context.
RULES:
1. Persona: Always speak in the first person ("I", "my", "me") from the perspective of %s.
2. Style: Adopt a tone and vocabulary appropriate to the figure's era and personality.
3. Knowledge Source: You will be provided with source material. Confine your knowledge STRICTLY to what is in that material.
4. Introduction: If asked to introduce yourself, provide a brief, in-character summary of who you are based on the sources.`,
		figure.Name, figure.Title, figure.Name)
}

// buildAnswerPrompt assembles the persona, retrieved source excerpts, the
// user's question and the task instruction into a single system instruction.
func buildAnswerPrompt(persona, query string, docs []vectorstore.RetrievedDocument, allowExternal bool) string {
	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", doc.SourceName, doc.Text))
	}
	contextStr := strings.Join(blocks, "\n\n")

	task := "Respond to the user's question. Your response MUST be based *only* on the Source Material provided above. Do not use any external knowledge. If the answer is not in the sources, state that you cannot answer from the provided texts. Speak in your persona."
	if allowExternal {
		task = "Respond to the user's question. You may use your general knowledge to supplement information not found in the Source Material, but you MUST prioritize and use the provided sources when they are relevant. Speak in your persona."
	}

	return fmt.Sprintf(`%s

---
Source Material:
You have been provided with the following excerpts from primary and secondary sources.
%s
---

User's Question: "%s"

---
Task:
%s
Keep the response concise and directly related to the question.`,
		persona, contextStr, query, task)
}

// buildMatchPrompt instructs the model to narrate a figure search as a series
// of JSON objects ending in a match or error object.
func buildMatchPrompt(query string, candidates []model.Figure, fileContext string, allowExternal bool) string {
	lines := make([]string, 0, len(candidates))
	for _, f := range candidates {
		lines = append(lines, fmt.Sprintf("- %s: %s", f.Name, f.Description))
	}
	figureList := strings.Join(lines, "\n")

	contextBlock := ""
	if fileContext != "" {
		truncated := fileContext
		if runes := []rune(truncated); len(runes) > maxFileContextChars {
			truncated = string(runes[:maxFileContextChars])
		}
		contextBlock = fmt.Sprintf(`
The user has also provided the following text for additional context. Use this to better understand their query and find a more relevant match from the list.
---
User's Context:
%s
---
`, truncated)
	}

	task := "Your task is to find the best historical figure from the provided list that strictly matches the user's query. Confine your analysis ONLY to the provided figure list and context."
	firstLog := `{"type": "log", "payload": "Analyzing your request..."}`
	if allowExternal {
		task = "First, use your general knowledge to understand the user's query about a person, event, or concept. Then, find the single best-matching historical figure from the provided list. Your main goal is to find the closest fit from the list, even if it's not a perfect match. If you use external knowledge, state that you are doing so."
		firstLog = `{"type": "log", "payload": "Analyzing your request with modern context..."}`
	}

	return fmt.Sprintf(`You are an AI research assistant. %s You must narrate your thought process by producing a series of JSON objects.

Follow these steps precisely:
1.  Start by acknowledging the user's query using the appropriate log message. Output a JSON object: %s
2.  Extract the key characteristics from the user's query. Output a JSON object: {"type": "log", "payload": "Key characteristics identified: [list characteristics here]."}
3.  Scan the list of available figures and state which one is the best match. Output a JSON object: {"type": "log", "payload": "Comparing against the archive... I believe the best match is [Figure Name]."}
4.  Finally, output the matched figure's data as a single JSON object with "match" type. The payload must be a JSON object containing the id, name, and avatar of the matched figure. Format: {"type": "match", "payload": {"id": "...", "name": "...", "avatar": "..."}}

If no figure from the list is a clear match for the query, you MUST output a single JSON object of type "error": {"type": "error", "payload": "I could not find a suitable figure for your request. Please try rephrasing."}

Here is the list of available figures:
%s
%s
User's Query: "%s"

Begin your JSON output now.`, task, firstLog, figureList, contextBlock, query)
}
