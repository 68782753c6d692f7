package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"thucydides/internal/model"
)

func TestBuildPersonaPromptNamesTheFigure(t *testing.T) {
	prompt := buildPersonaPrompt(model.Figure{Name: "Socrates", Title: "Athenian Philosopher"})

	assert.Contains(t, prompt, "Socrates (Athenian Philosopher)")
	assert.Contains(t, prompt, "first person")
	assert.Contains(t, prompt, "Confine your knowledge STRICTLY")
}

func TestBuildMatchPromptTruncatesFileContext(t *testing.T) {
	long := strings.Repeat("a", maxFileContextChars+500)
	prompt := buildMatchPrompt("q", searchCandidates, long, false)

	assert.Contains(t, prompt, strings.Repeat("a", maxFileContextChars))
	assert.NotContains(t, prompt, strings.Repeat("a", maxFileContextChars+1))
}

func TestBuildMatchPromptOmitsContextBlockWhenEmpty(t *testing.T) {
	prompt := buildMatchPrompt("q", searchCandidates, "", false)
	assert.NotContains(t, prompt, "User's Context:")
}
