package gutenberg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanStripsHeaderAndFooter(t *testing.T) {
	raw := "Produced by volunteers.\n" +
		"*** START OF THE PROJECT GUTENBERG EBOOK MEDITATIONS ***\n" +
		"From my grandfather Verus I learned good morals.\n" +
		"*** END OF THE PROJECT GUTENBERG EBOOK MEDITATIONS ***\n" +
		"License text follows."

	got := Clean(raw)
	assert.Contains(t, got, "From my grandfather Verus")
	assert.NotContains(t, got, "Produced by volunteers")
	assert.NotContains(t, got, "License text")
}

func TestCleanConsolidatesWhitespace(t *testing.T) {
	got := Clean("one\n\n\ttwo   three")
	assert.Equal(t, "one two three", got)
}

func TestCleanDropsChapterHeadings(t *testing.T) {
	got := Clean("CHAPTER IV. The war began in earnest.")
	assert.NotContains(t, got, "CHAPTER")
	assert.Contains(t, got, "The war began in earnest.")
}

func TestCleanPassesThroughUnmarkedText(t *testing.T) {
	got := Clean("plain text without markers")
	assert.Equal(t, "plain text without markers", got)
}
