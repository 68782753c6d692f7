package pdfextract

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextEmptyInput(t *testing.T) {
	text, err := ExtractText(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	_, err := ExtractText(strings.NewReader("just some notes about Cleopatra"))
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestExtractTextRejectsOversizedInput(t *testing.T) {
	big := make([]byte, MaxInputBytes+1)
	copy(big, pdfMagic)
	_, err := ExtractText(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtractTextMalformedPDF(t *testing.T) {
	_, err := ExtractText(strings.NewReader("%PDF-1.7 but nothing else"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotPDF)
}
