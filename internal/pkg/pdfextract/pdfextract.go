// Package pdfextract turns uploaded PDF context files into plain text for
// prompt building.
package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxInputBytes caps how much of an upload is read before extraction. The
// search endpoint enforces the same ceiling on the raw upload.
const MaxInputBytes = 10 << 20

var (
	ErrTooLarge = errors.New("pdf exceeds size limit")
	ErrNotPDF   = errors.New("input is not a pdf document")
)

var pdfMagic = []byte("%PDF-")

// ExtractText reads a PDF from r and returns its plain text with surrounding
// whitespace trimmed. An empty reader or a PDF with no extractable text yields
// an empty string and no error; input past MaxInputBytes yields ErrTooLarge.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("read pdf input failed: %w", err)
	}
	if len(b) > MaxInputBytes {
		return "", ErrTooLarge
	}
	if len(b) == 0 {
		return "", nil
	}
	if !bytes.HasPrefix(b, pdfMagic) {
		return "", ErrNotPDF
	}

	doc, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("parse pdf failed: %w", err)
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	var text strings.Builder
	if _, err := io.Copy(&text, plain); err != nil {
		return "", fmt.Errorf("extract pdf text failed: %w", err)
	}
	return strings.TrimSpace(text.String()), nil
}
