// Package gutenberg downloads and cleans plain-text books from Project
// Gutenberg for ingestion into the retrieval index.
package gutenberg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
)

var (
	startMarker = regexp.MustCompile(`(?i)\*\*\*\s*START OF (THE|THIS) PROJECT GUTENBERG EBOOK.*\*\*\*`)
	endMarker   = regexp.MustCompile(`(?i)\*\*\*\s*END OF (THE|THIS) PROJECT GUTENBERG EBOOK.*\*\*\*`)
	whitespace  = regexp.MustCompile(`\s+`)
	chapterHead = regexp.MustCompile(`(?i)CHAPTER [IVXLCDM]+\.`)
)

// Download fetches the plain-text edition of a book by its Gutenberg id.
func Download(ctx context.Context, client *http.Client, bookID int) (string, error) {
	url := fmt.Sprintf("https://www.gutenberg.org/cache/epub/%d/pg%d.txt", bookID, bookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build gutenberg request failed: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download book %d failed: %w", bookID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("download book %d status %d", bookID, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read book %d failed: %w", bookID, err)
	}
	return string(raw), nil
}

// Clean strips the Gutenberg license header/footer, consolidates whitespace
// and drops chapter headings. Best effort: unrecognized layouts pass through.
func Clean(text string) string {
	start := 0
	if loc := startMarker.FindStringIndex(text); loc != nil {
		start = loc[1]
	}
	end := len(text)
	if loc := endMarker.FindStringIndex(text); loc != nil && loc[0] > start {
		end = loc[0]
	}
	content := text[start:end]
	content = whitespace.ReplaceAllString(content, " ")
	content = chapterHead.ReplaceAllString(content, "")
	return content
}
