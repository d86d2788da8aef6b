package parser

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/wagadu/finsight/internal/models"
)

// pseudoPageSize is the character budget per synthetic page when a
// source has no page structure of its own, e.g. a filing served as HTML.
const pseudoPageSize = 3000

// HTMLToText extracts readable text from filing HTML. Script, style and
// noscript nodes are dropped first, then the remaining markup is
// converted to markdown so tables and headings keep some structure.
func HTMLToText(baseURL, html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	cleaned, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(cleaned) == "" {
		cleaned, _ = doc.Html()
	}

	converter := md.NewConverter(baseURL, true, nil)
	text, err := converter.ConvertString(cleaned)
	if err != nil {
		// Markdown conversion can choke on malformed filings; fall back
		// to plain node text.
		return doc.Text(), nil
	}
	return text, nil
}

// SplitPseudoPages cuts flat text into word-aligned synthetic pages so
// downstream chunking and citations still get page numbers.
func SplitPseudoPages(text string) []models.Page {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var pages []models.Page
	var current []string
	currentLen := 0
	for _, word := range words {
		if currentLen+len(word)+1 > pseudoPageSize && len(current) > 0 {
			pages = append(pages, models.Page{Number: len(pages) + 1, Text: strings.Join(current, " ")})
			current = current[:0]
			currentLen = 0
		}
		current = append(current, word)
		currentLen += len(word) + 1
	}
	if len(current) > 0 {
		pages = append(pages, models.Page{Number: len(pages) + 1, Text: strings.Join(current, " ")})
	}
	return pages
}
