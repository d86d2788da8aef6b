// Package chunker splits page-ordered document text into overlapping,
// size-bounded chunks for embedding and retrieval.
package chunker

import (
	"strings"

	"github.com/wagadu/finsight/internal/models"
)

const (
	// DefaultChunkSize is in characters, roughly 375 tokens. Larger chunks
	// retain more context around financial line items.
	DefaultChunkSize = 1500
	DefaultOverlap   = 200

	// MinChunkLength drops trailing fragments too short to be useful.
	MinChunkLength = 50
)

// ChunkPages splits each page independently into overlapping chunks.
// Chunks never cross a page boundary and inherit the 1-based page number
// of their source page. ChunkIndex is assigned in emission order across
// the whole document. overlap must be smaller than chunkSize.
func ChunkPages(pages []string, chunkSize, overlap int) []models.Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}

	var chunks []models.Chunk
	for pageNum, pageText := range pages {
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		for _, content := range chunkText(pageText, chunkSize, overlap) {
			if len(content) < MinChunkLength {
				continue
			}
			chunks = append(chunks, models.Chunk{
				ChunkIndex: len(chunks),
				Content:    content,
				PageNumber: pageNum + 1,
				TokenCount: len(content) / 4,
			})
		}
	}
	return chunks
}

// chunkText greedily accumulates whitespace-delimited words until adding
// the next word would push the buffer (words joined by single spaces, plus
// a trailing space per word) over chunkSize. The closed chunk's tail words
// are reused to seed the next buffer: whole words are taken from the end
// while their combined length stays within overlap. A single word longer
// than chunkSize still becomes its own chunk; the bound is a trigger, not
// a truncation.
func chunkText(text string, chunkSize, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, word := range words {
		wordLen := len(word) + 1 // +1 for the joining space
		if currentLen+wordLen > chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			// Walk backward through the closed chunk, keeping whole words
			// until the overlap budget is spent.
			var tail []string
			tailLen := 0
			for i := len(current) - 1; i >= 0; i-- {
				w := current[i]
				if tailLen+len(w)+1 > overlap {
					break
				}
				tail = append([]string{w}, tail...)
				tailLen += len(w) + 1
			}

			current = append(tail, word)
			currentLen = 0
			for _, w := range current {
				currentLen += len(w) + 1
			}
			continue
		}
		current = append(current, word)
		currentLen += wordLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
