package models

// Chunk is a contiguous span of words from one page of a document. Chunks
// never cross page boundaries; ChunkIndex is the insertion order within the
// document.
type Chunk struct {
	DocumentID string
	ChunkIndex int
	Content    string
	PageNumber int
	TokenCount int
	// Embedding is nil (not empty) when the embedding call failed or has
	// not run yet.
	Embedding []float32
}

// RetrievedChunk pairs a chunk with its similarity score for one retrieval
// call. Score is cosine similarity in [-1, 1].
type RetrievedChunk struct {
	Chunk
	Score float64
}

// Citation points a reader at the source of a retrieved chunk.
type Citation struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Excerpt string `json:"excerpt"`
}
