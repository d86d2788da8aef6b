// Package retriever ranks a document's chunks against a query by cosine
// similarity of their embeddings.
package retriever

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/embedding"
	"github.com/wagadu/finsight/internal/models"
)

// ErrEmptyChunkSet signals that a document has no retrievable chunks.
var ErrEmptyChunkSet = errors.New("no chunks for document")

// ChunkSource loads the persisted chunks of one document, in chunk_index
// order.
type ChunkSource interface {
	LoadChunks(ctx context.Context, documentID string) ([]models.Chunk, error)
}

type Retriever struct {
	source   ChunkSource
	embedder embedding.Client
}

func NewRetriever(source ChunkSource, embedder embedding.Client) *Retriever {
	return &Retriever{source: source, embedder: embedder}
}

// Retrieve returns up to topK chunks of the document ranked by descending
// similarity to the expanded query. Failures on the embedding call and an
// empty or unembedded chunk set all yield an empty result, never an error:
// the composer has a defined degraded behavior for no retrieved context.
func (r *Retriever) Retrieve(ctx context.Context, documentID, query string, topK int) []models.RetrievedChunk {
	if query == "" || topK <= 0 {
		return nil
	}

	chunks, err := r.source.LoadChunks(ctx, documentID)
	if err != nil {
		log.Error().Err(err).Str("document_id", documentID).Msg("loading chunks failed")
		return nil
	}
	if len(chunks) == 0 {
		log.Warn().Str("document_id", documentID).Msg("no chunks found for document")
		return nil
	}

	expanded := ExpandQuery(query)
	queryVec, err := embedding.Embed(ctx, r.embedder, expanded)
	if err != nil {
		log.Warn().Err(err).Msg("query embedding unavailable, returning empty retrieval")
		return nil
	}

	return Rank(chunks, queryVec, topK)
}

// Rank scores every chunk whose embedding is present and of the same
// dimension as queryVec, then returns the topK by descending similarity.
// Chunks with missing or mismatched embeddings are excluded, not scored
// as zero, so they never occupy a rank slot. Ties keep chunk_index order.
func Rank(chunks []models.Chunk, queryVec []float32, topK int) []models.RetrievedChunk {
	scored := make([]models.RetrievedChunk, 0, len(chunks))
	excluded := 0
	for _, c := range chunks {
		if c.Embedding == nil {
			excluded++
			continue
		}
		if len(c.Embedding) != len(queryVec) {
			log.Warn().
				Int("chunk_index", c.ChunkIndex).
				Int("got", len(c.Embedding)).
				Int("want", len(queryVec)).
				Msg("embedding dimension mismatch, chunk excluded")
			continue
		}
		scored = append(scored, models.RetrievedChunk{
			Chunk: c,
			Score: Cosine(c.Embedding, queryVec),
		})
	}
	if excluded > 0 {
		log.Warn().Int("count", excluded).Msg("chunks without embeddings excluded from scoring")
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// Cosine computes cosine similarity between two equal-length vectors,
// defined as 0 when either norm is 0.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
