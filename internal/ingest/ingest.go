package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/chunker"
	"github.com/wagadu/finsight/internal/embedding"
	"github.com/wagadu/finsight/internal/models"
)

// ChunkStore persists chunk batches. *db.Store satisfies it.
type ChunkStore interface {
	StoreChunkBatch(ctx context.Context, chunks []models.Chunk) (int, error)
}

// Pipeline is the one ingestion path shared by the upload endpoint and
// the filing agents: pages in, chunked and embedded rows out.
type Pipeline struct {
	embedder     embedding.Client
	store        ChunkStore
	chunkSize    int
	chunkOverlap int
}

func NewPipeline(embedder embedding.Client, store ChunkStore, chunkSize, chunkOverlap int) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = chunker.DefaultOverlap
	}
	return &Pipeline{
		embedder:     embedder,
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// ChunkPages splits page texts into chunks tagged with the document ID.
func (p *Pipeline) ChunkPages(documentID string, pages []string) []models.Chunk {
	chunks := chunker.ChunkPages(pages, p.chunkSize, p.chunkOverlap)
	for i := range chunks {
		chunks[i].DocumentID = documentID
	}
	return chunks
}

// Embed fills in embeddings sequentially. A failed chunk keeps a nil
// embedding and is counted; it never stops the rest of the document.
func (p *Pipeline) Embed(ctx context.Context, chunks []models.Chunk) int {
	failed := 0
	for i := range chunks {
		vec, err := embedding.Embed(ctx, p.embedder, chunks[i].Content)
		if err != nil {
			failed++
			chunks[i].Embedding = nil
			continue
		}
		chunks[i].Embedding = vec
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Int("total", len(chunks)).Msg("some chunks have no embedding")
	}
	return failed
}

// PersistDocument stores the chunks and returns run statistics.
func (p *Pipeline) PersistDocument(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	stored, err := p.store.StoreChunkBatch(ctx, chunks)
	if err != nil {
		return stored, fmt.Errorf("persist chunks: %w", err)
	}
	return stored, nil
}

// Run executes the full pipeline for one document.
func (p *Pipeline) Run(ctx context.Context, documentID string, pages []string) (models.IngestStats, error) {
	chunks := p.ChunkPages(documentID, pages)
	stats := models.IngestStats{ChunksCreated: len(chunks)}
	if len(chunks) == 0 {
		return stats, errors.New("no chunks produced from document")
	}

	stats.FailedEmbeddings = p.Embed(ctx, chunks)

	stored, err := p.PersistDocument(ctx, chunks)
	stats.ChunksStored = stored
	if err != nil {
		return stats, err
	}

	log.Info().
		Str("document_id", documentID).
		Int("chunks_created", stats.ChunksCreated).
		Int("chunks_stored", stats.ChunksStored).
		Int("failed_embeddings", stats.FailedEmbeddings).
		Msg("document ingested")
	return stats, nil
}
