// Package localstore keeps a chromem-go vector index on local disk so a
// single document can be chunked, embedded and queried without Postgres.
package localstore

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/wagadu/finsight/internal/models"
)

const compress = false

// Index wraps one chromem-go collection.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// Open creates or reopens the index at dbPath. With inMemory set the
// index lives only for the process lifetime.
func Open(dbPath, collectionName string, inMemory bool) (*Index, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open local index: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}

	return &Index{db: db, collection: collection}, nil
}

// AddChunks stores embedded chunks. Chunks without an embedding are
// skipped and counted in the return value.
func (ix *Index) AddChunks(ctx context.Context, chunks []models.Chunk) (int, error) {
	var docs []chromem.Document
	skipped := 0
	for _, chunk := range chunks {
		if chunk.Embedding == nil {
			skipped++
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s-%d", chunk.DocumentID, chunk.ChunkIndex),
			Content: chunk.Content,
			Metadata: map[string]string{
				"document_id": chunk.DocumentID,
				"chunk_index": strconv.Itoa(chunk.ChunkIndex),
				"page_number": strconv.Itoa(chunk.PageNumber),
			},
			Embedding: chunk.Embedding,
		})
	}
	if len(docs) == 0 {
		return skipped, nil
	}
	if err := ix.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return skipped, fmt.Errorf("failed to add documents: %w", err)
	}
	return skipped, nil
}

// Query runs a similarity search with a precomputed query embedding.
func (ix *Index) Query(ctx context.Context, queryEmbedding []float32, topK int) ([]models.RetrievedChunk, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	if count := ix.collection.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := ix.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	retrieved := make([]models.RetrievedChunk, 0, len(results))
	for _, res := range results {
		retrieved = append(retrieved, models.RetrievedChunk{
			Chunk: models.Chunk{
				DocumentID: res.Metadata["document_id"],
				ChunkIndex: atoiOr(res.Metadata["chunk_index"], 0),
				Content:    res.Content,
				PageNumber: atoiOr(res.Metadata["page_number"], 0),
			},
			Score: float64(res.Similarity),
		})
	}
	return retrieved, nil
}

// Count reports how many chunks the collection holds.
func (ix *Index) Count() int {
	return ix.collection.Count()
}

// DeleteCollection drops the collection and its persisted files.
func (ix *Index) DeleteCollection() error {
	if err := ix.db.DeleteCollection(ix.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
