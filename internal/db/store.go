package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/wagadu/finsight/internal/config"
	"github.com/wagadu/finsight/internal/helper"
	"github.com/wagadu/finsight/internal/models"
)

// chunkBatchSize is the insert batch size for document chunks. Each
// failed batch is retried record by record so one bad row does not sink
// its neighbors.
const chunkBatchSize = 20

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL + "?sslmode=disable"
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Store is the Postgres persistence layer. It also satisfies
// retriever.ChunkSource.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InitDB(ctx context.Context) error {
	for _, model := range allModels {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func (s *Store) InsertDocument(ctx context.Context, name, textContent string) (models.Document, error) {
	rec := &DocumentRecord{
		ID:          helper.MustUUID(),
		Name:        name,
		TextContent: textContent,
		UploadedAt:  time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return models.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return rec.toModel(), nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (models.Document, error) {
	rec := new(DocumentRecord)
	if err := s.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx); err != nil {
		return models.Document{}, err
	}
	return rec.toModel(), nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var recs []DocumentRecord
	err := s.db.NewSelect().
		Model(&recs).
		Column("id", "name", "uploaded_at").
		Order("uploaded_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(recs))
	for i := range recs {
		docs = append(docs, recs[i].toModel())
	}
	return docs, nil
}

// DocumentsMatchingName returns documents whose name matches the pattern
// case-insensitively. The scout uses it as a fuzzy duplicate signal only.
func (s *Store) DocumentsMatchingName(ctx context.Context, pattern string) ([]models.Document, error) {
	var recs []DocumentRecord
	err := s.db.NewSelect().
		Model(&recs).
		Column("id", "name", "uploaded_at").
		Where("name ILIKE ?", pattern).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(recs))
	for i := range recs {
		docs = append(docs, recs[i].toModel())
	}
	return docs, nil
}

// StoreChunkBatch persists chunks in batches. When a batch insert fails
// each record of the batch is retried individually; only the records that
// also fail alone are counted as lost. Returns the number stored.
func (s *Store) StoreChunkBatch(ctx context.Context, chunks []models.Chunk) (int, error) {
	stored := 0
	for start := 0; start < len(chunks); start += chunkBatchSize {
		end := start + chunkBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := make([]*ChunkRecord, 0, end-start)
		for _, c := range chunks[start:end] {
			batch = append(batch, chunkRecord(c))
		}

		if _, err := s.db.NewInsert().Model(&batch).Exec(ctx); err == nil {
			stored += len(batch)
			continue
		} else {
			log.Warn().Err(err).
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Msg("chunk batch insert failed, retrying records individually")
		}

		for _, rec := range batch {
			if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
				log.Error().Err(err).
					Str("document_id", rec.DocumentID).
					Int("chunk_index", rec.ChunkIndex).
					Msg("chunk insert failed")
				continue
			}
			stored++
		}
	}
	return stored, nil
}

// LoadChunks returns all chunks of a document in insertion order.
func (s *Store) LoadChunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	var recs []ChunkRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	chunks := make([]models.Chunk, 0, len(recs))
	for i := range recs {
		chunks = append(chunks, recs[i].toModel())
	}
	return chunks, nil
}

// InsertChatLog records one chat exchange. Callers treat failures as
// non-fatal.
func (s *Store) InsertChatLog(ctx context.Context, documentID, query, answer string) error {
	rec := &ChatLogRecord{
		ID:         helper.MustUUID(),
		DocumentID: documentID,
		Query:      query,
		Answer:     answer,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.NewInsert().Model(rec).Exec(ctx)
	return err
}
