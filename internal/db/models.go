package db

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/wagadu/finsight/internal/models"
)

type DocumentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	TextContent string    `bun:"text_content"`
	UploadedAt  time.Time `bun:"uploaded_at,notnull,default:current_timestamp"`
}

func (r *DocumentRecord) toModel() models.Document {
	return models.Document{
		ID:         r.ID,
		Name:       r.Name,
		UploadedAt: r.UploadedAt,
	}
}

type ChunkRecord struct {
	bun.BaseModel `bun:"table:document_chunks,alias:dc"`

	ID         int64     `bun:"id,pk,autoincrement"`
	DocumentID string    `bun:"document_id,notnull"`
	ChunkIndex int       `bun:"chunk_index,notnull"`
	Content    string    `bun:"content,notnull"`
	PageNumber int       `bun:"page_number"`
	TokenCount int       `bun:"token_count"`
	Embedding  []float32 `bun:"embedding,type:vector(1536)"`
}

func chunkRecord(c models.Chunk) *ChunkRecord {
	return &ChunkRecord{
		DocumentID: c.DocumentID,
		ChunkIndex: c.ChunkIndex,
		Content:    c.Content,
		PageNumber: c.PageNumber,
		TokenCount: c.TokenCount,
		Embedding:  c.Embedding,
	}
}

func (r *ChunkRecord) toModel() models.Chunk {
	return models.Chunk{
		DocumentID: r.DocumentID,
		ChunkIndex: r.ChunkIndex,
		Content:    r.Content,
		PageNumber: r.PageNumber,
		TokenCount: r.TokenCount,
		Embedding:  r.Embedding,
	}
}

type ChatLogRecord struct {
	bun.BaseModel `bun:"table:chat_logs,alias:cl"`

	ID         string    `bun:"id,pk"`
	DocumentID string    `bun:"document_id"`
	Query      string    `bun:"query,notnull"`
	Answer     string    `bun:"answer"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type EvalRunRecord struct {
	bun.BaseModel `bun:"table:evaluation_runs,alias:er"`

	ID             string     `bun:"id,pk"`
	DocumentID     string     `bun:"document_id"`
	Status         string     `bun:"status,notnull"`
	TotalQuestions int        `bun:"total_questions"`
	CorrectAnswers int        `bun:"correct_answers"`
	SuccessRate    float64    `bun:"success_rate"`
	AvgLatencyMs   float64    `bun:"avg_latency_ms"`
	AvgSimilarity  float64    `bun:"avg_similarity"`
	StartedAt      time.Time  `bun:"started_at,notnull"`
	CompletedAt    *time.Time `bun:"completed_at"`
}

type EvalQuestionRecord struct {
	bun.BaseModel `bun:"table:evaluation_questions,alias:eq"`

	ID             string  `bun:"id,pk"`
	RunID          string  `bun:"run_id,notnull"`
	Question       string  `bun:"question,notnull"`
	ExpectedAnswer string  `bun:"expected_answer"`
	ActualAnswer   string  `bun:"actual_answer"`
	Similarity     float64 `bun:"similarity"`
	Correct        bool    `bun:"correct"`
	LatencyMs      int64   `bun:"latency_ms"`
}

type WatchlistRecord struct {
	bun.BaseModel `bun:"table:filing_watchlist,alias:fw"`

	ID           string     `bun:"id,pk"`
	Ticker       string     `bun:"ticker,notnull"`
	CIK          string     `bun:"cik"`
	CompanyName  string     `bun:"company_name,notnull"`
	Source       string     `bun:"source,notnull"`
	Priority     int        `bun:"priority,notnull,default:5"`
	IsActive     bool       `bun:"is_active,notnull,default:true"`
	LastPolledAt *time.Time `bun:"last_polled_at"`
}

func (r *WatchlistRecord) toModel() models.WatchlistEntry {
	return models.WatchlistEntry{
		ID:          r.ID,
		Ticker:      r.Ticker,
		CIK:         r.CIK,
		CompanyName: r.CompanyName,
		Source:      r.Source,
		Priority:    r.Priority,
		IsActive:    r.IsActive,
		LastPolled:  r.LastPolledAt,
	}
}

type CandidateRecord struct {
	bun.BaseModel `bun:"table:filing_candidates,alias:fc"`

	ID              string     `bun:"id,pk"`
	WatchlistID     string     `bun:"watchlist_id"`
	Ticker          string     `bun:"ticker,notnull"`
	CIK             string     `bun:"cik"`
	CompanyName     string     `bun:"company_name,notnull"`
	Source          string     `bun:"source,notnull"`
	SourceURL       string     `bun:"source_url,notnull"`
	FilingType      string     `bun:"filing_type,notnull"`
	FilingYear      int        `bun:"filing_year"`
	FilingDate      *time.Time `bun:"filing_date"`
	AccessionNumber string     `bun:"accession_number"`
	SHA256Checksum  string     `bun:"sha256_checksum"`
	Status          string     `bun:"status,notnull,default:'pending'"`
	DiscoveredAt    time.Time  `bun:"discovered_at,notnull,default:current_timestamp"`
}

func candidateRecord(c models.FilingCandidate) *CandidateRecord {
	return &CandidateRecord{
		ID:              c.ID,
		WatchlistID:     c.WatchlistID,
		Ticker:          c.Ticker,
		CIK:             c.CIK,
		CompanyName:     c.CompanyName,
		Source:          c.Source,
		SourceURL:       c.SourceURL,
		FilingType:      c.FilingType,
		FilingYear:      c.FilingYear,
		FilingDate:      c.FilingDate,
		AccessionNumber: c.AccessionNumber,
		SHA256Checksum:  c.SHA256Checksum,
		Status:          c.Status,
	}
}

func (r *CandidateRecord) toModel() models.FilingCandidate {
	return models.FilingCandidate{
		ID:              r.ID,
		WatchlistID:     r.WatchlistID,
		Ticker:          r.Ticker,
		CIK:             r.CIK,
		CompanyName:     r.CompanyName,
		Source:          r.Source,
		SourceURL:       r.SourceURL,
		FilingType:      r.FilingType,
		FilingYear:      r.FilingYear,
		FilingDate:      r.FilingDate,
		AccessionNumber: r.AccessionNumber,
		SHA256Checksum:  r.SHA256Checksum,
		Status:          r.Status,
	}
}

type IngestionRecord struct {
	bun.BaseModel `bun:"table:filing_ingestions,alias:fi"`

	ID             string     `bun:"id,pk"`
	CandidateID    string     `bun:"candidate_id,notnull"`
	DocumentID     string     `bun:"document_id"`
	Status         string     `bun:"status,notnull"`
	ChunksCreated  int        `bun:"chunks_created"`
	ChunksEmbedded int        `bun:"chunks_embedded"`
	FileSizeBytes  int64      `bun:"file_size_bytes"`
	DurationMs     int64      `bun:"duration_ms"`
	ErrorMessage   string     `bun:"error_message"`
	StartedAt      time.Time  `bun:"started_at,notnull"`
	CompletedAt    *time.Time `bun:"completed_at"`
}

type AnalystRunRecord struct {
	bun.BaseModel `bun:"table:analyst_runs,alias:ar"`

	ID          string     `bun:"id,pk"`
	DocumentID  string     `bun:"document_id,notnull"`
	Status      string     `bun:"status,notnull"`
	StartedAt   time.Time  `bun:"started_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at"`
}

type AnalystSectionRecord struct {
	bun.BaseModel `bun:"table:analyst_sections,alias:as"`

	ID          string `bun:"id,pk"`
	RunID       string `bun:"run_id,notnull"`
	SectionType string `bun:"section_type,notnull"`
	Question    string `bun:"question,notnull"`
	Answer      string `bun:"answer"`
	Citations   string `bun:"citations,type:jsonb"`
	OrderIndex  int    `bun:"order_index"`
}

// allModels orders table creation so referencing tables come after the
// tables they point at.
var allModels = []interface{}{
	(*DocumentRecord)(nil),
	(*ChunkRecord)(nil),
	(*ChatLogRecord)(nil),
	(*EvalRunRecord)(nil),
	(*EvalQuestionRecord)(nil),
	(*WatchlistRecord)(nil),
	(*CandidateRecord)(nil),
	(*IngestionRecord)(nil),
	(*AnalystRunRecord)(nil),
	(*AnalystSectionRecord)(nil),
}
