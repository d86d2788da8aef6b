package models

import "time"

// Document is an ingested source document.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	UploadedAt  time.Time `json:"uploaded_at"`
	TextContent string    `json:"text_content,omitempty"`
}

// Page is one ordered unit of raw extracted text. Page numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// IngestStats summarizes one ingestion pipeline run.
type IngestStats struct {
	ChunksCreated    int `json:"chunks_created"`
	ChunksStored     int `json:"chunks_stored"`
	FailedEmbeddings int `json:"failed_embeddings"`
}
