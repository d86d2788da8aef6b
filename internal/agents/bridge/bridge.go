package bridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/db"
	"github.com/wagadu/finsight/internal/ingest"
	"github.com/wagadu/finsight/internal/models"
	"github.com/wagadu/finsight/internal/parser"
	"github.com/wagadu/finsight/internal/webhook"
)

// Store is the persistence surface the bridge needs. *db.Store
// satisfies it.
type Store interface {
	GetCandidate(ctx context.Context, id string) (models.FilingCandidate, error)
	PendingCandidates(ctx context.Context) ([]models.FilingCandidate, error)
	UpdateCandidateStatus(ctx context.Context, id, status string) error
	StartIngestion(ctx context.Context, candidateID string) (*db.IngestionRecord, error)
	FinishIngestion(ctx context.Context, rec *db.IngestionRecord) error
	InsertDocument(ctx context.Context, name, textContent string) (models.Document, error)
}

// ProcessStats summarizes one ProcessPending pass.
type ProcessStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Bridge turns approved filing candidates into ingested documents. It
// downloads the filing, falls back from HTML to the indexed PDF or to
// extracted HTML text, and feeds the result through the shared
// ingestion pipeline.
type Bridge struct {
	store      Store
	pipeline   *ingest.Pipeline
	notifier   *webhook.Notifier
	httpClient *http.Client
	userAgent  string
}

func NewBridge(store Store, pipeline *ingest.Pipeline, notifier *webhook.Notifier, userAgent string) *Bridge {
	return &Bridge{
		store:      store,
		pipeline:   pipeline,
		notifier:   notifier,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		userAgent:  userAgent,
	}
}

// ProcessPending ingests every candidate still awaiting ingestion.
func (b *Bridge) ProcessPending(ctx context.Context) ProcessStats {
	var stats ProcessStats

	candidates, err := b.store.PendingCandidates(ctx)
	if err != nil {
		log.Error().Err(err).Msg("loading pending candidates failed")
		return stats
	}
	if len(candidates) == 0 {
		log.Info().Msg("no approved candidates to process")
		return stats
	}
	log.Info().Int("candidates", len(candidates)).Msg("processing approved candidates")

	for _, candidate := range candidates {
		stats.Processed++
		if _, err := b.IngestCandidate(ctx, candidate.ID); err != nil {
			log.Error().Err(err).Str("candidate_id", candidate.ID).Msg("candidate ingestion failed")
			stats.Failed++
			continue
		}
		stats.Succeeded++
	}
	return stats
}

// IngestCandidate downloads and ingests one candidate, returning the
// new document ID. The ingestion record tracks the attempt either way.
func (b *Bridge) IngestCandidate(ctx context.Context, candidateID string) (string, error) {
	candidate, err := b.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return "", fmt.Errorf("load candidate %s: %w", candidateID, err)
	}
	if candidate.Status != models.CandidateStatusPending && candidate.Status != models.CandidateStatusAutoApproved {
		return "", fmt.Errorf("candidate %s not ingestable (status %s)", candidateID, candidate.Status)
	}
	if candidate.SourceURL == "" {
		return "", fmt.Errorf("candidate %s has no source URL", candidateID)
	}

	documentName := fmt.Sprintf("%s %s %d - %s", candidate.Ticker, candidate.FilingType, candidate.FilingYear, candidate.CompanyName)

	rec, err := b.store.StartIngestion(ctx, candidateID)
	if err != nil {
		return "", fmt.Errorf("create ingestion record: %w", err)
	}
	log.Info().Str("candidate_id", candidateID).Str("document", documentName).Msg("starting ingestion")

	documentID, err := b.ingest(ctx, candidate, documentName, rec)
	if err != nil {
		rec.Status = models.IngestionStatusFailed
		rec.ErrorMessage = err.Error()
		if ferr := b.store.FinishIngestion(ctx, rec); ferr != nil {
			log.Warn().Err(ferr).Msg("updating failed ingestion record failed")
		}
		b.notifier.NotifyIngestionFailed(ctx, candidateID, candidate.Ticker, candidate.FilingType, err.Error())
		return "", err
	}

	rec.Status = models.IngestionStatusCompleted
	rec.DocumentID = documentID
	if ferr := b.store.FinishIngestion(ctx, rec); ferr != nil {
		log.Warn().Err(ferr).Msg("updating ingestion record failed")
	}
	if err := b.store.UpdateCandidateStatus(ctx, candidateID, models.CandidateStatusIngested); err != nil {
		log.Warn().Err(err).Str("candidate_id", candidateID).Msg("updating candidate status failed")
	}

	log.Info().Str("candidate_id", candidateID).Str("document_id", documentID).Msg("ingestion completed")
	b.notifier.NotifyIngestionComplete(ctx, candidateID, documentID, candidate.Ticker, candidate.FilingType)
	return documentID, nil
}

func (b *Bridge) ingest(ctx context.Context, candidate models.FilingCandidate, documentName string, rec *db.IngestionRecord) (string, error) {
	body, contentType, err := b.download(ctx, candidate.SourceURL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", candidate.SourceURL, err)
	}
	rec.FileSizeBytes = int64(len(body))

	var pages []models.Page
	var textContent string
	switch {
	case isPDF(candidate.SourceURL, contentType, body):
		pages, err = b.parsePDF(body)
		if err != nil {
			return "", err
		}
		textContent = joinPages(pages)
	default:
		// Filings are frequently served as XBRL/HTML with no PDF
		// counterpart. Look for one on the EDGAR index page first.
		if pdfURL := b.findPDFURL(ctx, candidate.SourceURL); pdfURL != "" {
			log.Info().Str("pdf_url", pdfURL).Msg("found PDF on index page")
			pdfBody, _, err := b.download(ctx, pdfURL)
			if err != nil {
				return "", fmt.Errorf("download %s: %w", pdfURL, err)
			}
			rec.FileSizeBytes = int64(len(pdfBody))
			pages, err = b.parsePDF(pdfBody)
			if err != nil {
				return "", err
			}
			textContent = joinPages(pages)
			break
		}

		log.Info().Str("url", candidate.SourceURL).Msg("no PDF found, extracting text from HTML")
		text, err := parser.HTMLToText(candidate.SourceURL, string(body))
		if err != nil {
			return "", err
		}
		textContent = text
		pages = parser.SplitPseudoPages(text)
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("no text extracted from %s", candidate.SourceURL)
	}

	doc, err := b.store.InsertDocument(ctx, documentName, textContent)
	if err != nil {
		return "", err
	}

	stats, err := b.pipeline.Run(ctx, doc.ID, parser.PageTexts(pages))
	rec.ChunksCreated = stats.ChunksCreated
	rec.ChunksEmbedded = stats.ChunksCreated - stats.FailedEmbeddings
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (b *Bridge) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept", "application/pdf,application/xhtml+xml,text/html,*/*")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// parsePDF writes the bytes to a temp file so the path-based PDF reader
// can open them.
func (b *Bridge) parsePDF(body []byte) ([]models.Page, error) {
	tmp, err := os.CreateTemp("", "filing-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	return parser.ParsePages(tmp.Name())
}

func isPDF(url, contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	if strings.HasSuffix(strings.ToLower(url), ".pdf") {
		return true
	}
	return len(body) > 4 && string(body[:5]) == "%PDF-"
}

func joinPages(pages []models.Page) string {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n")
}
