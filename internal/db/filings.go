package db

import (
	"context"
	"time"

	"github.com/wagadu/finsight/internal/helper"
	"github.com/wagadu/finsight/internal/models"
)

// ActiveWatchlist returns active watchlist entries, highest priority
// first.
func (s *Store) ActiveWatchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	var recs []WatchlistRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("is_active = ?", true).
		Order("priority DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]models.WatchlistEntry, 0, len(recs))
	for i := range recs {
		entries = append(entries, recs[i].toModel())
	}
	return entries, nil
}

func (s *Store) TouchLastPolled(ctx context.Context, watchlistID string) error {
	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*WatchlistRecord)(nil)).
		Set("last_polled_at = ?", now).
		Where("id = ?", watchlistID).
		Exec(ctx)
	return err
}

func (s *Store) AddWatchlistEntry(ctx context.Context, e models.WatchlistEntry) (string, error) {
	rec := &WatchlistRecord{
		ID:          helper.MustUUID(),
		Ticker:      e.Ticker,
		CIK:         e.CIK,
		CompanyName: e.CompanyName,
		Source:      e.Source,
		Priority:    e.Priority,
		IsActive:    true,
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Store) CandidateExistsByChecksum(ctx context.Context, checksum string) (bool, error) {
	if checksum == "" {
		return false, nil
	}
	return s.db.NewSelect().
		Model((*CandidateRecord)(nil)).
		Where("sha256_checksum = ?", checksum).
		Exists(ctx)
}

func (s *Store) CandidateExistsByAccession(ctx context.Context, accession string) (bool, error) {
	if accession == "" {
		return false, nil
	}
	return s.db.NewSelect().
		Model((*CandidateRecord)(nil)).
		Where("accession_number = ?", accession).
		Exists(ctx)
}

func (s *Store) CandidateExistsByFiling(ctx context.Context, cik, filingType string, year int) (bool, error) {
	if cik == "" {
		return false, nil
	}
	return s.db.NewSelect().
		Model((*CandidateRecord)(nil)).
		Where("cik = ?", cik).
		Where("filing_type = ?", filingType).
		Where("filing_year = ?", year).
		Exists(ctx)
}

func (s *Store) InsertCandidate(ctx context.Context, c models.FilingCandidate) (string, error) {
	rec := candidateRecord(c)
	if rec.ID == "" {
		rec.ID = helper.MustUUID()
	}
	if rec.Status == "" {
		rec.Status = models.CandidateStatusPending
	}
	rec.DiscoveredAt = time.Now().UTC()
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (models.FilingCandidate, error) {
	rec := new(CandidateRecord)
	if err := s.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx); err != nil {
		return models.FilingCandidate{}, err
	}
	return rec.toModel(), nil
}

// PendingCandidates returns candidates awaiting ingestion, oldest first.
func (s *Store) PendingCandidates(ctx context.Context) ([]models.FilingCandidate, error) {
	var recs []CandidateRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("status IN (?, ?)", models.CandidateStatusPending, models.CandidateStatusAutoApproved).
		Order("discovered_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.FilingCandidate, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

func (s *Store) UpdateCandidateStatus(ctx context.Context, id, status string) error {
	_, err := s.db.NewUpdate().
		Model((*CandidateRecord)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (s *Store) StartIngestion(ctx context.Context, candidateID string) (*IngestionRecord, error) {
	rec := &IngestionRecord{
		ID:          helper.MustUUID(),
		CandidateID: candidateID,
		Status:      models.IngestionStatusProcessing,
		StartedAt:   time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) FinishIngestion(ctx context.Context, rec *IngestionRecord) error {
	now := time.Now().UTC()
	rec.CompletedAt = &now
	rec.DurationMs = now.Sub(rec.StartedAt).Milliseconds()
	_, err := s.db.NewUpdate().Model(rec).WherePK().Exec(ctx)
	return err
}
