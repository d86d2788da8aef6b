package db

import (
	"context"
	"time"

	"github.com/wagadu/finsight/internal/helper"
)

// Run statuses shared by evaluation and analyst runs.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

func (s *Store) InsertEvalRun(ctx context.Context, documentID string) (*EvalRunRecord, error) {
	rec := &EvalRunRecord{
		ID:         helper.MustUUID(),
		DocumentID: documentID,
		Status:     RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) CompleteEvalRun(ctx context.Context, rec *EvalRunRecord) error {
	now := time.Now().UTC()
	rec.Status = RunStatusCompleted
	rec.CompletedAt = &now
	_, err := s.db.NewUpdate().Model(rec).WherePK().Exec(ctx)
	return err
}

func (s *Store) FailEvalRun(ctx context.Context, rec *EvalRunRecord) error {
	now := time.Now().UTC()
	rec.Status = RunStatusFailed
	rec.CompletedAt = &now
	_, err := s.db.NewUpdate().Model(rec).WherePK().Exec(ctx)
	return err
}

func (s *Store) InsertEvalQuestion(ctx context.Context, rec *EvalQuestionRecord) error {
	if rec.ID == "" {
		rec.ID = helper.MustUUID()
	}
	_, err := s.db.NewInsert().Model(rec).Exec(ctx)
	return err
}

// LatestCompletedEvalRun returns the most recently completed run, or nil
// when no run has completed yet.
func (s *Store) LatestCompletedEvalRun(ctx context.Context) (*EvalRunRecord, error) {
	var recs []EvalRunRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("status = ?", RunStatusCompleted).
		Order("completed_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *Store) EvalQuestionsForRun(ctx context.Context, runID string) ([]EvalQuestionRecord, error) {
	var recs []EvalQuestionRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("run_id = ?", runID).
		Scan(ctx)
	return recs, err
}

func (s *Store) InsertAnalystRun(ctx context.Context, documentID string) (*AnalystRunRecord, error) {
	rec := &AnalystRunRecord{
		ID:         helper.MustUUID(),
		DocumentID: documentID,
		Status:     RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) FinishAnalystRun(ctx context.Context, rec *AnalystRunRecord, status string) error {
	now := time.Now().UTC()
	rec.Status = status
	rec.CompletedAt = &now
	_, err := s.db.NewUpdate().Model(rec).WherePK().Exec(ctx)
	return err
}

func (s *Store) InsertAnalystSection(ctx context.Context, rec *AnalystSectionRecord) error {
	if rec.ID == "" {
		rec.ID = helper.MustUUID()
	}
	_, err := s.db.NewInsert().Model(rec).Exec(ctx)
	return err
}

func (s *Store) GetAnalystRun(ctx context.Context, id string) (*AnalystRunRecord, error) {
	rec := new(AnalystRunRecord)
	if err := s.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) ListAnalystRuns(ctx context.Context, documentID string) ([]AnalystRunRecord, error) {
	var recs []AnalystRunRecord
	q := s.db.NewSelect().Model(&recs).Order("started_at DESC")
	if documentID != "" {
		q = q.Where("document_id = ?", documentID)
	}
	err := q.Scan(ctx)
	return recs, err
}

func (s *Store) AnalystSectionsForRun(ctx context.Context, runID string) ([]AnalystSectionRecord, error) {
	var recs []AnalystSectionRecord
	err := s.db.NewSelect().
		Model(&recs).
		Where("run_id = ?", runID).
		Order("order_index ASC").
		Scan(ctx)
	return recs, err
}
