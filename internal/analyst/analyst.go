package analyst

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/db"
	"github.com/wagadu/finsight/internal/models"
)

// analystTopK chunks feed each checklist answer.
const analystTopK = 8

// Section is one answered checklist item.
type Section struct {
	SectionType string            `json:"sectionType"`
	Question    string            `json:"question"`
	Answer      string            `json:"answer"`
	Citations   []models.Citation `json:"citations"`
}

// Run is a completed or in-flight checklist run.
type Run struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"documentId"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Sections    []Section  `json:"sections,omitempty"`
}

// ChunkRetriever is the retrieval surface the runner needs.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, documentID, query string, topK int) []models.RetrievedChunk
}

// TemplateComposer answers with a caller-supplied prompt template.
type TemplateComposer interface {
	ComposeWith(ctx context.Context, promptTemplate, query string, retrieved []models.RetrievedChunk) (string, []models.Citation, error)
}

// Store persists runs and sections. *db.Store satisfies it.
type Store interface {
	InsertAnalystRun(ctx context.Context, documentID string) (*db.AnalystRunRecord, error)
	FinishAnalystRun(ctx context.Context, rec *db.AnalystRunRecord, status string) error
	InsertAnalystSection(ctx context.Context, rec *db.AnalystSectionRecord) error
	GetAnalystRun(ctx context.Context, id string) (*db.AnalystRunRecord, error)
	ListAnalystRuns(ctx context.Context, documentID string) ([]db.AnalystRunRecord, error)
	AnalystSectionsForRun(ctx context.Context, runID string) ([]db.AnalystSectionRecord, error)
}

// Runner works the fixed equity-analyst checklist over a document:
// revenue drivers, key risks, unit economics, investment thesis and
// financial trends, in that order.
type Runner struct {
	store     Store
	retriever ChunkRetriever
	composer  TemplateComposer
}

func NewRunner(store Store, r ChunkRetriever, c TemplateComposer) *Runner {
	return &Runner{store: store, retriever: r, composer: c}
}

// Run answers every checklist question against the document and
// persists the sections. A failed section fails the whole run; partial
// checklists are not useful to an analyst.
func (r *Runner) Run(ctx context.Context, documentID string) (Run, error) {
	rec, err := r.store.InsertAnalystRun(ctx, documentID)
	if err != nil {
		return Run{}, err
	}

	var sections []Section
	for i, item := range models.AnalystChecklist {
		retrieved := r.retriever.Retrieve(ctx, documentID, item.Question, analystTopK)
		answer, citations, err := r.composer.ComposeWith(ctx, models.AnalystPromptTemplate, item.Question, retrieved)
		if err != nil {
			log.Error().Err(err).Str("section", item.SectionType).Msg("checklist section failed")
			if ferr := r.store.FinishAnalystRun(ctx, rec, db.RunStatusFailed); ferr != nil {
				log.Warn().Err(ferr).Msg("marking analyst run failed failed")
			}
			return Run{}, err
		}

		citationsJSON, _ := json.Marshal(citations)
		sectionRec := &db.AnalystSectionRecord{
			RunID:       rec.ID,
			SectionType: item.SectionType,
			Question:    item.Question,
			Answer:      answer,
			Citations:   string(citationsJSON),
			OrderIndex:  i,
		}
		if err := r.store.InsertAnalystSection(ctx, sectionRec); err != nil {
			if ferr := r.store.FinishAnalystRun(ctx, rec, db.RunStatusFailed); ferr != nil {
				log.Warn().Err(ferr).Msg("marking analyst run failed failed")
			}
			return Run{}, err
		}

		sections = append(sections, Section{
			SectionType: item.SectionType,
			Question:    item.Question,
			Answer:      answer,
			Citations:   citations,
		})
	}

	if err := r.store.FinishAnalystRun(ctx, rec, db.RunStatusCompleted); err != nil {
		return Run{}, err
	}
	log.Info().Str("run_id", rec.ID).Str("document_id", documentID).Msg("analyst checklist completed")

	return runOf(rec, sections), nil
}

// Get loads one run with its sections.
func (r *Runner) Get(ctx context.Context, runID string) (Run, error) {
	rec, err := r.store.GetAnalystRun(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	sectionRecs, err := r.store.AnalystSectionsForRun(ctx, runID)
	if err != nil {
		return Run{}, err
	}

	sections := make([]Section, 0, len(sectionRecs))
	for _, s := range sectionRecs {
		var citations []models.Citation
		if s.Citations != "" {
			if err := json.Unmarshal([]byte(s.Citations), &citations); err != nil {
				log.Warn().Err(err).Str("section_id", s.ID).Msg("decoding stored citations failed")
			}
		}
		sections = append(sections, Section{
			SectionType: s.SectionType,
			Question:    s.Question,
			Answer:      s.Answer,
			Citations:   citations,
		})
	}
	return runOf(rec, sections), nil
}

// List returns run headers, newest first, optionally filtered by
// document.
func (r *Runner) List(ctx context.Context, documentID string) ([]Run, error) {
	recs, err := r.store.ListAnalystRuns(ctx, documentID)
	if err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(recs))
	for i := range recs {
		runs = append(runs, runOf(&recs[i], nil))
	}
	return runs, nil
}

func runOf(rec *db.AnalystRunRecord, sections []Section) Run {
	return Run{
		ID:          rec.ID,
		DocumentID:  rec.DocumentID,
		Status:      rec.Status,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
		Sections:    sections,
	}
}
