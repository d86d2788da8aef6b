package analyst

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagadu/finsight/internal/db"
	"github.com/wagadu/finsight/internal/models"
)

type fakeAnalystStore struct {
	runs     map[string]*db.AnalystRunRecord
	sections []*db.AnalystSectionRecord
}

func newFakeAnalystStore() *fakeAnalystStore {
	return &fakeAnalystStore{runs: map[string]*db.AnalystRunRecord{}}
}

func (f *fakeAnalystStore) InsertAnalystRun(_ context.Context, documentID string) (*db.AnalystRunRecord, error) {
	rec := &db.AnalystRunRecord{
		ID:         fmt.Sprintf("run-%d", len(f.runs)+1),
		DocumentID: documentID,
		Status:     db.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	f.runs[rec.ID] = rec
	return rec, nil
}

func (f *fakeAnalystStore) FinishAnalystRun(_ context.Context, rec *db.AnalystRunRecord, status string) error {
	rec.Status = status
	return nil
}

func (f *fakeAnalystStore) InsertAnalystSection(_ context.Context, rec *db.AnalystSectionRecord) error {
	f.sections = append(f.sections, rec)
	return nil
}

func (f *fakeAnalystStore) GetAnalystRun(_ context.Context, id string) (*db.AnalystRunRecord, error) {
	rec, ok := f.runs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

func (f *fakeAnalystStore) ListAnalystRuns(_ context.Context, documentID string) ([]db.AnalystRunRecord, error) {
	var out []db.AnalystRunRecord
	for _, rec := range f.runs {
		if documentID == "" || rec.DocumentID == documentID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeAnalystStore) AnalystSectionsForRun(_ context.Context, runID string) ([]db.AnalystSectionRecord, error) {
	var out []db.AnalystSectionRecord
	for _, s := range f.sections {
		if s.RunID == runID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeRetriever struct{ queries []string }

func (f *fakeRetriever) Retrieve(_ context.Context, _, query string, _ int) []models.RetrievedChunk {
	f.queries = append(f.queries, query)
	return []models.RetrievedChunk{{Chunk: models.Chunk{Content: "gross margin was 40%", PageNumber: 7}, Score: 0.8}}
}

type fakeComposer struct {
	failOn string
}

func (f *fakeComposer) ComposeWith(_ context.Context, _, query string, retrieved []models.RetrievedChunk) (string, []models.Citation, error) {
	if f.failOn == query {
		return "", nil, errors.New("llm down")
	}
	citations := []models.Citation{{ID: "cite-1", Label: "Page 7", Excerpt: retrieved[0].Content}}
	return "answer to: " + query, citations, nil
}

func TestRunCompletesChecklist(t *testing.T) {
	store := newFakeAnalystStore()
	ret := &fakeRetriever{}
	r := NewRunner(store, ret, &fakeComposer{})

	run, err := r.Run(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, db.RunStatusCompleted, run.Status)
	require.Len(t, run.Sections, len(models.AnalystChecklist))

	for i, section := range run.Sections {
		assert.Equal(t, models.AnalystChecklist[i].SectionType, section.SectionType)
		assert.Equal(t, models.AnalystChecklist[i].Question, section.Question)
		require.Len(t, section.Citations, 1)
		assert.Equal(t, "Page 7", section.Citations[0].Label)
	}
	assert.Equal(t, len(models.AnalystChecklist), len(ret.queries), "one retrieval per checklist item")

	require.Len(t, store.sections, len(models.AnalystChecklist))
	assert.Equal(t, 0, store.sections[0].OrderIndex)
	assert.Contains(t, store.sections[0].Citations, "Page 7", "citations persisted as JSON")
}

func TestRunFailsWholeRunOnSectionError(t *testing.T) {
	store := newFakeAnalystStore()
	r := NewRunner(store, &fakeRetriever{}, &fakeComposer{failOn: models.AnalystChecklist[2].Question})

	_, err := r.Run(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Equal(t, db.RunStatusFailed, store.runs["run-1"].Status)
	assert.Len(t, store.sections, 2, "sections before the failure were persisted")
}

func TestGetRoundTripsCitations(t *testing.T) {
	store := newFakeAnalystStore()
	r := NewRunner(store, &fakeRetriever{}, &fakeComposer{})

	created, err := r.Run(context.Background(), "doc-1")
	require.NoError(t, err)

	loaded, err := r.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Sections, len(models.AnalystChecklist))
	require.Len(t, loaded.Sections[0].Citations, 1)
	assert.Equal(t, "Page 7", loaded.Sections[0].Citations[0].Label)
}

func TestListFiltersByDocument(t *testing.T) {
	store := newFakeAnalystStore()
	r := NewRunner(store, &fakeRetriever{}, &fakeComposer{})

	_, err := r.Run(context.Background(), "doc-1")
	require.NoError(t, err)
	_, err = r.Run(context.Background(), "doc-2")
	require.NoError(t, err)

	all, err := r.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := r.List(context.Background(), "doc-2")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "doc-2", one[0].DocumentID)
}
