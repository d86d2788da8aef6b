package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagadu/finsight/internal/db"
	"github.com/wagadu/finsight/internal/models"
)

type fakeEvalStore struct {
	run       *db.EvalRunRecord
	questions []*db.EvalQuestionRecord
	latest    *db.EvalRunRecord
}

func (f *fakeEvalStore) InsertEvalRun(_ context.Context, documentID string) (*db.EvalRunRecord, error) {
	f.run = &db.EvalRunRecord{ID: "run-1", DocumentID: documentID, Status: db.RunStatusRunning}
	return f.run, nil
}

func (f *fakeEvalStore) CompleteEvalRun(_ context.Context, rec *db.EvalRunRecord) error {
	rec.Status = db.RunStatusCompleted
	return nil
}

func (f *fakeEvalStore) FailEvalRun(_ context.Context, rec *db.EvalRunRecord) error {
	rec.Status = db.RunStatusFailed
	return nil
}

func (f *fakeEvalStore) InsertEvalQuestion(_ context.Context, rec *db.EvalQuestionRecord) error {
	f.questions = append(f.questions, rec)
	return nil
}

func (f *fakeEvalStore) LatestCompletedEvalRun(context.Context) (*db.EvalRunRecord, error) {
	return f.latest, nil
}

type fakeRetriever struct{}

func (fakeRetriever) Retrieve(_ context.Context, _, _ string, _ int) []models.RetrievedChunk {
	return []models.RetrievedChunk{{Chunk: models.Chunk{Content: "revenue was $10M", PageNumber: 3}, Score: 0.9}}
}

type fakeComposer struct {
	answers map[string]string
	err     error
}

func (f *fakeComposer) Compose(_ context.Context, query string, _ []models.RetrievedChunk) (string, []models.Citation, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	if a, ok := f.answers[query]; ok {
		return a, nil, nil
	}
	return "The total revenue was $10M according to page 3.", nil, nil
}

// vectorEmbedder maps known strings to fixed vectors so cosine
// similarity is controllable.
type vectorEmbedder struct {
	vectors map[string][]float32
}

func (v *vectorEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if vec, ok := v.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func TestRunDefaultQuestions(t *testing.T) {
	store := &fakeEvalStore{}
	r := NewRunner(store, fakeRetriever{}, &fakeComposer{}, &vectorEmbedder{})

	summary, err := r.Run(context.Background(), "doc-1", nil)
	require.NoError(t, err)

	assert.Equal(t, len(models.DefaultEvalQuestions), summary.TotalQuestions)
	assert.Equal(t, summary.TotalQuestions, summary.CorrectAnswers, "long answers pass without expected answers")
	assert.Equal(t, 1.0, summary.SuccessRate)
	require.Len(t, store.questions, summary.TotalQuestions)
	assert.Equal(t, "run-1", store.questions[0].RunID)
	assert.Equal(t, db.RunStatusCompleted, store.run.Status)
}

func TestRunScoresBySimilarity(t *testing.T) {
	store := &fakeEvalStore{}
	composer := &fakeComposer{answers: map[string]string{
		"q-correct": "answer-close",
		"q-wrong":   "answer-far",
	}}
	embedder := &vectorEmbedder{vectors: map[string][]float32{
		"answer-close": {1, 0},
		"answer-far":   {0, 1},
		"the expected": {1, 0},
	}}
	r := NewRunner(store, fakeRetriever{}, composer, embedder)

	summary, err := r.Run(context.Background(), "doc-1", []Question{
		{Question: "q-correct", ExpectedAnswer: "the expected"},
		{Question: "q-wrong", ExpectedAnswer: "the expected"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalQuestions)
	assert.Equal(t, 1, summary.CorrectAnswers)
	assert.Equal(t, 0.5, summary.SuccessRate)

	require.Len(t, store.questions, 2)
	assert.True(t, store.questions[0].Correct)
	assert.InDelta(t, 1.0, store.questions[0].Similarity, 1e-9)
	assert.False(t, store.questions[1].Correct)
}

func TestRunComposerFailureScoresIncorrect(t *testing.T) {
	store := &fakeEvalStore{}
	r := NewRunner(store, fakeRetriever{}, &fakeComposer{err: errors.New("llm down")}, &vectorEmbedder{})

	summary, err := r.Run(context.Background(), "doc-1", []Question{{Question: "q"}})
	require.NoError(t, err, "question failures do not abort the run")
	assert.Zero(t, summary.CorrectAnswers)
	assert.Equal(t, db.RunStatusCompleted, store.run.Status)
	require.Len(t, store.questions, 1)
	assert.Empty(t, store.questions[0].ActualAnswer)
}

func TestRunEmbedderFailureFallsBack(t *testing.T) {
	store := &fakeEvalStore{}
	r := NewRunner(store, fakeRetriever{}, &fakeComposer{}, nil)

	summary, err := r.Run(context.Background(), "doc-1", []Question{
		{Question: "q", ExpectedAnswer: "expected"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CorrectAnswers, "nil embedder falls back to length check")
}

func TestLatestSummary(t *testing.T) {
	store := &fakeEvalStore{}
	r := NewRunner(store, fakeRetriever{}, &fakeComposer{}, &vectorEmbedder{})

	summary, err := r.LatestSummary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalQuestions, "no completed runs yet")

	store.latest = &db.EvalRunRecord{ID: "run-9", TotalQuestions: 5, CorrectAnswers: 4, SuccessRate: 0.8}
	summary, err = r.LatestSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-9", summary.RunID)
	assert.Equal(t, 0.8, summary.SuccessRate)
}
