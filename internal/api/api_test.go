package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagadu/finsight/internal/analyst"
	"github.com/wagadu/finsight/internal/eval"
	"github.com/wagadu/finsight/internal/models"
)

type fakeStore struct {
	documents []models.Document
	chatLogs  []string
}

func (f *fakeStore) InsertDocument(_ context.Context, name, textContent string) (models.Document, error) {
	doc := models.Document{
		ID:          fmt.Sprintf("doc-%d", len(f.documents)+1),
		Name:        name,
		TextContent: textContent,
		UploadedAt:  time.Now().UTC(),
	}
	f.documents = append(f.documents, doc)
	return doc, nil
}

func (f *fakeStore) ListDocuments(context.Context) ([]models.Document, error) {
	return f.documents, nil
}

func (f *fakeStore) InsertChatLog(_ context.Context, _, query, _ string) error {
	f.chatLogs = append(f.chatLogs, query)
	return nil
}

type fakeRetriever struct {
	lastQuery string
	lastTopK  int
	chunks    []models.RetrievedChunk
}

func (f *fakeRetriever) Retrieve(_ context.Context, _, query string, topK int) []models.RetrievedChunk {
	f.lastQuery = query
	f.lastTopK = topK
	return f.chunks
}

type fakeComposer struct{}

func (fakeComposer) Compose(_ context.Context, query string, retrieved []models.RetrievedChunk) (string, []models.Citation, error) {
	citations := make([]models.Citation, 0, len(retrieved))
	for i, rc := range retrieved {
		citations = append(citations, models.Citation{ID: fmt.Sprintf("cite-%d", i+1), Label: "Page 1", Excerpt: rc.Content})
	}
	return "answer to: " + query, citations, nil
}

type fakeIngestor struct {
	pages [][]string
}

func (f *fakeIngestor) Run(_ context.Context, _ string, pages []string) (models.IngestStats, error) {
	f.pages = append(f.pages, pages)
	return models.IngestStats{ChunksCreated: len(pages), ChunksStored: len(pages)}, nil
}

type fakeEvalService struct {
	ran []eval.Question
}

func (f *fakeEvalService) Run(_ context.Context, _ string, questions []eval.Question) (eval.Summary, error) {
	f.ran = questions
	return eval.Summary{RunID: "run-1", TotalQuestions: len(questions), CorrectAnswers: len(questions), SuccessRate: 1.0}, nil
}

func (f *fakeEvalService) LatestSummary(context.Context) (eval.Summary, error) {
	return eval.Summary{RunID: "run-0", TotalQuestions: 5, SuccessRate: 0.8}, nil
}

type fakeAnalystService struct{}

func (fakeAnalystService) Run(_ context.Context, documentID string) (analyst.Run, error) {
	return analyst.Run{ID: "arun-1", DocumentID: documentID, Status: "completed"}, nil
}

func (fakeAnalystService) Get(_ context.Context, runID string) (analyst.Run, error) {
	if runID != "arun-1" {
		return analyst.Run{}, fmt.Errorf("run %s not found", runID)
	}
	return analyst.Run{ID: runID, Status: "completed"}, nil
}

func (fakeAnalystService) List(context.Context, string) ([]analyst.Run, error) {
	return []analyst.Run{{ID: "arun-1"}}, nil
}

type testAPI struct {
	server    *httptest.Server
	store     *fakeStore
	retriever *fakeRetriever
	ingestor  *fakeIngestor
	eval      *fakeEvalService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := &fakeStore{}
	retriever := &fakeRetriever{chunks: []models.RetrievedChunk{
		{Chunk: models.Chunk{Content: "revenue was $10M", PageNumber: 1}, Score: 0.9},
	}}
	ingestor := &fakeIngestor{}
	evalSvc := &fakeEvalService{}

	handler := NewHandler(store, retriever, fakeComposer{}, ingestor, evalSvc, fakeAnalystService{})
	container := restful.NewContainer()
	RegisterRoutes(container, handler)

	srv := httptest.NewServer(container)
	t.Cleanup(srv.Close)
	return &testAPI{server: srv, store: store, retriever: retriever, ingestor: ingestor, eval: evalSvc}
}

func (a *testAPI) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(a.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	resp, err := http.Get(a.server.URL + "/api/v1/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	decode(t, resp, &health)
	assert.Equal(t, "ok", health.Status)
}

func TestChat(t *testing.T) {
	a := newTestAPI(t)
	resp := a.postJSON(t, "/api/v1/chat", ChatRequest{
		DocumentID: "doc-1",
		Messages: []ChatMessage{
			{Role: "user", Content: "what was the revenue?"},
			{Role: "assistant", Content: "Revenue was $10M."},
			{Role: "user", Content: "and the net income?"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chat ChatResponse
	decode(t, resp, &chat)
	assert.Equal(t, "answer to: and the net income?", chat.Answer)
	require.Len(t, chat.Citations, 1)

	assert.Equal(t, "and the net income?", a.retriever.lastQuery, "last user message is the query")
	assert.Equal(t, chatTopK, a.retriever.lastTopK)
	assert.Equal(t, []string{"and the net income?"}, a.store.chatLogs)
}

func TestChatNoUserMessage(t *testing.T) {
	a := newTestAPI(t)
	resp := a.postJSON(t, "/api/v1/chat", ChatRequest{
		DocumentID: "doc-1",
		Messages:   []ChatMessage{{Role: "assistant", Content: "hello"}},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatMissingDocumentID(t *testing.T) {
	a := newTestAPI(t)
	resp := a.postJSON(t, "/api/v1/chat", ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadDocument(t *testing.T) {
	a := newTestAPI(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte(strings.Repeat("total revenue was ten million dollars ", 20)))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("name", "ACME 10-K 2024"))
	require.NoError(t, w.Close())

	resp, err := http.Post(a.server.URL+"/api/v1/documents", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var upload UploadResponse
	decode(t, resp, &upload)
	assert.Equal(t, "doc-1", upload.ID)
	assert.Equal(t, "ACME 10-K 2024", upload.Name)
	assert.Positive(t, upload.Stats.ChunksStored)

	require.Len(t, a.ingestor.pages, 1)
	require.Len(t, a.store.documents, 1)
	assert.Contains(t, a.store.documents[0].TextContent, "total revenue")
}

func TestUploadDocumentMissingFile(t *testing.T) {
	a := newTestAPI(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "no file"))
	require.NoError(t, w.Close())

	resp, err := http.Post(a.server.URL+"/api/v1/documents", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListDocuments(t *testing.T) {
	a := newTestAPI(t)
	_, err := a.store.InsertDocument(context.Background(), "doc one", "text")
	require.NoError(t, err)

	resp, err := http.Get(a.server.URL + "/api/v1/documents")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var docs []models.Document
	decode(t, resp, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc one", docs[0].Name)
}

func TestEvalSummary(t *testing.T) {
	a := newTestAPI(t)
	resp, err := http.Get(a.server.URL + "/api/v1/eval/summary")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary eval.Summary
	decode(t, resp, &summary)
	assert.Equal(t, "run-0", summary.RunID)
	assert.Equal(t, 0.8, summary.SuccessRate)
}

func TestEvalRunSimpleQuestions(t *testing.T) {
	a := newTestAPI(t)
	resp := a.postJSON(t, "/api/v1/eval/run", EvalRunRequest{
		DocumentID: "doc-1",
		Questions:  []string{"what was the revenue?", "what was the net income?"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary eval.Summary
	decode(t, resp, &summary)
	assert.Equal(t, 2, summary.TotalQuestions)
	require.Len(t, a.eval.ran, 2)
	assert.Empty(t, a.eval.ran[0].ExpectedAnswer)
}

func TestEvalRunExpectedAnswersWin(t *testing.T) {
	a := newTestAPI(t)
	resp := a.postJSON(t, "/api/v1/eval/run", EvalRunRequest{
		DocumentID:    "doc-1",
		Questions:     []string{"ignored"},
		EvalQuestions: []eval.Question{{Question: "q1", ExpectedAnswer: "a1"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Len(t, a.eval.ran, 1)
	assert.Equal(t, "a1", a.eval.ran[0].ExpectedAnswer)
}

func TestAnalystEndpoints(t *testing.T) {
	a := newTestAPI(t)

	resp := a.postJSON(t, "/api/v1/analyst/run", AnalystRunRequest{DocumentID: "doc-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run analyst.Run
	decode(t, resp, &run)
	assert.Equal(t, "arun-1", run.ID)

	listResp, err := http.Get(a.server.URL + "/api/v1/analyst/runs?documentId=doc-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var runs []analyst.Run
	decode(t, listResp, &runs)
	assert.Len(t, runs, 1)

	getResp, err := http.Get(a.server.URL + "/api/v1/analyst/runs/arun-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	getResp.Body.Close()

	missingResp, err := http.Get(a.server.URL + "/api/v1/analyst/runs/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missingResp.StatusCode)
	missingResp.Body.Close()
}
