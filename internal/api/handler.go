package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/emicklei/go-restful/v3"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/analyst"
	"github.com/wagadu/finsight/internal/api/middleware"
	"github.com/wagadu/finsight/internal/eval"
	"github.com/wagadu/finsight/internal/models"
	"github.com/wagadu/finsight/internal/parser"
)

// chatTopK chunks feed each chat answer.
const chatTopK = 8

var validate = validator.New()

// DocumentStore is the persistence surface the handlers need.
// *db.Store satisfies it.
type DocumentStore interface {
	InsertDocument(ctx context.Context, name, textContent string) (models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	InsertChatLog(ctx context.Context, documentID, query, answer string) error
}

// ChunkRetriever is the retrieval surface the handlers need.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, documentID, query string, topK int) []models.RetrievedChunk
}

// AnswerComposer produces grounded answers with citations.
type AnswerComposer interface {
	Compose(ctx context.Context, query string, retrieved []models.RetrievedChunk) (string, []models.Citation, error)
}

// Ingestor runs the chunk/embed/persist pipeline for new documents.
type Ingestor interface {
	Run(ctx context.Context, documentID string, pages []string) (models.IngestStats, error)
}

// EvalService runs and summarizes evaluation runs.
type EvalService interface {
	Run(ctx context.Context, documentID string, questions []eval.Question) (eval.Summary, error)
	LatestSummary(ctx context.Context) (eval.Summary, error)
}

// AnalystService runs the equity-analyst checklist.
type AnalystService interface {
	Run(ctx context.Context, documentID string) (analyst.Run, error)
	Get(ctx context.Context, runID string) (analyst.Run, error)
	List(ctx context.Context, documentID string) ([]analyst.Run, error)
}

type Handler struct {
	store     DocumentStore
	retriever ChunkRetriever
	composer  AnswerComposer
	ingestor  Ingestor
	eval      EvalService
	analyst   AnalystService
}

func NewHandler(store DocumentStore, retriever ChunkRetriever, composer AnswerComposer, ingestor Ingestor, evalSvc EvalService, analystSvc AnalystService) *Handler {
	return &Handler{
		store:     store,
		retriever: retriever,
		composer:  composer,
		ingestor:  ingestor,
		eval:      evalSvc,
		analyst:   analystSvc,
	}
}

type HealthResponse struct {
	Status string `json:"status"`
}

// GET /api/v1/health
func (h *Handler) Health(_ *restful.Request, resp *restful.Response) {
	writeEntity(resp, http.StatusOK, HealthResponse{Status: "ok"})
}

type ChatMessage struct {
	Role    string `json:"role" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type ChatRequest struct {
	DocumentID string        `json:"documentId" validate:"required"`
	Messages   []ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

type ChatResponse struct {
	Answer    string            `json:"answer"`
	Citations []models.Citation `json:"citations"`
}

// POST /api/v1/chat
func (h *Handler) Chat(req *restful.Request, resp *restful.Response) {
	var chatReq ChatRequest
	if err := req.ReadEntity(&chatReq); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&chatReq); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	query := lastUserMessage(chatReq.Messages)
	if query == "" {
		middleware.HandleError(resp, errors.New("no user message in conversation"), http.StatusBadRequest)
		return
	}

	ctx := req.Request.Context()
	retrieved := h.retriever.Retrieve(ctx, chatReq.DocumentID, query, chatTopK)
	answer, citations, err := h.composer.Compose(ctx, query, retrieved)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	// Chat logging is best effort; a full log table never blocks an
	// answer.
	if err := h.store.InsertChatLog(ctx, chatReq.DocumentID, query, answer); err != nil {
		log.Warn().Err(err).Msg("chat log insert failed")
	}

	writeEntity(resp, http.StatusOK, ChatResponse{Answer: answer, Citations: citations})
}

func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

type UploadResponse struct {
	models.Document
	Stats models.IngestStats `json:"stats"`
}

/// POST /api/v1/documents (multipart: file, name)
func (h *Handler) UploadDocument(req *restful.Request, resp *restful.Response) {
	file, header, err := req.Request.FormFile("file")
	if err != nil {
		middleware.HandleError(resp, fmt.Errorf("missing file: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := req.Request.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	pages, err := parseUpload(file, header.Filename)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if len(pages) == 0 {
		middleware.HandleError(resp, errors.New("no text extracted from file"), http.StatusBadRequest)
		return
	}

	ctx := req.Request.Context()
	doc, err := h.store.InsertDocument(ctx, name, joinPageTexts(pages))
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	stats, err := h.ingestor.Run(ctx, doc.ID, parser.PageTexts(pages))
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	doc.TextContent = ""
	writeEntity(resp, http.StatusOK, UploadResponse{Document: doc, Stats: stats})
}

// parseUpload stages the upload in a temp file so the path-based
// parsers can open it.
func parseUpload(file io.Reader, filename string) ([]models.Page, error) {
	ext := filepath.Ext(filename)
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	return parser.ParsePages(tmp.Name())
}

func joinPageTexts(pages []models.Page) string {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n")
}

// GET /api/v1/documents
func (h *Handler) ListDocuments(req *restful.Request, resp *restful.Response) {
	docs, err := h.store.ListDocuments(req.Request.Context())
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeEntity(resp, http.StatusOK, docs)
}

// GET /api/v1/eval/summary
func (h *Handler) EvalSummary(req *restful.Request, resp *restful.Response) {
	summary, err := h.eval.LatestSummary(req.Request.Context())
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	writeEntity(resp, http.StatusOK, summary)
}

type EvalRunRequest struct {
	DocumentID    string          `json:"documentId" validate:"required"`
	Questions     []string        `json:"questions,omitempty"`
	EvalQuestions []eval.Question `json:"evalQuestions,omitempty"`
}

// POST /api/v1/eval/run
func (h *Handler) EvalRun(req *restful.Request, resp *restful.Response) {
	var runReq EvalRunRequest
	if err := req.ReadEntity(&runReq); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&runReq); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	// The advanced format with expected answers wins over the bare
	// question list.
	questions := runReq.EvalQuestions
	if len(questions) == 0 {
		for _, q := range runReq.Questions {
			questions = append(questions, eval.Question{Question: q})
		}
	}

	summary, err := h.eval.Run(req.Request.Context(), runReq.DocumentID, questions)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	writeEntity(resp, http.StatusOK, summary)
}

type AnalystRunRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
}

// POST /api/v1/analyst/run
func (h *Handler) AnalystRun(req *restful.Request, resp *restful.Response) {
	var runReq AnalystRunRequest
	if err := req.ReadEntity(&runReq); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&runReq); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	run, err := h.analyst.Run(req.Request.Context(), runReq.DocumentID)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	writeEntity(resp, http.StatusOK, run)
}

// GET /api/v1/analyst/runs?documentId=
func (h *Handler) AnalystRuns(req *restful.Request, resp *restful.Response) {
	runs, err := h.analyst.List(req.Request.Context(), req.QueryParameter("documentId"))
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []analyst.Run{}
	}
	writeEntity(resp, http.StatusOK, runs)
}

// GET /api/v1/analyst/runs/{id}
func (h *Handler) AnalystRunByID(req *restful.Request, resp *restful.Response) {
	run, err := h.analyst.Get(req.Request.Context(), req.PathParameter("id"))
	if err != nil {
		middleware.HandleError(resp, err, http.StatusNotFound)
		return
	}
	writeEntity(resp, http.StatusOK, run)
}

func writeEntity(resp *restful.Response, status int, entity interface{}) {
	if err := resp.WriteHeaderAndEntity(status, entity); err != nil {
		log.Error().Err(err).Msg("writing response failed")
	}
}
