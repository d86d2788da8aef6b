package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"github.com/wagadu/finsight/internal/api/middleware"
	"github.com/wagadu/finsight/internal/models"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("/health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/chat").
			To(handler.Chat).
			Doc("Answer a question about a document").
			Metadata(restfulspec.KeyOpenAPITags, []string{"chat"}).
			Reads(ChatRequest{}).
			Writes(ChatResponse{}).
			Returns(200, "OK", ChatResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/documents").
			To(handler.UploadDocument).
			Doc("Upload and ingest a document").
			Metadata(restfulspec.KeyOpenAPITags, []string{"documents"}).
			Consumes("multipart/form-data").
			Writes(UploadResponse{}).
			Returns(200, "OK", UploadResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/documents").
			To(handler.ListDocuments).
			Doc("List documents, newest first").
			Metadata(restfulspec.KeyOpenAPITags, []string{"documents"}).
			Writes([]models.Document{}).
			Returns(200, "OK", []models.Document{}))

	ws.
		Route(ws.GET("/eval/summary").
			To(handler.EvalSummary).
			Doc("Latest completed evaluation run aggregates").
			Metadata(restfulspec.KeyOpenAPITags, []string{"eval"}).
			Returns(200, "OK", nil).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/eval/run").
			To(handler.EvalRun).
			Doc("Run an evaluation question set through the RAG pipeline").
			Metadata(restfulspec.KeyOpenAPITags, []string{"eval"}).
			Reads(EvalRunRequest{}).
			Returns(200, "OK", nil).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/analyst/run").
			To(handler.AnalystRun).
			Doc("Run the equity-analyst checklist over a document").
			Metadata(restfulspec.KeyOpenAPITags, []string{"analyst"}).
			Reads(AnalystRunRequest{}).
			Returns(200, "OK", nil).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/analyst/runs").
			To(handler.AnalystRuns).
			Doc("List analyst runs").
			Metadata(restfulspec.KeyOpenAPITags, []string{"analyst"}).
			Param(ws.QueryParameter("documentId", "Filter runs by document").DataType("string").Required(false)).
			Returns(200, "OK", nil))

	ws.
		Route(ws.GET("/analyst/runs/{id}").
			To(handler.AnalystRunByID).
			Doc("Fetch one analyst run with its sections").
			Metadata(restfulspec.KeyOpenAPITags, []string{"analyst"}).
			Param(ws.PathParameter("id", "Run ID").DataType("string")).
			Returns(200, "OK", nil).
			Returns(404, "Not Found", middleware.ErrorResponse{}))

	container.Add(ws)
}
