package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/analyst"
	"github.com/wagadu/finsight/internal/api"
	"github.com/wagadu/finsight/internal/api/middleware"
	"github.com/wagadu/finsight/internal/chunker"
	"github.com/wagadu/finsight/internal/composer"
	"github.com/wagadu/finsight/internal/config"
	"github.com/wagadu/finsight/internal/db"
	"github.com/wagadu/finsight/internal/embedding"
	"github.com/wagadu/finsight/internal/eval"
	"github.com/wagadu/finsight/internal/ingest"
	"github.com/wagadu/finsight/internal/llmservice"
	"github.com/wagadu/finsight/internal/localstore"
	"github.com/wagadu/finsight/internal/parser"
	"github.com/wagadu/finsight/internal/retriever"
)

const (
	defaultConfigPath = "./configs/config.yaml"

	localDBPath     = "./localdb"
	localCollection = "finsight_local"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	filePath := flag.String("file", "", "Index a document into the local vector store and exit")
	query := flag.String("query", "", "Answer a query against the local vector store and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	// The local mode works against an on-disk chromem index, no Postgres
	// required. Useful for trying a single filing offline.
	if *filePath != "" {
		indexLocalFile(ctx, cfg, *filePath)
		return
	}
	if *query != "" {
		queryLocal(ctx, cfg, *query)
		return
	}

	runServer(ctx, cfg)
}

func runServer(ctx context.Context, cfg *config.Config) {
	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	defer bunDB.Close()

	store := db.NewStore(bunDB)
	if err := store.InitDB(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm := llmservice.NewClient(&cfg.InferenceLLM)

	ret := retriever.NewRetriever(store, embedder)
	comp := composer.NewComposer(llm)
	pipeline := ingest.NewPipeline(embedder, store, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	evalRunner := eval.NewRunner(store, ret, comp, embedder)
	analystRunner := analyst.NewRunner(store, ret, comp)

	handler := api.NewHandler(store, ret, comp, pipeline, evalRunner, analystRunner)
	container := restful.NewContainer()
	container.Filter(middleware.Logger)
	container.Filter(middleware.RecoverPanic)
	api.RegisterRoutes(container, handler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: strings.Split(cfg.Server.AllowedOrigins, ","),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("address", addr).Msg("Starting FinSight API")

	server := http.Server{
		Addr:    addr,
		Handler: corsHandler.Handler(container),
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func indexLocalFile(ctx context.Context, cfg *config.Config, filePath string) {
	pages, err := parser.ParsePages(filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Error parsing document")
	}

	chunks := chunker.ChunkPages(parser.PageTexts(pages), cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if len(chunks) == 0 {
		log.Fatal().Str("file", filePath).Msg("No chunks produced from document")
	}
	documentID := filepath.Base(filePath)
	for i := range chunks {
		chunks[i].DocumentID = documentID
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	failed := 0
	for i := range chunks {
		vec, err := embedding.Embed(ctx, embedder, chunks[i].Content)
		if err != nil {
			failed++
			continue
		}
		chunks[i].Embedding = vec
	}

	index, err := localstore.Open(localDBPath, localCollection, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening local index")
	}
	skipped, err := index.AddChunks(ctx, chunks)
	if err != nil {
		log.Fatal().Err(err).Msg("Error indexing document")
	}

	log.Info().
		Str("document", documentID).
		Int("chunks", len(chunks)).
		Int("failed_embeddings", failed).
		Int("skipped", skipped).
		Int("total_indexed", index.Count()).
		Msg("Document indexed")
}

func queryLocal(ctx context.Context, cfg *config.Config, query string) {
	index, err := localstore.Open(localDBPath, localCollection, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening local index")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	queryVec, err := embedding.Embed(ctx, embedder, retriever.ExpandQuery(query))
	if err != nil {
		log.Fatal().Err(err).Msg("Error embedding query")
	}

	retrieved, err := index.Query(ctx, queryVec, cfg.RAG.TopK)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying local index")
	}

	comp := composer.NewComposer(llmservice.NewClient(&cfg.InferenceLLM))
	answer, citations, err := comp.Compose(ctx, query, retrieved)
	if err != nil {
		log.Fatal().Err(err).Msg("Error composing answer")
	}

	fmt.Printf("Query: %s\n\n", query)
	fmt.Printf("Answer: %s\n\n", answer)
	for _, c := range citations {
		fmt.Printf("[%s] %s: %s\n", c.ID, c.Label, c.Excerpt)
	}
}
