package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/agents/bridge"
	"github.com/wagadu/finsight/internal/agents/scout"
	"github.com/wagadu/finsight/internal/config"
	"github.com/wagadu/finsight/internal/db"
	"github.com/wagadu/finsight/internal/embedding"
	"github.com/wagadu/finsight/internal/helper"
	"github.com/wagadu/finsight/internal/ingest"
	"github.com/wagadu/finsight/internal/webhook"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	dryRun := flag.Bool("dry-run", false, "Discover filings without persisting candidates")
	limit := flag.Int("limit", 0, "Max filings per company, 0 for no limit")
	daemon := flag.Bool("daemon", false, "Keep running and scan on the configured cron schedule")
	candidateID := flag.String("candidate", "", "Ingest a single candidate by ID and exit")
	processAll := flag.Bool("process-all", false, "Ingest all pending candidates after the scan")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	defer bunDB.Close()

	ctx := context.Background()
	store := db.NewStore(bunDB)
	if err := store.InitDB(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	notifier := webhook.NewNotifier(&cfg.Webhook)

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	pipeline := ingest.NewPipeline(embedder, store, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	ingestBridge := bridge.NewBridge(store, pipeline, notifier, cfg.Scout.UserAgent)

	if *candidateID != "" {
		documentID, err := ingestBridge.IngestCandidate(ctx, *candidateID)
		if err != nil {
			log.Fatal().Err(err).Str("candidate_id", *candidateID).Msg("Ingestion failed")
		}
		log.Info().Str("candidate_id", *candidateID).Str("document_id", documentID).Msg("Candidate ingested")
		return
	}

	sec := scout.NewSECClient(cfg.Scout.UserAgent)
	annualReports := scout.NewAnnualReportsClient(cfg.Scout.UserAgent)
	filingScout := scout.NewScout(store, sec, annualReports, notifier)
	filingScout.DryRun = *dryRun
	filingScout.Limit = *limit

	scan := func() {
		stats := filingScout.RunScan(ctx)
		log.Info().Msg("Scan finished")
		helper.PrettyPrint(stats)

		if *processAll && !*dryRun {
			processed := ingestBridge.ProcessPending(ctx)
			log.Info().Msg("Ingestion finished")
			helper.PrettyPrint(processed)
		}
	}

	if !*daemon {
		scan()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Scout.CronSchedule, scan); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Scout.CronSchedule).Msg("Invalid cron schedule")
	}
	log.Info().Str("schedule", cfg.Scout.CronSchedule).Msg("Scout daemon started")
	scan()
	c.Run()
}
