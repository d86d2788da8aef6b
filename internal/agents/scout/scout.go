package scout

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/models"
	"github.com/wagadu/finsight/internal/webhook"
)

// highPriorityThreshold is the watchlist priority at or above which a
// new candidate triggers a notification.
const highPriorityThreshold = 8

// Store is the persistence surface the scout needs. *db.Store satisfies
// it.
type Store interface {
	ActiveWatchlist(ctx context.Context) ([]models.WatchlistEntry, error)
	TouchLastPolled(ctx context.Context, watchlistID string) error
	CandidateExistsByChecksum(ctx context.Context, checksum string) (bool, error)
	CandidateExistsByAccession(ctx context.Context, accession string) (bool, error)
	CandidateExistsByFiling(ctx context.Context, cik, filingType string, year int) (bool, error)
	DocumentsMatchingName(ctx context.Context, pattern string) ([]models.Document, error)
	InsertCandidate(ctx context.Context, c models.FilingCandidate) (string, error)
}

// Scout discovers new annual-report filings for watchlist companies and
// queues them as ingestion candidates.
type Scout struct {
	store         Store
	sec           *SECClient
	annualReports *AnnualReportsClient
	notifier      *webhook.Notifier

	// DryRun logs what would be inserted without touching the database.
	DryRun bool
	// Limit caps candidates per company; 0 means unlimited.
	Limit int
}

func NewScout(store Store, sec *SECClient, ar *AnnualReportsClient, notifier *webhook.Notifier) *Scout {
	return &Scout{
		store:         store,
		sec:           sec,
		annualReports: ar,
		notifier:      notifier,
	}
}

// RunScan walks the active watchlist, highest priority first, and
// returns accumulated statistics. Per-company failures are counted, not
// propagated.
func (s *Scout) RunScan(ctx context.Context) models.ScanStats {
	var stats models.ScanStats

	entries, err := s.store.ActiveWatchlist(ctx)
	if err != nil {
		log.Error().Err(err).Msg("loading watchlist failed")
		stats.Errors++
		return stats
	}
	if len(entries) == 0 {
		log.Warn().Msg("no active companies in watchlist")
		return stats
	}
	log.Info().Int("companies", len(entries)).Msg("starting filing scan")

	for _, entry := range entries {
		s.processCompany(ctx, entry, &stats)
	}

	log.Info().
		Int("companies_checked", stats.CompaniesChecked).
		Int("candidates_found", stats.CandidatesFound).
		Int("candidates_inserted", stats.CandidatesInserted).
		Int("duplicates_skipped", stats.DuplicatesSkipped).
		Int("errors", stats.Errors).
		Msg("scan completed")
	return stats
}

func (s *Scout) processCompany(ctx context.Context, entry models.WatchlistEntry, stats *models.ScanStats) {
	log.Info().Str("ticker", entry.Ticker).Str("source", entry.Source).Msg("processing company")
	stats.CompaniesChecked++

	var filings []models.Filing
	switch {
	case entry.Source == "sec" && entry.CIK != "":
		data, err := s.sec.FetchSubmissions(ctx, entry.CIK)
		if err != nil {
			log.Error().Err(err).Str("ticker", entry.Ticker).Msg("SEC fetch failed")
			stats.Errors++
			return
		}
		filings = s.sec.ParseFilings(data)
	case entry.Source == "annualreports":
		filings = s.annualReports.FetchFilings(ctx, entry.Ticker, entry.CompanyName, s.Limit)
	default:
		log.Warn().Str("ticker", entry.Ticker).Str("source", entry.Source).Msg("unsupported watchlist source")
		return
	}

	if s.Limit > 0 && len(filings) > s.Limit {
		filings = filings[:s.Limit]
	}

	for _, filing := range filings {
		s.processFiling(ctx, entry, filing, stats)
	}

	if !s.DryRun {
		if err := s.store.TouchLastPolled(ctx, entry.ID); err != nil {
			log.Warn().Err(err).Str("ticker", entry.Ticker).Msg("updating last_polled_at failed")
		}
	}
}

func (s *Scout) processFiling(ctx context.Context, entry models.WatchlistEntry, filing models.Filing, stats *models.ScanStats) {
	var checksum string
	if filing.DocumentURL != "" {
		checksum = s.sec.FetchChecksum(ctx, filing.DocumentURL)
	}

	// Accession numbers only exist for SEC filings; the scraped source
	// also has no usable CIK, matching the dedup signals it can offer.
	cik := entry.CIK
	if entry.Source != "sec" {
		cik = ""
	}
	dup, err := s.isDuplicate(ctx, checksum, filing.AccessionNumber, cik, filing.FormType, filing.FilingYear)
	if err != nil {
		log.Error().Err(err).Str("ticker", entry.Ticker).Msg("duplicate check failed")
		stats.Errors++
		return
	}
	if dup {
		stats.DuplicatesSkipped++
		return
	}

	if s.DryRun {
		log.Info().
			Str("ticker", entry.Ticker).
			Str("filing_type", filing.FormType).
			Int("filing_year", filing.FilingYear).
			Msg("dry run, would insert candidate")
		stats.CandidatesFound++
		return
	}

	candidate := models.FilingCandidate{
		WatchlistID:     entry.ID,
		Ticker:          entry.Ticker,
		CIK:             entry.CIK,
		CompanyName:     entry.CompanyName,
		Source:          entry.Source,
		SourceURL:       filing.DocumentURL,
		FilingType:      filing.FormType,
		FilingYear:      filing.FilingYear,
		AccessionNumber: filing.AccessionNumber,
		SHA256Checksum:  checksum,
		Status:          models.CandidateStatusPending,
	}
	if filing.FilingDate != "" {
		if t, err := time.Parse("2006-01-02", filing.FilingDate); err == nil {
			candidate.FilingDate = &t
		}
	}

	if _, err := s.store.InsertCandidate(ctx, candidate); err != nil {
		log.Error().Err(err).Str("ticker", entry.Ticker).Msg("candidate insert failed")
		stats.Errors++
		return
	}
	log.Info().
		Str("ticker", entry.Ticker).
		Str("filing_type", filing.FormType).
		Int("filing_year", filing.FilingYear).
		Msg("inserted candidate")
	stats.CandidatesFound++
	stats.CandidatesInserted++

	s.notifier.NotifyNewFiling(ctx, entry.Ticker, entry.CompanyName, filing.FormType, filing.FilingYear, entry.Source)
	if entry.Priority >= highPriorityThreshold {
		s.notifier.NotifyHighPriorityFiling(ctx, entry.Ticker, entry.CompanyName, filing.FormType, filing.FilingYear)
	}
}

// isDuplicate checks the deterministic signals: document checksum,
// accession number, CIK+type+year. A name-pattern match against stored
// documents can false-positive, so it is logged but does not veto the
// candidate.
func (s *Scout) isDuplicate(ctx context.Context, checksum, accession, cik, filingType string, year int) (bool, error) {
	if exists, err := s.store.CandidateExistsByChecksum(ctx, checksum); err != nil {
		return false, err
	} else if exists {
		return true, nil
	}
	if exists, err := s.store.CandidateExistsByAccession(ctx, accession); err != nil {
		return false, err
	} else if exists {
		return true, nil
	}
	if exists, err := s.store.CandidateExistsByFiling(ctx, cik, filingType, year); err != nil {
		return false, err
	} else if exists {
		return true, nil
	}

	if cik != "" && filingType != "" && year > 0 {
		pattern := fmt.Sprintf("%%%s%%%d%%", filingType, year)
		docs, err := s.store.DocumentsMatchingName(ctx, pattern)
		if err == nil && len(docs) > 0 {
			log.Info().
				Str("pattern", pattern).
				Int("matches", len(docs)).
				Msg("potential duplicate document found by name pattern")
		}
	}
	return false, nil
}
