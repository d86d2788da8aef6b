package models

import "time"

// Candidate statuses as stored in filing_candidates.
const (
	CandidateStatusPending      = "pending"
	CandidateStatusAutoApproved = "auto_approved"
	CandidateStatusIngested     = "ingested"
)

// Ingestion statuses as stored in filing_ingestions.
const (
	IngestionStatusProcessing = "processing"
	IngestionStatusCompleted  = "completed"
	IngestionStatusFailed     = "failed"
)

// WatchlistEntry is a company the scout agent polls for new filings.
type WatchlistEntry struct {
	ID          string
	Ticker      string
	CIK         string
	CompanyName string
	Source      string // "sec" or "annualreports"
	Priority    int
	IsActive    bool
	LastPolled  *time.Time
}

// Filing is one annual-report filing discovered at a source.
type Filing struct {
	FormType          string
	FilingDate        string // YYYY-MM-DD, may be empty
	ReportDate        string // YYYY-MM-DD, may be empty
	FilingYear        int
	AccessionNumber   string
	PrimaryDocument   string
	DocumentURL       string
	SourceReliability string // "high" for SEC, "medium" for scraped sources
}

// FilingCandidate is a discovered filing queued for approval/ingestion.
type FilingCandidate struct {
	ID              string
	WatchlistID     string
	Ticker          string
	CIK             string
	CompanyName     string
	Source          string
	SourceURL       string
	FilingType      string
	FilingYear      int
	FilingDate      *time.Time
	AccessionNumber string
	SHA256Checksum  string
	Status          string
}

// ScanStats accumulates counters over one scout scan.
type ScanStats struct {
	CompaniesChecked   int `json:"companies_checked"`
	CandidatesFound    int `json:"candidates_found"`
	CandidatesInserted int `json:"candidates_inserted"`
	DuplicatesSkipped  int `json:"duplicates_skipped"`
	Errors             int `json:"errors"`
}
