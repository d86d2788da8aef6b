package scout

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/wagadu/finsight/internal/models"
)

const (
	secBaseURL     = "https://data.sec.gov"
	secArchivesURL = "https://www.sec.gov/Archives/edgar/data"
)

// annualReportForms are the SEC form types the scout cares about.
var annualReportForms = map[string]bool{
	"10-K": true,
	"20-F": true,
}

// SECClient talks to the SEC EDGAR submissions API. SEC requires a
// User-Agent carrying a contact address and caps clients at 10 requests
// per second; the limiter enforces the cap across all calls.
type SECClient struct {
	httpClient  *http.Client
	userAgent   string
	limiter     *rate.Limiter
	baseURL     string
	archivesURL string
}

func NewSECClient(userAgent string) *SECClient {
	return &SECClient{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		userAgent:   userAgent,
		limiter:     rate.NewLimiter(rate.Limit(10), 1),
		baseURL:     secBaseURL,
		archivesURL: secArchivesURL,
	}
}

// FormatCIK normalizes a CIK to the 10-digit zero-padded form the
// submissions API expects. Returns "" when no digits are present.
func FormatCIK(cik string) string {
	var digits strings.Builder
	for _, r := range cik {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if s == "" {
		return ""
	}
	if len(s) >= 10 {
		return s[len(s)-10:]
	}
	return strings.Repeat("0", 10-len(s)) + s
}

type submissionsResponse struct {
	CIK     json.Number `json:"cik"`
	Filings struct {
		Recent struct {
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			AccessionNumber []string `json:"accessionNumber"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// FetchSubmissions pulls the recent-filings feed for one company.
func (c *SECClient) FetchSubmissions(ctx context.Context, cik string) (*submissionsResponse, error) {
	formatted := FormatCIK(cik)
	if formatted == "" {
		return nil, fmt.Errorf("invalid CIK: %q", cik)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.baseURL, formatted)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch submissions for CIK %s: %w", formatted, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("CIK %s not found in SEC database", formatted)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC submissions for CIK %s: status %d", formatted, resp.StatusCode)
	}

	var data submissionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode submissions for CIK %s: %w", formatted, err)
	}
	log.Info().Str("cik", formatted).Int("filings", len(data.Filings.Recent.Form)).Msg("fetched SEC submissions")
	return &data, nil
}

// ParseFilings extracts the annual-report filings from a submissions
// feed. The filing year comes from the report date, falling back to the
// filing date, falling back to the current year.
func (c *SECClient) ParseFilings(data *submissionsResponse) []models.Filing {
	recent := data.Filings.Recent
	var filings []models.Filing
	for idx, form := range recent.Form {
		if !annualReportForms[form] {
			continue
		}

		filingDate := at(recent.FilingDate, idx)
		reportDate := at(recent.ReportDate, idx)
		accession := at(recent.AccessionNumber, idx)
		primaryDoc := at(recent.PrimaryDocument, idx)

		year := yearOf(reportDate)
		if year == 0 {
			year = yearOf(filingDate)
		}
		if year == 0 {
			year = time.Now().Year()
		}

		var docURL string
		if accession != "" {
			cik := strings.TrimLeft(data.CIK.String(), "0")
			docURL = fmt.Sprintf("%s/%s/%s/%s", c.archivesURL, cik, strings.ReplaceAll(accession, "-", ""), primaryDoc)
		}

		filings = append(filings, models.Filing{
			FormType:          form,
			FilingDate:        filingDate,
			ReportDate:        reportDate,
			FilingYear:        year,
			AccessionNumber:   accession,
			PrimaryDocument:   primaryDoc,
			DocumentURL:       docURL,
			SourceReliability: "high",
		})
	}
	return filings
}

func at(s []string, idx int) string {
	if idx < len(s) {
		return s[idx]
	}
	return ""
}

func yearOf(dateStr string) int {
	if dateStr == "" {
		return 0
	}
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return 0
	}
	return t.Year()
}

// FetchChecksum downloads a document and returns its sha256 hex digest.
// Errors are soft: dedup just loses one signal.
func (c *SECClient) FetchChecksum(ctx context.Context, url string) string {
	if err := c.limiter.Wait(ctx); err != nil {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("checksum fetch failed")
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("checksum fetch failed")
		return ""
	}

	h := sha256.New()
	if _, err := io.Copy(h, resp.Body); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("checksum read failed")
		return ""
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
