package scout

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/models"
)

const annualReportsBaseURL = "https://www.annualreports.com"

var yearPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// AnnualReportsClient scrapes AnnualReports.com for companies that do
// not file with the SEC. The markup has no stable API, so discovery is
// heuristic: follow the first search hit mentioning the ticker or name,
// then collect PDF links that look like annual reports.
type AnnualReportsClient struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	// delay between page fetches, politeness toward the site
	delay time.Duration
}

func NewAnnualReportsClient(userAgent string) *AnnualReportsClient {
	return &AnnualReportsClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  userAgent,
		baseURL:    annualReportsBaseURL,
		delay:      time.Second,
	}
}

// FetchFilings searches for a company and scrapes its report PDFs, up
// to limit results (0 means no cap).
func (c *AnnualReportsClient) FetchFilings(ctx context.Context, ticker, companyName string, limit int) []models.Filing {
	searchTerm := companyName
	if searchTerm == "" {
		searchTerm = ticker
	}
	searchURL := fmt.Sprintf("%s/Companies?search=%s", c.baseURL, url.QueryEscape(searchTerm))

	doc, err := c.fetchDocument(ctx, searchURL)
	if err != nil {
		log.Error().Err(err).Str("ticker", ticker).Msg("annualreports search failed")
		return nil
	}

	var filings []models.Filing
	doc.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		text := strings.TrimSpace(link.Text())
		if !containsFold(text, ticker) && (companyName == "" || !containsFold(text, companyName)) {
			return true
		}

		href, _ := link.Attr("href")
		companyURL := c.absoluteURL(href)

		companyDoc, err := c.fetchDocument(ctx, companyURL)
		if err != nil {
			log.Warn().Err(err).Str("url", companyURL).Msg("annualreports company page fetch failed")
			return true
		}

		filings = c.scrapeReportLinks(companyDoc, limit)
		return false
	})

	log.Info().Str("ticker", ticker).Int("filings", len(filings)).Msg("scraped annualreports.com")
	return filings
}

func (c *AnnualReportsClient) scrapeReportLinks(doc *goquery.Document, limit int) []models.Filing {
	var filings []models.Filing
	doc.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		text := strings.TrimSpace(link.Text())
		if !strings.Contains(strings.ToLower(href), ".pdf") && !containsFold(text, "annual") {
			return true
		}

		year := time.Now().Year()
		if m := yearPattern.FindString(text + href); m != "" {
			if y, err := strconv.Atoi(m); err == nil {
				year = y
			}
		}

		filings = append(filings, models.Filing{
			FormType:          "annual-report",
			FilingYear:        year,
			DocumentURL:       c.absoluteURL(href),
			SourceReliability: "medium",
		})
		return limit <= 0 || len(filings) < limit
	})
	return filings
}

func (c *AnnualReportsClient) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func (c *AnnualReportsClient) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return c.baseURL + href
}

func containsFold(s, substr string) bool {
	return substr != "" && strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
